package main

import (
	"os"

	apihttp "github.com/artpar/installpay/adapters/http"
	"github.com/artpar/installpay/bootstrap"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the installpay HTTP API.

Configuration is read from installpay.yaml (or --config). Without a file,
INSTALLPAY_* environment variables are used; a .env file in the working
directory is loaded first.

Environment variables (for Docker deployments):
  INSTALLPAY_DATABASE_DRIVER  - sqlite, postgres, remote or memory
  INSTALLPAY_DATABASE_DSN     - Database path or connection string
  INSTALLPAY_SERVER_PORT      - Server port (default: 8080)
  INSTALLPAY_REDIS_URL        - Redis URL for payment flows
  INSTALLPAY_KAFKA_BROKERS    - Comma separated Kafka brokers
  INSTALLPAY_PAYMENT_PROVIDER - stripe, remote, dummy or none
  INSTALLPAY_LOG_LEVEL        - debug, info, warn, error

Examples:
  installpay serve
  installpay serve --config /etc/installpay/config.yaml
  installpay serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload the config file on change or SIGHUP")
}

func runServe(cmd *cobra.Command, args []string) error {
	apihttp.BuildVersion = version

	var app *bootstrap.App
	var err error

	if _, statErr := os.Stat(cfgFile); statErr == nil && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := loadConfig()
		if loadErr != nil {
			return loadErr
		}
		app, err = bootstrap.New(cfg)
	}
	if err != nil {
		return err
	}

	return app.Run()
}
