// Package main is the entry point for installpay.
//
//	@title			installpay API
//	@version		1.0
//	@description	Installment billing: grouped invoices, renegotiation and anticipation quotes, and card, PIX and boleto payment flows.
//
//	@contact.name	installpay maintainers
//	@contact.url	https://github.com/artpar/installpay/issues
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("warning: .env: " + err.Error() + "\n")
	}
	Execute()
}
