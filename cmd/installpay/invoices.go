package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/spf13/cobra"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Import and list invoices",
	Long: `Invoices are created by the sale process. This command loads them from
a JSON export and shows what a user owes.

Examples:
  installpay invoices import invoices.json
  cat invoices.json | installpay invoices import -
  installpay invoices list user-123`,
}

var invoicesImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import invoices from a JSON array of records",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesImport,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list <user-id>",
	Short: "List a user's invoices by due date",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesList,
}

func init() {
	rootCmd.AddCommand(invoicesCmd)

	invoicesCmd.AddCommand(invoicesImportCmd)
	invoicesCmd.AddCommand(invoicesListCmd)
}

func runInvoicesImport(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read invoices: %w", err)
	}

	invoices, err := invoice.DecodeRecords(data)
	if err != nil {
		return err
	}

	core, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	n, err := core.Stores.Invoices.Upsert(cmd.Context(), invoices)
	if err != nil {
		return fmt.Errorf("import invoices: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d invoices.\n", n)
	return nil
}

func runInvoicesList(cmd *cobra.Command, args []string) error {
	core, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	view, err := core.Billing.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(view.Invoices) == 0 {
		fmt.Fprintln(out, "No invoices found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMONTH\tDUE\tAMOUNT\tSTATUS\t")
	for _, inv := range view.Invoices {
		state := string(inv.Status)
		if inv.IsLate(view.Today) {
			state += " (late)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			inv.ID, inv.Month, invoice.FormatDate(inv.DueDate), inv.Amount.StringFixed(2), state)
	}
	return w.Flush()
}
