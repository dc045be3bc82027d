package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/spf13/cobra"
)

var groupsCmd = &cobra.Command{
	Use:   "groups <user-id>",
	Short: "Show a user's purchases with status and balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroups,
}

var renegotiateCmd = &cobra.Command{
	Use:   "renegotiate",
	Short: "Renegotiation of overdue invoices",
}

var renegotiateQuoteCmd = &cobra.Command{
	Use:   "quote <user-id>",
	Short: "Price renegotiation deals",
	Long: `Price the renegotiation of overdue invoices into 1 to 7 installments.

Without --invoice every late invoice of the user is included. Without
--installments all installment counts are quoted.

Examples:
  installpay renegotiate quote user-123
  installpay renegotiate quote user-123 --invoice inv-1 --installments 3`,
	Args: cobra.ExactArgs(1),
	RunE: runRenegotiateQuote,
}

var anticipateCmd = &cobra.Command{
	Use:   "anticipate",
	Short: "Early payment of future invoices",
}

var anticipateQuoteCmd = &cobra.Command{
	Use:   "quote <user-id>",
	Short: "Price the early payment of future invoices",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnticipateQuote,
}

var (
	quoteInvoices     []string
	quoteInstallments int
)

func init() {
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(renegotiateCmd)
	rootCmd.AddCommand(anticipateCmd)

	renegotiateCmd.AddCommand(renegotiateQuoteCmd)
	anticipateCmd.AddCommand(anticipateQuoteCmd)

	renegotiateQuoteCmd.Flags().StringSliceVar(&quoteInvoices, "invoice", nil, "overdue invoice ids (default: all late invoices)")
	renegotiateQuoteCmd.Flags().IntVar(&quoteInstallments, "installments", 0, "quote a single installment count")

	anticipateQuoteCmd.Flags().StringSliceVar(&quoteInvoices, "invoice", nil, "future invoice ids")
	_ = anticipateQuoteCmd.MarkFlagRequired("invoice")
}

func runGroups(cmd *cobra.Command, args []string) error {
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
	if len(view.Groups) == 0 {
		fmt.Fprintln(out, "No purchases found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PURCHASE\tSTATUS\tPAID\tREMAINING\tNEXT DUE\t")
	for _, g := range view.Groups {
		next := "-"
		if g.NextDueDate != nil {
			next = invoice.FormatDate(*g.NextDueDate)
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\t\n",
			g.Name, g.Status, g.PaidInstallments, g.TotalInstallments, g.RemainingAmount.StringFixed(2), next)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := view.Summary
	fmt.Fprintf(out, "\nOpen: %d (%s)  Late: %d (%s)\n",
		s.OpenCount, s.OpenAmount.StringFixed(2), s.LateCount, s.LateAmount.StringFixed(2))
	return nil
}

func runRenegotiateQuote(cmd *cobra.Command, args []string) error {
	core, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	deals, err := core.Billing.QuoteRenegotiation(cmd.Context(), args[0], quoteInvoices, quoteInstallments)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Overdue: %s across %d invoices\n\n",
		deals[0].TotalOriginal.StringFixed(2), len(deals[0].Invoices))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INSTALLMENTS\tINTEREST\tTOTAL\tINSTALLMENT\t")
	for _, d := range deals {
		fmt.Fprintf(w, "%dx\t%s%%\t%s\t%s\t\n",
			d.Installments, d.InterestPercent().StringFixed(2), d.TotalWithInterest.StringFixed(2), d.InstallmentValue.StringFixed(2))
	}
	return w.Flush()
}

func runAnticipateQuote(cmd *cobra.Command, args []string) error {
	core, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	ob, err := core.Billing.QuoteAnticipation(cmd.Context(), args[0], quoteInvoices)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Invoices: %s\n", strings.Join(invoice.IDs(ob.Invoices), ", "))
	fmt.Fprintf(out, "Total:    %s\n", ob.Total.StringFixed(2))
	fmt.Fprintf(out, "Discount: %s\n", ob.DiscountValue.StringFixed(2))
	fmt.Fprintf(out, "To pay:   %s\n", ob.FinalAmount.StringFixed(2))
	return nil
}
