package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/observability"
	"github.com/jonathan/race-results/internal/research"
)

var (
	researchStatus string
	researchLimit  int
)

var researchCmd = &cobra.Command{
	Use:   "research [order-number...]",
	Short: "Research one or more orders",
	Long: `Resolve each order's race edition and search the timing site for its runner.

With one order number the full result is printed. With several, or with --status, the orders
are researched one at a time and a per-order summary is printed; a failing order does not stop
the rest.`,
	Example: `  race_results research 1001
  race_results research 1001 1002 1003
  race_results research --status pending --limit 50`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().StringVar(&researchStatus, "status", "", "Research every order with this status (e.g. pending)")
	researchCmd.Flags().IntVar(&researchLimit, "limit", 100, "Maximum orders to select with --status")
	rootCmd.AddCommand(researchCmd)
}

// batchLine is one row of the batch summary.
type batchLine struct {
	OrderNumber    string `json:"order_number"`
	OK             bool   `json:"ok"`
	ResearchStatus string `json:"research_status,omitempty"`
	OrderStatus    string `json:"order_status,omitempty"`
	Error          string `json:"error,omitempty"`
}

func summarize(items []research.BatchItem) ([]batchLine, int) {
	lines := make([]batchLine, 0, len(items))
	failed := 0
	for _, item := range items {
		line := batchLine{OrderNumber: item.OrderNumber, OK: item.Success()}
		if item.Success() {
			if item.Result.RunnerResearch != nil {
				line.ResearchStatus = item.Result.RunnerResearch.ResearchStatus
			}
			if item.Result.Order != nil {
				line.OrderStatus = item.Result.Order.Status
			}
		} else {
			line.Error = item.Error.Error()
			failed++
		}
		lines = append(lines, line)
	}
	return lines, failed
}

func runResearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && researchStatus == "" {
		return errors.New("provide order numbers or --status")
	}
	if len(args) > 0 && researchStatus != "" {
		return errors.New("order numbers and --status are mutually exclusive")
	}
	if researchStatus != "" && !db.ValidOrderStatus(researchStatus) {
		return fmt.Errorf("invalid order status %q", researchStatus)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	orderNumbers := args
	if researchStatus != "" {
		orderNumbers, err = a.db.ListOrderNumbersByStatus(ctx, researchStatus, researchLimit)
		if err != nil {
			return err
		}
		if len(orderNumbers) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No orders with status %s\n", researchStatus)
			return nil
		}
	}

	if len(orderNumbers) == 1 && researchStatus == "" {
		result, err := a.service.ResearchOrder(ctx, orderNumbers[0])
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), result)
	}

	items := a.service.ResearchBatch(ctx, orderNumbers)
	lines, failed := summarize(items)
	if outputFormat == "text" {
		observability.NewPrinter(cmd.OutOrStdout()).PrintBatch(items)
	} else if err := printJSON(cmd.OutOrStdout(), lines); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d orders failed", failed, len(lines))
	}
	return nil
}
