package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/observability"
)

// orderFlags are the fields an operator can enter for a manual order.
type orderFlags struct {
	OrderNumber string `validate:"required"`
	Parent      string
	LineItem    int    `validate:"gte=0"`
	Channel     string `validate:"required"`
	RaceName    string `validate:"required"`
	RaceYear    int    `validate:"omitempty,gte=1897,lte=2100"`
	RunnerName  string `validate:"required"`
}

var (
	orderAdd     orderFlags
	orderConfirm bool
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Enter and inspect orders",
}

var ordersAddCmd = &cobra.Command{
	Use:   "add <order-number>",
	Short: "Enter an order by hand",
	Long: `Create an order without going through the storefront import. An order without a year is
stored as missing_year. Status-based batch research skips it; set a year override and
research it by order number.`,
	Example: `  race_results orders add 1001 --race "Chicago Marathon" --year 2024 --runner "Jane Doe"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runOrdersAdd,
}

var ordersShowCmd = &cobra.Command{
	Use:   "show <order-number>",
	Short: "Print an order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrdersShow,
}

var ordersDeleteCmd = &cobra.Command{
	Use:   "delete <order-number>",
	Short: "Delete an order and its research",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrdersDelete,
}

func init() {
	ordersAddCmd.Flags().StringVar(&orderAdd.RaceName, "race", "", "Race name as the customer entered it (required)")
	ordersAddCmd.Flags().IntVar(&orderAdd.RaceYear, "year", 0, "Race year")
	ordersAddCmd.Flags().StringVar(&orderAdd.RunnerName, "runner", "", "Runner name (required)")
	ordersAddCmd.Flags().StringVar(&orderAdd.Channel, "channel", "manual", "Sales channel")
	ordersAddCmd.Flags().StringVar(&orderAdd.Parent, "parent", "", "Parent order number for multi-item orders")
	ordersAddCmd.Flags().IntVar(&orderAdd.LineItem, "line-item", 0, "Line item index within the parent order")
	ordersDeleteCmd.Flags().BoolVar(&orderConfirm, "yes", false, "Confirm deletion")

	ordersCmd.AddCommand(ordersAddCmd, ordersShowCmd, ordersDeleteCmd)
	rootCmd.AddCommand(ordersCmd)
}

// orderInput validates the flags and converts them to a storage input.
func orderInput(f orderFlags) (*db.OrderInput, error) {
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}
	input := &db.OrderInput{
		OrderNumber:       f.OrderNumber,
		ParentOrderNumber: f.Parent,
		LineItemIndex:     f.LineItem,
		Channel:           f.Channel,
		RaceName:          f.RaceName,
		RunnerName:        f.RunnerName,
	}
	if f.RaceYear != 0 {
		year := f.RaceYear
		input.RaceYear = &year
	}
	return input, nil
}

func runOrdersAdd(cmd *cobra.Command, args []string) error {
	flags := orderAdd
	flags.OrderNumber = args[0]
	input, err := orderInput(flags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	order, err := a.db.CreateOrder(ctx, input)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), order)
}

func runOrdersShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	order, err := a.db.GetOrder(ctx, args[0])
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %s not found", args[0])
	}
	if outputFormat == "text" {
		observability.NewPrinter(cmd.OutOrStdout()).PrintOrder(order)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), order)
}

func runOrdersDelete(cmd *cobra.Command, args []string) error {
	if !orderConfirm {
		return fmt.Errorf("refusing to delete order %s without --yes", args[0])
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.DeleteOrder(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted order %s\n", args[0])
	return nil
}
