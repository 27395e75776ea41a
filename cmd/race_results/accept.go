package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/race-results/internal/scraper"
)

var acceptCandidate scraper.Candidate

var acceptCmd = &cobra.Command{
	Use:   "accept <order-number>",
	Short: "Accept one candidate for an ambiguous or unresolved order",
	Long: `Record an operator-chosen result for an order whose research was ambiguous or not found.
No timing site is contacted; the order is marked ready.`,
	Example: `  race_results accept 1001 --name "John Smith" --bib 202 --time 3:55:38`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccept,
}

func init() {
	acceptCmd.Flags().StringVar(&acceptCandidate.Name, "name", "", "Runner name as listed in the results (required)")
	acceptCmd.Flags().StringVar(&acceptCandidate.Bib, "bib", "", "Bib number (required unless --time is given)")
	acceptCmd.Flags().StringVar(&acceptCandidate.Time, "time", "", "Official finish time (required unless --bib is given)")
	acceptCmd.Flags().StringVar(&acceptCandidate.Pace, "pace", "", "Official pace (computed from the event distance when omitted)")
	acceptCmd.Flags().StringVar(&acceptCandidate.EventType, "event", "", "Event type (defaults to the race's first event)")
	_ = acceptCmd.MarkFlagRequired("name")
	acceptCmd.MarkFlagsOneRequired("bib", "time")
	rootCmd.AddCommand(acceptCmd)
}

func runAccept(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.AcceptMatch(ctx, args[0], acceptCandidate)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), result)
}
