package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/race-results/internal/research"
)

var (
	weatherLimit       int
	weatherConcurrency int
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Fetch race-day weather for race editions",
}

var weatherFetchCmd = &cobra.Command{
	Use:   "fetch <race-edition-id>",
	Short: "Fetch weather for one race edition",
	Args:  cobra.ExactArgs(1),
	RunE:  runWeatherFetch,
}

var weatherBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fetch weather for every complete race edition that has none",
	Long: `Look up race-day weather for race editions with a known date and location whose weather
has never been fetched. Editions are processed concurrently; one failure does not stop the rest.`,
	Args: cobra.NoArgs,
	RunE: runWeatherBackfill,
}

func init() {
	weatherBackfillCmd.Flags().IntVar(&weatherLimit, "limit", 100, "Maximum race editions to check")
	weatherBackfillCmd.Flags().IntVar(&weatherConcurrency, "concurrency", research.DefaultBackfillConcurrency, "Concurrent weather lookups")
	weatherCmd.AddCommand(weatherFetchCmd, weatherBackfillCmd)
	rootCmd.AddCommand(weatherCmd)
}

func runWeatherFetch(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid race edition id %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	edition, err := a.service.FetchWeatherForRaceEdition(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), edition)
}

func runWeatherBackfill(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.BackfillWeather(ctx, weatherLimit, weatherConcurrency)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d race editions failed", report.Failed, report.Checked)
	}
	return nil
}
