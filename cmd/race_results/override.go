package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/race-results/internal/research"
)

var overrideCmd = &cobra.Command{
	Use:   "override <order-number>",
	Short: "Correct an order's race name, year or runner name",
	Long: `Set or clear override fields on an order. Overrides take precedence over the ingested values
everywhere; clearing one reverts to the ingested value. Fields not mentioned are left unchanged.`,
	Example: `  race_results override 1001 --race-year 2023
  race_results override 1001 --clear race_year,runner_name`,
	Args: cobra.ExactArgs(1),
	RunE: runOverride,
}

func init() {
	addOverrideFlags(overrideCmd.Flags())
	rootCmd.AddCommand(overrideCmd)
}

func addOverrideFlags(fs *pflag.FlagSet) {
	fs.String("race-name", "", "Race name override")
	fs.Int("race-year", 0, "Race year override")
	fs.String("runner-name", "", "Runner name override")
	fs.StringSlice("clear", nil, "Overrides to clear: race_name, race_year, runner_name")
}

// overrideUpdate builds the update from the flags the operator actually passed.
func overrideUpdate(fs *pflag.FlagSet) (research.OverrideUpdate, error) {
	var u research.OverrideUpdate

	toClear, err := fs.GetStringSlice("clear")
	if err != nil {
		return u, err
	}
	cleared := make(map[string]bool, len(toClear))
	for _, field := range toClear {
		field = strings.TrimSpace(field)
		switch field {
		case "race_name":
			u.RaceName = research.Clear[string]()
		case "race_year":
			u.RaceYear = research.Clear[int]()
		case "runner_name":
			u.RunnerName = research.Clear[string]()
		default:
			return u, fmt.Errorf("unknown override %q", field)
		}
		cleared[field] = true
	}

	for _, flag := range []string{"race-name", "race-year", "runner-name"} {
		if !fs.Changed(flag) {
			continue
		}
		field := strings.ReplaceAll(flag, "-", "_")
		if cleared[field] {
			return u, fmt.Errorf("--%s and --clear %s are mutually exclusive", flag, field)
		}
		switch flag {
		case "race-name":
			v, _ := fs.GetString(flag)
			u.RaceName = research.SetTo(v)
		case "race-year":
			v, _ := fs.GetInt(flag)
			u.RaceYear = research.SetTo(v)
		case "runner-name":
			v, _ := fs.GetString(flag)
			u.RunnerName = research.SetTo(v)
		}
	}

	if !u.RaceName.Set && !u.RaceYear.Set && !u.RunnerName.Set {
		return u, errors.New("nothing to change; pass an override flag or --clear")
	}
	return u, nil
}

func runOverride(cmd *cobra.Command, args []string) error {
	update, err := overrideUpdate(cmd.Flags())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	order, err := a.service.SetOverrides(ctx, args[0], update)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), order)
}
