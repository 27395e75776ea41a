package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var racesResolve string

var racesCmd = &cobra.Command{
	Use:   "races",
	Short: "List the races that can be researched automatically",
	Long: `List the canonical names of every race in the catalog. With --resolve, show which catalog
entry a free-text race name routes to and by which rule.`,
	Example: `  race_results races
  race_results races --resolve "B.A.A. Boston Marathon"`,
	Args: cobra.NoArgs,
	RunE: runRaces,
}

func init() {
	racesCmd.Flags().StringVar(&racesResolve, "resolve", "", "Resolve a race name against the catalog")
	rootCmd.AddCommand(racesCmd)
}

func runRaces(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg, logger, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if racesResolve != "" {
		entry, rule, err := reg.Resolve(racesResolve)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]any{
			"query": racesResolve,
			"race":  entry.Name,
			"key":   entry.Key,
			"type":  entry.Type,
			"rule":  rule,
		})
	}

	for _, name := range reg.SupportedRaces() {
		fmt.Fprintln(out, name)
	}
	return nil
}
