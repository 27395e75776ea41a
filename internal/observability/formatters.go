// Package observability provides formatted output for operators reading CLI results.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/research"
	"github.com/jonathan/race-results/internal/scraper"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for text mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResult outputs the order, race edition and runner research of one result.
func (p *Printer) PrintResult(result *research.Result) {
	if result == nil {
		return
	}
	p.PrintOrder(result.Order)
	p.PrintRaceEdition(result.RaceEdition)
	p.PrintRunnerResearch(result.RunnerResearch, result.Matches)
}

// PrintOrder outputs an order's effective values and status.
func (p *Printer) PrintOrder(order *db.Order) {
	if order == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:  %s\n", order.Status))
	sb.WriteString(fmt.Sprintf("Race:    %s%s\n", order.EffectiveRaceName(), overridden(order.RaceNameOverride != nil)))
	if year, ok := order.EffectiveRaceYear(); ok {
		sb.WriteString(fmt.Sprintf("Year:    %d%s\n", year, overridden(order.RaceYearOverride != nil)))
	} else {
		sb.WriteString("Year:    (unknown)\n")
	}
	sb.WriteString(fmt.Sprintf("Runner:  %s%s", order.EffectiveRunnerName(), overridden(order.RunnerNameOverride != nil)))
	if order.ResearchedAt != nil {
		sb.WriteString(fmt.Sprintf("\nReady:   %s", order.ResearchedAt.Format("2006-01-02 15:04 MST")))
	}

	p.printBox("ORDER "+order.OrderNumber, sb.String())
}

// PrintRaceEdition outputs race metadata and weather.
func (p *Printer) PrintRaceEdition(edition *db.RaceEdition) {
	if edition == nil {
		return
	}

	var sb strings.Builder
	date := "(unknown)"
	if edition.RaceDate != nil {
		date = edition.RaceDate.Format("Mon Jan 2, 2006")
		if edition.DateApproximate {
			date += " (approximate)"
		}
	}
	sb.WriteString(fmt.Sprintf("Date:     %s\n", date))
	sb.WriteString(fmt.Sprintf("Location: %s\n", orDash(edition.Location)))
	if len(edition.EventTypes) > 0 {
		sb.WriteString(fmt.Sprintf("Events:   %s\n", strings.Join(edition.EventTypes, ", ")))
	}
	switch {
	case edition.WeatherTemp != nil:
		sb.WriteString(fmt.Sprintf("Weather:  %.0f°F, %s", *edition.WeatherTemp, orDash(edition.WeatherCondition)))
	case edition.WeatherAttempted():
		sb.WriteString("Weather:  unavailable")
	default:
		sb.WriteString("Weather:  not fetched")
	}

	p.printBox(fmt.Sprintf("%s %d", edition.RaceName, edition.Year), sb.String())
}

// PrintRunnerResearch outputs a research record, listing candidates when it is ambiguous.
func (p *Printer) PrintRunnerResearch(rr *db.RunnerResearch, matches []scraper.Candidate) {
	if rr == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Searched: %s\n", rr.RunnerName))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", strings.ToUpper(rr.ResearchStatus)))

	switch rr.ResearchStatus {
	case db.ResearchStatusFound:
		sb.WriteString(fmt.Sprintf("Bib:      %s\n", orDash(rr.BibNumber)))
		sb.WriteString(fmt.Sprintf("Time:     %s\n", orDash(rr.OfficialTime)))
		sb.WriteString(fmt.Sprintf("Pace:     %s\n", orDash(rr.OfficialPace)))
		sb.WriteString(fmt.Sprintf("Event:    %s\n", orDash(rr.EventType)))
	case db.ResearchStatusAmbiguous:
		sb.WriteString(fmt.Sprintf("\n%d candidates:\n", len(matches)))
		count := min(len(matches), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", matches[i].Label()))
		}
		if len(matches) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(matches)-maxItemsToShow))
		}
	}
	if rr.ResearchNotes != nil && *rr.ResearchNotes != "" {
		sb.WriteString(fmt.Sprintf("\nNotes: %s\n", *rr.ResearchNotes))
	}

	p.printBox("RUNNER RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatch outputs one line per order of a batch and a summary.
func (p *Printer) PrintBatch(items []research.BatchItem) {
	if len(items) == 0 {
		return
	}

	var sb strings.Builder
	failed := 0
	for _, item := range items {
		if !item.Success() {
			failed++
			sb.WriteString(fmt.Sprintf("✗ %s  %v\n", item.OrderNumber, item.Error))
			continue
		}
		status := "-"
		if item.Result.RunnerResearch != nil {
			status = item.Result.RunnerResearch.ResearchStatus
		}
		sb.WriteString(fmt.Sprintf("✓ %s  %s\n", item.OrderNumber, status))
	}
	sb.WriteString(fmt.Sprintf("\n%d succeeded, %d failed", len(items)-failed, failed))

	p.printBox("BATCH RESEARCH", sb.String())
}

func overridden(set bool) string {
	if set {
		return " (override)"
	}
	return ""
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
