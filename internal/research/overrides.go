package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/race-results/internal/db"
)

// Field is a tri-state override edit: left unchanged (Set false), cleared (Set
// with nil Value) or set to Value. In JSON an absent key leaves the field
// unchanged and null clears it.
type Field[T any] struct {
	Set   bool
	Value *T
}

// SetTo returns a field that sets v.
func SetTo[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Clear returns a field that clears the override.
func Clear[T any]() Field[T] {
	return Field[T]{Set: true}
}

// UnmarshalJSON treats null and the empty string as a clear, for every field type.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	switch string(bytes.TrimSpace(data)) {
	case "null", `""`:
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// OverrideUpdate edits an order's override fields.
type OverrideUpdate struct {
	RaceName   Field[string] `json:"race_name"`
	RaceYear   Field[int]    `json:"race_year"`
	RunnerName Field[string] `json:"runner_name"`
}

// Minimum and maximum accepted race year overrides
const (
	MinRaceYear = 1897
	MaxRaceYear = 2100
)

// SetOverrides applies operator corrections to an order. Ingested values are
// never modified, so clearing an override (null or an empty string) reveals the
// ingested value again. Research is not re-run.
func (s *Service) SetOverrides(ctx context.Context, orderNumber string, update OverrideUpdate) (*db.Order, error) {
	order, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	next := db.OrderOverrides{
		RaceName:   order.RaceNameOverride,
		RaceYear:   order.RaceYearOverride,
		RunnerName: order.RunnerNameOverride,
	}
	if update.RaceName.Set {
		next.RaceName = cleanString(update.RaceName.Value)
	}
	if update.RunnerName.Set {
		next.RunnerName = cleanString(update.RunnerName.Value)
	}
	if update.RaceYear.Set {
		if v := update.RaceYear.Value; v != nil && (*v < MinRaceYear || *v > MaxRaceYear) {
			return nil, orderErr(orderNumber, fmt.Errorf("%w: race year %d out of range", ErrInvalidOverride, *v))
		}
		next.RaceYear = update.RaceYear.Value
	}

	updated, err := s.store.UpdateOrderOverrides(ctx, orderNumber, next)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, orderErr(orderNumber, ErrOrderNotFound)
	}

	year, _ := updated.EffectiveRaceYear()
	s.orderLogger(updated).WithFields(map[string]any{
		"race":   updated.EffectiveRaceName(),
		"year":   year,
		"runner": updated.EffectiveRunnerName(),
	}).Info("order overrides updated")
	return updated, nil
}

func cleanString(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
