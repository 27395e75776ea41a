package research

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOverrides_YearSetThenCleared(t *testing.T) {
	f := newFixture(t)
	f.order("1001", "Chicago Marathon", intPtr(2024), "Jane Doe")
	ctx := context.Background()

	o, err := f.svc.SetOverrides(ctx, "1001", OverrideUpdate{RaceYear: SetTo(2023)})
	require.NoError(t, err)
	year, _ := o.EffectiveRaceYear()
	assert.Equal(t, 2023, year)

	o, err = f.svc.SetOverrides(ctx, "1001", OverrideUpdate{RaceYear: Clear[int]()})
	require.NoError(t, err)
	year, ok := o.EffectiveRaceYear()
	assert.True(t, ok, "clearing never leaves the year empty")
	assert.Equal(t, 2024, year)
	require.NotNil(t, o.RaceYear)
	assert.Equal(t, 2024, *o.RaceYear)
}

func TestSetOverrides_UnsetFieldsAreKept(t *testing.T) {
	f := newFixture(t)
	f.order("1001", "Chicago", intPtr(2024), "J Doe")
	ctx := context.Background()

	_, err := f.svc.SetOverrides(ctx, "1001", OverrideUpdate{
		RaceName:   SetTo("Chicago Marathon"),
		RunnerName: SetTo("  Jane Doe "),
	})
	require.NoError(t, err)

	o, err := f.svc.SetOverrides(ctx, "1001", OverrideUpdate{RaceYear: SetTo(2023)})
	require.NoError(t, err)
	assert.Equal(t, "Chicago Marathon", o.EffectiveRaceName())
	assert.Equal(t, "Jane Doe", o.EffectiveRunnerName())
	assert.Equal(t, "Chicago", *o.RaceName)
}

func TestSetOverrides_EmptyStringClears(t *testing.T) {
	f := newFixture(t)
	f.order("1001", "Chicago Marathon", intPtr(2024), "J Doe")
	ctx := context.Background()

	_, err := f.svc.SetOverrides(ctx, "1001", OverrideUpdate{RunnerName: SetTo("Jane Doe")})
	require.NoError(t, err)
	o, err := f.svc.SetOverrides(ctx, "1001", OverrideUpdate{RunnerName: SetTo("   ")})
	require.NoError(t, err)
	assert.Nil(t, o.RunnerNameOverride)
	assert.Equal(t, "J Doe", o.EffectiveRunnerName())
}

func TestSetOverrides_Errors(t *testing.T) {
	f := newFixture(t)
	f.order("1001", "Chicago Marathon", intPtr(2024), "Jane Doe")
	ctx := context.Background()

	_, err := f.svc.SetOverrides(ctx, "1001", OverrideUpdate{RaceYear: SetTo(24)})
	assert.ErrorIs(t, err, ErrInvalidOverride)

	_, err = f.svc.SetOverrides(ctx, "nope", OverrideUpdate{RaceYear: SetTo(2024)})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSetOverrides_RaceOverrideStartsNewResearch(t *testing.T) {
	f := newFixture(t)
	f.order("1001", "Chicago Marathon", intPtr(2024), "Jane Doe")
	ctx := context.Background()

	first, err := f.svc.ResearchOrder(ctx, "1001")
	require.NoError(t, err)
	_, err = f.svc.SetOverrides(ctx, "1001", OverrideUpdate{RaceYear: SetTo(2023)})
	require.NoError(t, err)

	second, err := f.svc.ResearchOrder(ctx, "1001")
	require.NoError(t, err)
	assert.NotEqual(t, first.RaceEdition.ID, second.RaceEdition.ID)
	assert.Equal(t, 2023, second.RaceEdition.Year)
	_, search := f.chicago.calls()
	assert.Equal(t, 2, search)
}

func TestOverrideUpdate_JSON(t *testing.T) {
	var u OverrideUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"race_year": null, "runner_name": "Jane Doe"}`), &u))

	assert.False(t, u.RaceName.Set, "absent key leaves the field unchanged")
	assert.True(t, u.RaceYear.Set)
	assert.Nil(t, u.RaceYear.Value, "null clears")
	assert.True(t, u.RunnerName.Set)
	require.NotNil(t, u.RunnerName.Value)
	assert.Equal(t, "Jane Doe", *u.RunnerName.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"race_year": "soon"}`), &u))
}

func TestOverrideUpdate_JSONEmptyStringClears(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"year", `{"race_year": ""}`},
		{"year padded", `{"race_year":   ""  }`},
		{"race name", `{"race_name": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u OverrideUpdate
			require.NoError(t, json.Unmarshal([]byte(tt.body), &u))
			assert.True(t, u.RaceYear.Set || u.RaceName.Set)
			assert.Nil(t, u.RaceYear.Value)
			assert.Nil(t, u.RaceName.Value)
		})
	}
}

func TestSetOverrides_EmptyYearFromJSONClears(t *testing.T) {
	f := newFixture(t)
	f.order("1001", "Chicago Marathon", intPtr(2024), "Jane Doe")
	ctx := context.Background()

	_, err := f.svc.SetOverrides(ctx, "1001", OverrideUpdate{RaceYear: SetTo(2023)})
	require.NoError(t, err)

	var u OverrideUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"race_year": ""}`), &u))
	o, err := f.svc.SetOverrides(ctx, "1001", u)
	require.NoError(t, err)
	assert.Nil(t, o.RaceYearOverride)
	year, _ := o.EffectiveRaceYear()
	assert.Equal(t, 2024, year)
}
