package normalization

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return m
}

func assertValid(t *testing.T, got GeneratedPlan) {
	t.Helper()
	if !timePattern.MatchString(got.Schedule.Bedtime) {
		t.Fatalf("bedtime %q does not match HH:MM", got.Schedule.Bedtime)
	}
	if !timePattern.MatchString(got.Schedule.WakeTime) {
		t.Fatalf("wakeTime %q does not match HH:MM", got.Schedule.WakeTime)
	}
	for _, nap := range got.Schedule.Naps {
		if !timePattern.MatchString(nap.Time) {
			t.Fatalf("nap time %q does not match HH:MM", nap.Time)
		}
		if nap.DurationMinutes < napDurationMin || nap.DurationMinutes > napDurationMax {
			t.Fatalf("nap duration %d out of bounds", nap.DurationMinutes)
		}
	}
	for _, meal := range got.Schedule.Meals {
		if !timePattern.MatchString(meal.Time) {
			t.Fatalf("meal time %q does not match HH:MM", meal.Time)
		}
		if meal.Description == "" {
			t.Fatalf("meal description must not be empty")
		}
	}
	for _, act := range got.Schedule.Activities {
		if !timePattern.MatchString(act.Time) {
			t.Fatalf("activity time %q does not match HH:MM", act.Time)
		}
		if act.DurationMinutes < activityDurationMin || act.DurationMinutes > activityDurationMax {
			t.Fatalf("activity duration %d out of bounds", act.DurationMinutes)
		}
	}
	if len(got.Objectives) == 0 {
		t.Fatalf("objectives must not be empty")
	}
	if len(got.Recommendations) == 0 {
		t.Fatalf("recommendations must not be empty")
	}
}

func TestNormalizeGeneratedPlan_Totality(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]any
	}{
		{name: "nil_input", raw: nil},
		{name: "empty_object", raw: map[string]any{}},
		{name: "schedule_wrong_type", raw: map[string]any{"schedule": "not an object"}},
		{name: "garbage_everywhere", raw: decode(t, `{
			"schedule": {
				"bedtime": 2030,
				"wakeTime": "25:99",
				"naps": [{"time": null, "duration": "soon"}, "bogus", {"duration": 9999}],
				"meals": [{"time": "breakfast", "type": 3, "description": "   "}],
				"activities": [{"time": "17:00", "duration": 1}, {}]
			},
			"objectives": [null, "", 42],
			"recommendations": "not a list"
		}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertValid(t, NormalizeGeneratedPlan(tc.raw))
		})
	}
}

func TestNormalizeGeneratedPlan_Defaults(t *testing.T) {
	got := NormalizeGeneratedPlan(map[string]any{})
	if got.Schedule.Bedtime != DefaultBedtime {
		t.Fatalf("bedtime = %q, want %q", got.Schedule.Bedtime, DefaultBedtime)
	}
	if got.Schedule.WakeTime != DefaultWakeTime {
		t.Fatalf("wakeTime = %q, want %q", got.Schedule.WakeTime, DefaultWakeTime)
	}
	if len(got.Objectives) != 1 {
		t.Fatalf("objectives = %v, want the single default", got.Objectives)
	}
	if len(got.Recommendations) != 2 {
		t.Fatalf("recommendations = %v, want the two defaults", got.Recommendations)
	}
	if got.Schedule.Naps == nil || got.Schedule.Meals == nil || got.Schedule.Activities == nil {
		t.Fatalf("schedule lists must be non-nil")
	}
}

func TestNormalizeGeneratedPlan_ClampsAndPlaceholders(t *testing.T) {
	raw := decode(t, `{
		"schedule": {
			"bedtime": "21:15",
			"wakeTime": "06:45",
			"naps": [{"time": "14:30", "duration": 600, "description": ""}],
			"meals": [{"time": "12:00", "type": "lunch", "description": ""}],
			"activities": [{"time": "16:00", "activity": "park walk", "duration": 2}]
		},
		"objectives": ["Sleep through the night"],
		"recommendations": ["Dim the lights after dinner"]
	}`)

	got := NormalizeGeneratedPlan(raw)

	if got.Schedule.Bedtime != "21:15" || got.Schedule.WakeTime != "06:45" {
		t.Fatalf("valid times must pass through, got %q / %q", got.Schedule.Bedtime, got.Schedule.WakeTime)
	}
	if n := got.Schedule.Naps[0].DurationMinutes; n != napDurationMax {
		t.Fatalf("nap duration = %d, want clamp to %d", n, napDurationMax)
	}
	if d := got.Schedule.Naps[0].Description; d != "" {
		t.Fatalf("empty nap description should stay absent, got %q", d)
	}
	if d := got.Schedule.Meals[0].Description; d != emptyDescriptionPlaceholder {
		t.Fatalf("meal description = %q, want placeholder", d)
	}
	if n := got.Schedule.Activities[0].DurationMinutes; n != activityDurationMin {
		t.Fatalf("activity duration = %d, want clamp to %d", n, activityDurationMin)
	}
	if got.Objectives[0] != "Sleep through the night" {
		t.Fatalf("objectives = %v", got.Objectives)
	}
}

func TestNormalizeGeneratedPlan_MissingBedtimeGetsDefault(t *testing.T) {
	raw := decode(t, `{"schedule": {"wakeTime": "07:30"}}`)
	got := NormalizeGeneratedPlan(raw)
	if got.Schedule.Bedtime != DefaultBedtime {
		t.Fatalf("bedtime = %q, want %q", got.Schedule.Bedtime, DefaultBedtime)
	}
	if got.Schedule.WakeTime != "07:30" {
		t.Fatalf("wakeTime = %q, want pass-through", got.Schedule.WakeTime)
	}
}
