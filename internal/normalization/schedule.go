package normalization

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

// NormalizeGeneratedPlan turns whatever the generation provider returned into
// a fully populated, schema-valid plan. It is total: any input, including nil,
// produces a valid result and it never panics.

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

const (
	DefaultBedtime      = "20:30"
	DefaultWakeTime     = "07:00"
	defaultMealTime     = "07:30"
	defaultActivityTime = "17:00"
	defaultNapTime      = "14:00"

	napDurationMin     = 20
	napDurationMax     = 180
	napDurationDefault = 90

	activityDurationMin     = 5
	activityDurationMax     = 180
	activityDurationDefault = 30

	emptyDescriptionPlaceholder = "—"
)

var defaultObjectives = []string{
	"Establish a consistent and predictable sleep routine.",
}

var defaultRecommendations = []string{
	"Keep the bedtime routine calm and consistent every night.",
	"Avoid screens for at least one hour before bedtime.",
}

type GeneratedPlan struct {
	Schedule        types.PlanSchedule
	Objectives      []string
	Recommendations []string
}

func NormalizeGeneratedPlan(raw map[string]any) GeneratedPlan {
	schedule := asMap(raw["schedule"])

	out := GeneratedPlan{
		Schedule: types.PlanSchedule{
			Bedtime:    normalizeTime(schedule["bedtime"], DefaultBedtime),
			WakeTime:   normalizeTime(schedule["wakeTime"], DefaultWakeTime),
			Naps:       normalizeNaps(schedule["naps"]),
			Meals:      normalizeMeals(schedule["meals"]),
			Activities: normalizeActivities(schedule["activities"]),
		},
		Objectives:      normalizeStringList(raw["objectives"], defaultObjectives),
		Recommendations: normalizeStringList(raw["recommendations"], defaultRecommendations),
	}
	return out
}

func normalizeNaps(v any) []types.PlanNap {
	items := asSlice(v)
	naps := make([]types.PlanNap, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		naps = append(naps, types.PlanNap{
			Time:            normalizeTime(m["time"], defaultNapTime),
			DurationMinutes: clampInt(m["duration"], napDurationMin, napDurationMax, napDurationDefault),
			Description:     coerceString(m["description"]),
		})
	}
	return naps
}

func normalizeMeals(v any) []types.PlanMeal {
	items := asSlice(v)
	meals := make([]types.PlanMeal, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		mealType := coerceString(m["type"])
		if mealType == "" {
			mealType = "meal"
		}
		description := coerceString(m["description"])
		if description == "" {
			description = emptyDescriptionPlaceholder
		}
		meals = append(meals, types.PlanMeal{
			Time:        normalizeTime(m["time"], defaultMealTime),
			Type:        mealType,
			Description: description,
		})
	}
	return meals
}

func normalizeActivities(v any) []types.PlanActivity {
	items := asSlice(v)
	activities := make([]types.PlanActivity, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		name := coerceString(m["activity"])
		if name == "" {
			name = "quiet play"
		}
		activities = append(activities, types.PlanActivity{
			Time:            normalizeTime(m["time"], defaultActivityTime),
			Activity:        name,
			DurationMinutes: clampInt(m["duration"], activityDurationMin, activityDurationMax, activityDurationDefault),
			Description:     coerceString(m["description"]),
		})
	}
	return activities
}

func normalizeStringList(v any, fallback []string) []string {
	items := asSlice(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		s := coerceString(item)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		out = append(out, fallback...)
	}
	return out
}

func normalizeTime(v any, def string) string {
	s := coerceString(v)
	if timePattern.MatchString(s) {
		return s
	}
	return def
}

// clampInt accepts JSON numbers, ints, and numeric strings; anything else
// falls back to def.
func clampInt(v any, min, max, def int) int {
	n := def
	switch t := v.(type) {
	case float64:
		n = int(t)
	case float32:
		n = int(t)
	case int:
		n = t
	case int64:
		n = int(t)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			n = parsed
		}
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, float32, int, int64, bool:
		return strings.TrimSpace(fmt.Sprint(t))
	default:
		return ""
	}
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}
