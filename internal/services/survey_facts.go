package services

import (
	"regexp"
	"strings"
)

// UnknownMarker is used wherever a survey answer is missing or unusable.
// Facts never throw away a prompt because a family skipped a question.
const UnknownMarker = "unknown"

var factTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// SurveyFacts is the compact summary of the parent survey fed to the prompt.
type SurveyFacts struct {
	DeclaredBedtime string   `json:"declaredBedtime"`
	BedtimeRoutine  string   `json:"bedtimeRoutine"`
	TakesNaps       string   `json:"takesNaps"`
	SleepLocation   string   `json:"sleepLocation"`
	MealSchedule    string   `json:"mealSchedule"`
	Goals           []string `json:"goals"`
}

// SleepStatistics summarizes observed (or assumed) sleep behavior. Source is
// "events" when derived from event data, "survey_fallback" when derived from
// facts alone.
type SleepStatistics struct {
	AvgBedtime    string `json:"avgBedtime"`
	AvgWakeTime   string `json:"avgWakeTime"`
	NapsPerDay    int    `json:"napsPerDay"`
	AvgNapMinutes int    `json:"avgNapMinutes"`
	NightWakings  int    `json:"nightWakings"`
	Source        string `json:"source"`
}

const (
	StatsSourceEvents         = "events"
	StatsSourceSurveyFallback = "survey_fallback"
)

// BuildSurveyFacts derives facts from raw survey answers. Missing or
// malformed fields become UnknownMarker instead of errors.
func BuildSurveyFacts(survey map[string]any) SurveyFacts {
	facts := SurveyFacts{
		DeclaredBedtime: factString(survey, "bedtime"),
		BedtimeRoutine:  factString(survey, "bedtimeRoutine"),
		TakesNaps:       factBool(survey, "takesNaps"),
		SleepLocation:   factString(survey, "sleepLocation"),
		MealSchedule:    factString(survey, "mealSchedule"),
		Goals:           factStringList(survey, "goals"),
	}
	if facts.DeclaredBedtime != UnknownMarker && !factTimePattern.MatchString(facts.DeclaredBedtime) {
		facts.DeclaredBedtime = UnknownMarker
	}
	return facts
}

// WeakStatsFromFacts is the fallback when no event-derived statistics are
// available: zero naps if the family declared none, one assumed nap
// otherwise.
func WeakStatsFromFacts(facts SurveyFacts) SleepStatistics {
	stats := SleepStatistics{
		AvgBedtime:    "20:30",
		AvgWakeTime:   "07:00",
		NapsPerDay:    1,
		AvgNapMinutes: 90,
		NightWakings:  0,
		Source:        StatsSourceSurveyFallback,
	}
	if facts.DeclaredBedtime != UnknownMarker {
		stats.AvgBedtime = facts.DeclaredBedtime
	}
	if facts.TakesNaps == "no" {
		stats.NapsPerDay = 0
		stats.AvgNapMinutes = 0
	}
	return stats
}

// AgePolicy captures the age-banded constraints included in the prompt.
type AgePolicy struct {
	NapsPerDay      int    `json:"napsPerDay"`
	BedtimeEarliest string `json:"bedtimeEarliest"`
	BedtimeLatest   string `json:"bedtimeLatest"`
	Guidance        string `json:"guidance"`
}

func AgePolicyFor(ageMonths int) AgePolicy {
	switch {
	case ageMonths < 6:
		return AgePolicy{NapsPerDay: 3, BedtimeEarliest: "19:00", BedtimeLatest: "21:00", Guidance: "infants need 3+ naps; schedules stay flexible"}
	case ageMonths < 12:
		return AgePolicy{NapsPerDay: 2, BedtimeEarliest: "19:00", BedtimeLatest: "20:30", Guidance: "two naps, consistent pre-sleep routine"}
	case ageMonths < 24:
		return AgePolicy{NapsPerDay: 1, BedtimeEarliest: "19:30", BedtimeLatest: "20:30", Guidance: "single early-afternoon nap"}
	case ageMonths < 60:
		return AgePolicy{NapsPerDay: 1, BedtimeEarliest: "19:30", BedtimeLatest: "21:00", Guidance: "optional short nap, wind-down hour before bed"}
	default:
		return AgePolicy{NapsPerDay: 0, BedtimeEarliest: "20:00", BedtimeLatest: "21:30", Guidance: "no daytime naps, steady bedtime"}
	}
}

func factString(survey map[string]any, key string) string {
	if survey == nil {
		return UnknownMarker
	}
	if s, ok := survey[key].(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return UnknownMarker
}

// factBool accepts booleans and common yes/no spellings and reports
// "yes", "no", or UnknownMarker.
func factBool(survey map[string]any, key string) string {
	if survey == nil {
		return UnknownMarker
	}
	switch t := survey[key].(type) {
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "si", "sí":
			return "yes"
		case "no", "false":
			return "no"
		}
	}
	return UnknownMarker
}

func factStringList(survey map[string]any, key string) []string {
	if survey == nil {
		return []string{UnknownMarker}
	}
	out := []string{}
	switch t := survey[key].(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{UnknownMarker}
	}
	return out
}
