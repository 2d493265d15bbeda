package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/apierr"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/clients/openai"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/normalization"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/repos"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/requestdata"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

// PromptVersion tags every generated plan's provenance so prompt changes can
// be traced through stored plans.
const PromptVersion = "plan-prompt-v3"

const (
	maxKnowledgeExcerpts    = 3
	maxKnowledgeExcerptRune = 1200
)

// PlanWindow bounds the event window a generation run describes.
type PlanWindow struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

type GenerateDraftInput struct {
	PlanType      string
	BasePlanID    *uuid.UUID
	Window        PlanWindow
	EnrichedStats *SleepStatistics
}

// PlanGenerationService builds a new draft plan from survey facts,
// statistics, and knowledge excerpts via the generation provider. It fails
// closed: no provider response, no stored draft.
type PlanGenerationService interface {
	GenerateDraft(ctx context.Context, childID uuid.UUID, input GenerateDraftInput) (*types.Plan, error)
}

type planGenerationService struct {
	log       *logger.Logger
	childRepo repos.ChildRepo
	aiLogRepo repos.AICallLogRepo
	ai        openai.Client
	knowledge KnowledgeSource
	plans     PlanService
}

func NewPlanGenerationService(
	baseLog *logger.Logger,
	childRepo repos.ChildRepo,
	aiLogRepo repos.AICallLogRepo,
	ai openai.Client,
	knowledge KnowledgeSource,
	plans PlanService,
) PlanGenerationService {
	return &planGenerationService{
		log:       baseLog.With("service", "PlanGenerationService"),
		childRepo: childRepo,
		aiLogRepo: aiLogRepo,
		ai:        ai,
		knowledge: knowledge,
		plans:     plans,
	}
}

// sourceData is the provenance block stored on generated plans.
type sourceData struct {
	PromptVersion     string           `json:"promptVersion"`
	Model             string           `json:"model"`
	Attempts          int              `json:"attempts"`
	LatencyMS         int64            `json:"latencyMs"`
	Facts             SurveyFacts      `json:"facts"`
	Statistics        SleepStatistics  `json:"statistics"`
	KnowledgeExcerpts int              `json:"knowledgeExcerpts"`
	Window            PlanWindow       `json:"window"`
	AgeMonths         int              `json:"ageMonths"`
}

func (s *planGenerationService) GenerateDraft(ctx context.Context, childID uuid.UUID, input GenerateDraftInput) (*types.Plan, error) {
	if !types.IsValidPlanType(input.PlanType) {
		return nil, apierr.Validation(fmt.Sprintf("unknown planType %q", input.PlanType))
	}
	child, err := authorizeChild(ctx, s.childRepo, childID)
	if err != nil {
		return nil, mapStoreErr(s.log, "GenerateDraft", err)
	}

	var survey map[string]any
	if len(child.SurveyData) > 0 {
		if uErr := json.Unmarshal(child.SurveyData, &survey); uErr != nil {
			s.log.Warn("Survey data is not valid JSON, generating from unknowns",
				"child_id", childID, "error", uErr)
		}
	}

	facts := BuildSurveyFacts(survey)
	stats := WeakStatsFromFacts(facts)
	if input.EnrichedStats != nil {
		stats = *input.EnrichedStats
		if stats.Source == "" {
			stats.Source = StatsSourceEvents
		}
	}

	ageMonths := child.AgeInMonths(time.Now())
	policy := AgePolicyFor(ageMonths)

	excerpts := s.fetchExcerpts(ctx, facts, ageMonths)

	system, user := buildPlanPrompt(child.FirstName, ageMonths, policy, facts, stats, excerpts)

	start := time.Now()
	raw, genErr := s.ai.GenerateJSON(ctx, system, user, "sleep_plan", planResponseSchema())
	latency := time.Since(start).Milliseconds()

	if genErr != nil {
		s.logAICall(ctx, child, nil, genErr, latency)
		switch {
		case errors.Is(genErr, openai.ErrMisconfigured):
			return nil, apierr.New(http.StatusServiceUnavailable, apierr.CodeLLMMisconfig, genErr)
		case errors.Is(genErr, openai.ErrUnavailable):
			return nil, apierr.New(http.StatusServiceUnavailable, apierr.CodeLLMUnavailable, genErr)
		default:
			return nil, mapStoreErr(s.log, "GenerateDraft", genErr)
		}
	}

	generated := normalization.NormalizeGeneratedPlan(raw)

	provenance, mErr := json.Marshal(sourceData{
		PromptVersion:     PromptVersion,
		Model:             s.ai.Model(),
		Attempts:          1,
		LatencyMS:         latency,
		Facts:             facts,
		Statistics:        stats,
		KnowledgeExcerpts: len(excerpts),
		Window:            input.Window,
		AgeMonths:         ageMonths,
	})
	if mErr != nil {
		provenance = []byte("{}")
	}

	plan, err := s.plans.CreateDraft(ctx, childID, CreateDraftInput{
		PlanType:        input.PlanType,
		BasePlanID:      input.BasePlanID,
		Schedule:        &generated.Schedule,
		Objectives:      generated.Objectives,
		Recommendations: generated.Recommendations,
		SourceData:      datatypes.JSON(provenance),
	})
	if err != nil {
		s.logAICall(ctx, child, nil, nil, latency)
		return nil, err
	}
	s.logAICall(ctx, child, &plan.ID, nil, latency)

	s.log.Info("Generated draft plan",
		"child_id", childID,
		"plan_id", plan.ID,
		"plan_number", plan.PlanNumber,
		"latency_ms", latency,
	)
	return plan, nil
}

func (s *planGenerationService) fetchExcerpts(ctx context.Context, facts SurveyFacts, ageMonths int) []string {
	if s.knowledge == nil {
		return nil
	}
	query := fmt.Sprintf("sleep plan for a %d month old, goals: %s", ageMonths, strings.Join(facts.Goals, ", "))
	excerpts, err := s.knowledge.Excerpts(ctx, query, maxKnowledgeExcerpts)
	if err != nil {
		s.log.Warn("Knowledge source lookup failed, continuing without excerpts", "error", err)
		return nil
	}
	if len(excerpts) > maxKnowledgeExcerpts {
		excerpts = excerpts[:maxKnowledgeExcerpts]
	}
	for i, excerpt := range excerpts {
		runes := []rune(excerpt)
		if len(runes) > maxKnowledgeExcerptRune {
			excerpts[i] = string(runes[:maxKnowledgeExcerptRune])
		}
	}
	return excerpts
}

// logAICall records one provider round trip. planID is set once the draft
// the call produced has been stored; a generation that never reaches storage
// logs without one.
func (s *planGenerationService) logAICall(ctx context.Context, child *types.Child, planID *uuid.UUID, genErr error, latency int64) {
	if s.aiLogRepo == nil {
		return
	}
	rd := requestdata.GetRequestData(ctx)
	entry := &types.AICallLog{
		ID:            uuid.New(),
		ChildID:       &child.ID,
		PlanID:        planID,
		CallType:      "plan_generation",
		Model:         s.ai.Model(),
		PromptVersion: PromptVersion,
		Success:       genErr == nil,
		LatencyMS:     latency,
		Usage:         datatypes.JSON([]byte("{}")),
	}
	if rd != nil && rd.UserID != uuid.Nil {
		userID := rd.UserID
		entry.UserID = &userID
	}
	if genErr != nil {
		entry.Error = genErr.Error()
	}
	if _, err := s.aiLogRepo.Create(ctx, nil, []*types.AICallLog{entry}); err != nil {
		s.log.Warn("Failed to record AI call log", "error", err)
	}
}

func buildPlanPrompt(childName string, ageMonths int, policy AgePolicy, facts SurveyFacts, stats SleepStatistics, excerpts []string) (string, string) {
	system := strings.Join([]string{
		"You are a pediatric sleep consultant drafting a daily routine for a child.",
		"Respond with JSON only, matching the provided schema exactly.",
		"All times use 24-hour HH:MM. Durations are minutes.",
		"Keep the plan realistic and achievable for the family.",
	}, " ")

	factsJSON, _ := json.MarshalIndent(facts, "", "  ")
	statsJSON, _ := json.Marshal(stats)

	knowledge := "No external knowledge available."
	if len(excerpts) > 0 {
		knowledge = strings.Join(excerpts, "\n---\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Child: %s, age %d months.\n\n", childName, ageMonths)
	fmt.Fprintf(&b, "Survey facts:\n%s\n\n", factsJSON)
	fmt.Fprintf(&b, "Observed statistics (source=%s):\n%s\n\n", stats.Source, statsJSON)
	fmt.Fprintf(&b, "Age constraints: about %d nap(s) per day, bedtime between %s and %s. %s.\n\n",
		policy.NapsPerDay, policy.BedtimeEarliest, policy.BedtimeLatest, policy.Guidance)
	fmt.Fprintf(&b, "Knowledge excerpts:\n%s\n\n", knowledge)
	b.WriteString("Produce a full-day schedule (bedtime, wake time, naps, meals, activities), plus objectives and recommendations for the parents.")

	return system, b.String()
}

// planResponseSchema is the strict output schema sent with every generation
// request. The normalizer still treats the response as untrusted.
func planResponseSchema() map[string]any {
	timeProp := map[string]any{"type": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"schedule", "objectives", "recommendations"},
		"properties": map[string]any{
			"schedule": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"bedtime", "wakeTime", "naps", "meals", "activities"},
				"properties": map[string]any{
					"bedtime":  timeProp,
					"wakeTime": timeProp,
					"naps": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []string{"time", "duration"},
							"properties": map[string]any{
								"time":        timeProp,
								"duration":    map[string]any{"type": "integer"},
								"description": map[string]any{"type": "string"},
							},
						},
					},
					"meals": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []string{"time", "type", "description"},
							"properties": map[string]any{
								"time":        timeProp,
								"type":        map[string]any{"type": "string"},
								"description": map[string]any{"type": "string"},
							},
						},
					},
					"activities": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []string{"time", "activity", "duration"},
							"properties": map[string]any{
								"time":        timeProp,
								"activity":    map[string]any{"type": "string"},
								"duration":    map[string]any{"type": "integer"},
								"description": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
			"objectives": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"recommendations": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}
