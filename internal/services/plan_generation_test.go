package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/apierr"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/clients/openai"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/normalization"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/requestdata"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

type generationFixture struct {
	lifecycleFixture
	ai     *fakeAIClient
	aiLogs *fakeAILogRepo
	svc    PlanGenerationService
}

func newGenerationFixture(t *testing.T, ai *fakeAIClient) *generationFixture {
	t.Helper()
	lf := newLifecycleFixture(t)
	aiLogs := &fakeAILogRepo{}
	f := &generationFixture{
		lifecycleFixture: *lf,
		ai:               ai,
		aiLogs:           aiLogs,
	}
	f.svc = NewPlanGenerationService(
		testLogger(t),
		f.childRepo,
		aiLogs,
		ai,
		&fakeKnowledge{excerpts: []string{"toddlers settle faster with a fixed routine"}},
		f.lifecycleFixture.svc,
	)
	return f
}

func (f *generationFixture) setSurvey(t *testing.T, survey map[string]any) {
	t.Helper()
	raw, err := json.Marshal(survey)
	if err != nil {
		t.Fatalf("marshal survey: %v", err)
	}
	f.childRepo.mu.Lock()
	f.childRepo.children[f.childID].SurveyData = datatypes.JSON(raw)
	f.childRepo.mu.Unlock()
}

func TestGenerateDraftFillsMissingFields(t *testing.T) {
	// The model response drops bedtime and sends a garbage nap entry; the
	// stored draft still ends up fully populated.
	ai := &fakeAIClient{response: map[string]any{
		"schedule": map[string]any{
			"wakeTime": "06:45",
			"naps":     []any{map[string]any{"time": "bad-time", "duration": 999}},
		},
		"objectives": []any{"consistent bedtime routine"},
	}}
	f := newGenerationFixture(t, ai)
	f.setSurvey(t, map[string]any{"bedtime": "20:00", "takesNaps": true})

	plan, err := f.svc.GenerateDraft(f.ctx, f.childID, GenerateDraftInput{PlanType: types.PlanTypeInitial})
	if err != nil {
		t.Fatalf("GenerateDraft: %v", err)
	}
	if plan.Status != types.PlanStatusDraft {
		t.Fatalf("status = %s, want draft", plan.Status)
	}
	if plan.Schedule.Bedtime != normalization.DefaultBedtime {
		t.Fatalf("bedtime = %s, want default %s", plan.Schedule.Bedtime, normalization.DefaultBedtime)
	}
	if plan.Schedule.WakeTime != "06:45" {
		t.Fatalf("wakeTime = %s, want 06:45", plan.Schedule.WakeTime)
	}
	if len(plan.Schedule.Naps) != 1 || plan.Schedule.Naps[0].DurationMinutes != 180 || plan.Schedule.Naps[0].Time != "14:00" {
		t.Fatalf("naps not normalized: %+v", plan.Schedule.Naps)
	}
	if len(plan.Objectives) == 0 || len(plan.Recommendations) == 0 {
		t.Fatalf("objectives/recommendations must never be empty: %+v / %+v", plan.Objectives, plan.Recommendations)
	}

	var provenance map[string]any
	if err := json.Unmarshal(plan.SourceData, &provenance); err != nil {
		t.Fatalf("sourceData is not JSON: %v", err)
	}
	if provenance["promptVersion"] != PromptVersion {
		t.Fatalf("promptVersion = %v, want %s", provenance["promptVersion"], PromptVersion)
	}
	if provenance["model"] != "fake-model" {
		t.Fatalf("model = %v, want fake-model", provenance["model"])
	}
	stats, _ := provenance["statistics"].(map[string]any)
	if stats["source"] != StatsSourceSurveyFallback {
		t.Fatalf("stats source = %v, want %s", stats["source"], StatsSourceSurveyFallback)
	}
	if stats["avgBedtime"] != "20:00" {
		t.Fatalf("fallback stats should carry the declared bedtime, got %v", stats["avgBedtime"])
	}

	if len(f.aiLogs.entries) != 1 || !f.aiLogs.entries[0].Success {
		t.Fatalf("expected one successful call log, got %+v", f.aiLogs.entries)
	}
	if logged := f.aiLogs.entries[0].PlanID; logged == nil || *logged != plan.ID {
		t.Fatalf("call log plan id = %v, want %s", logged, plan.ID)
	}
}

func TestGenerateDraftUsesEnrichedStats(t *testing.T) {
	ai := &fakeAIClient{response: map[string]any{}}
	f := newGenerationFixture(t, ai)

	enriched := &SleepStatistics{
		AvgBedtime:    "21:15",
		AvgWakeTime:   "06:30",
		NapsPerDay:    1,
		AvgNapMinutes: 75,
		NightWakings:  2,
	}
	plan, err := f.svc.GenerateDraft(f.ctx, f.childID, GenerateDraftInput{
		PlanType:      types.PlanTypeEventBased,
		EnrichedStats: enriched,
	})
	if err != nil {
		t.Fatalf("GenerateDraft: %v", err)
	}

	var provenance map[string]any
	if err := json.Unmarshal(plan.SourceData, &provenance); err != nil {
		t.Fatalf("sourceData: %v", err)
	}
	stats, _ := provenance["statistics"].(map[string]any)
	if stats["avgBedtime"] != "21:15" || stats["source"] != StatsSourceEvents {
		t.Fatalf("enriched stats not recorded: %+v", stats)
	}
}

func TestGenerateDraftFailsClosed(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"misconfigured", fmt.Errorf("generate: %w", openai.ErrMisconfigured), apierr.CodeLLMMisconfig},
		{"unavailable", fmt.Errorf("generate: %w", openai.ErrUnavailable), apierr.CodeLLMUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGenerationFixture(t, &fakeAIClient{err: tt.err})

			_, err := f.svc.GenerateDraft(f.ctx, f.childID, GenerateDraftInput{PlanType: types.PlanTypeInitial})
			wantAPIErrCode(t, err, tt.wantCode)

			if n := f.planRepo.size(); n != 0 {
				t.Fatalf("stored %d plans after a failed call, want 0", n)
			}
			if len(f.aiLogs.entries) != 1 || f.aiLogs.entries[0].Success {
				t.Fatalf("expected one failed call log, got %+v", f.aiLogs.entries)
			}
			if f.aiLogs.entries[0].PlanID != nil {
				t.Fatalf("failed call must not reference a plan, got %v", f.aiLogs.entries[0].PlanID)
			}
		})
	}
}

func TestGenerateDraftValidation(t *testing.T) {
	f := newGenerationFixture(t, &fakeAIClient{response: map[string]any{}})

	_, err := f.svc.GenerateDraft(f.ctx, f.childID, GenerateDraftInput{PlanType: "monthly"})
	wantAPIErrCode(t, err, apierr.CodeValidation)
	if f.ai.calls != 0 {
		t.Fatalf("provider called %d times for an invalid request, want 0", f.ai.calls)
	}

	strangerCtx := ctxFor(uuid.New(), requestdata.RoleParent)
	_, err = f.svc.GenerateDraft(strangerCtx, f.childID, GenerateDraftInput{PlanType: types.PlanTypeInitial})
	wantAPIErrCode(t, err, apierr.CodeNotFound)
	if f.ai.calls != 0 {
		t.Fatalf("provider called %d times for a foreign child, want 0", f.ai.calls)
	}
}

func TestGenerateDraftBasePlanProvenance(t *testing.T) {
	ai := &fakeAIClient{response: map[string]any{}}
	f := newGenerationFixture(t, ai)

	base, err := f.lifecycleFixture.svc.CreateDraft(f.ctx, f.childID, CreateDraftInput{PlanType: types.PlanTypeInitial})
	if err != nil {
		t.Fatalf("create base: %v", err)
	}
	from := time.Now().AddDate(0, 0, -14)
	plan, err := f.svc.GenerateDraft(f.ctx, f.childID, GenerateDraftInput{
		PlanType:   types.PlanTypeTranscriptRefinement,
		BasePlanID: &base.ID,
		Window:     PlanWindow{From: &from},
	})
	if err != nil {
		t.Fatalf("GenerateDraft: %v", err)
	}
	if plan.BasePlanID == nil || *plan.BasePlanID != base.ID {
		t.Fatalf("basePlanId = %v, want %s", plan.BasePlanID, base.ID)
	}
	if plan.PlanNumber != base.PlanNumber+1 {
		t.Fatalf("plan number = %d, want %d", plan.PlanNumber, base.PlanNumber+1)
	}
}
