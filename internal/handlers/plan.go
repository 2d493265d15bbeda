package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/apierr"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/services"
)

type PlanHandler struct {
	log        *logger.Logger
	planSvc    services.PlanService
	generation services.PlanGenerationService
}

func NewPlanHandler(log *logger.Logger, planSvc services.PlanService, generation services.PlanGenerationService) *PlanHandler {
	return &PlanHandler{
		log:        log.With("handler", "PlanHandler"),
		planSvc:    planSvc,
		generation: generation,
	}
}

// parseIDParam treats a malformed uuid the same as a missing resource so the
// API never leaks which ids are syntactically valid.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusNotFound, apierr.CodeNotFound, name+" not found")
		return uuid.Nil, false
	}
	return id, true
}

// List returns the child's plans plus, separately, the currently active one.
// Optional query params: status (comma-separated), limit.
func (h *PlanHandler) List(c *gin.Context) {
	childID, ok := parseIDParam(c, "childId")
	if !ok {
		return
	}

	var statuses []string
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	items, err := h.planSvc.List(ctx, childID, statuses, limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	active, err := h.planSvc.GetActive(ctx, childID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"items": items, "active": active})
}

type createPlanRequest struct {
	PlanType   string     `json:"planType"`
	BasePlanID *uuid.UUID `json:"basePlanId"`
}

// Create inserts an empty draft with the default schedule; generation is the
// separate /generate route.
func (h *PlanHandler) Create(c *gin.Context) {
	childID, ok := parseIDParam(c, "childId")
	if !ok {
		return
	}
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request body")
		return
	}
	plan, err := h.planSvc.CreateDraft(c.Request.Context(), childID, services.CreateDraftInput{
		PlanType:   req.PlanType,
		BasePlanID: req.BasePlanID,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"plan": plan})
}

type generatePlanRequest struct {
	PlanType   string     `json:"planType"`
	BasePlanID *uuid.UUID `json:"basePlanId"`
	From       *time.Time `json:"from"`
	To         *time.Time `json:"to"`
}

func (h *PlanHandler) Generate(c *gin.Context) {
	childID, ok := parseIDParam(c, "childId")
	if !ok {
		return
	}
	var req generatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request body")
		return
	}
	plan, err := h.generation.GenerateDraft(c.Request.Context(), childID, services.GenerateDraftInput{
		PlanType:   req.PlanType,
		BasePlanID: req.BasePlanID,
		Window:     services.PlanWindow{From: req.From, To: req.To},
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"plan": plan})
}

func (h *PlanHandler) Apply(c *gin.Context) {
	childID, ok := parseIDParam(c, "childId")
	if !ok {
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}
	result, err := h.planSvc.Apply(c.Request.Context(), childID, planID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": result.Plan, "completedPrev": result.CompletedPrev})
}

func (h *PlanHandler) Complete(c *gin.Context) {
	childID, ok := parseIDParam(c, "childId")
	if !ok {
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}
	plan, err := h.planSvc.Complete(c.Request.Context(), childID, planID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan})
}

func (h *PlanHandler) Supersede(c *gin.Context) {
	childID, ok := parseIDParam(c, "childId")
	if !ok {
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}
	plan, err := h.planSvc.Supersede(c.Request.Context(), childID, planID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan})
}
