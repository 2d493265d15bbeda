package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/apierr"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/services"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

type ChildHandler struct {
	log      *logger.Logger
	childSvc services.ChildService
}

func NewChildHandler(log *logger.Logger, childSvc services.ChildService) *ChildHandler {
	return &ChildHandler{
		log:      log.With("handler", "ChildHandler"),
		childSvc: childSvc,
	}
}

type createChildRequest struct {
	FirstName  string         `json:"firstName"`
	BirthDate  time.Time      `json:"birthDate"`
	SurveyData map[string]any `json:"surveyData"`
}

func (h *ChildHandler) Create(c *gin.Context) {
	var req createChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request body")
		return
	}
	child, err := h.childSvc.Create(c.Request.Context(), services.CreateChildInput{
		FirstName:  req.FirstName,
		BirthDate:  req.BirthDate,
		SurveyData: req.SurveyData,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"child": child})
}

func (h *ChildHandler) List(c *gin.Context) {
	children, err := h.childSvc.List(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if children == nil {
		children = []*types.Child{}
	}
	RespondOK(c, gin.H{"items": children})
}

func (h *ChildHandler) Get(c *gin.Context) {
	childID, ok := parseIDParam(c, "childId")
	if !ok {
		return
	}
	child, err := h.childSvc.Get(c.Request.Context(), childID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"child": child})
}
