package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/apierr"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/repos"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/requestdata"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

type ChildService interface {
	Create(ctx context.Context, input CreateChildInput) (*types.Child, error)
	Get(ctx context.Context, childID uuid.UUID) (*types.Child, error)
	List(ctx context.Context) ([]*types.Child, error)
}

type CreateChildInput struct {
	FirstName  string
	BirthDate  time.Time
	SurveyData map[string]any
}

type childService struct {
	db        *gorm.DB
	log       *logger.Logger
	childRepo repos.ChildRepo
}

func NewChildService(db *gorm.DB, baseLog *logger.Logger, childRepo repos.ChildRepo) ChildService {
	return &childService{
		db:        db,
		log:       baseLog.With("service", "ChildService"),
		childRepo: childRepo,
	}
}

func (s *childService) Create(ctx context.Context, input CreateChildInput) (*types.Child, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("not authenticated")
	}
	if input.FirstName == "" {
		return nil, apierr.Validation("firstName is required")
	}
	if input.BirthDate.IsZero() || input.BirthDate.After(time.Now()) {
		return nil, apierr.Validation("birthDate must be in the past")
	}

	survey := datatypes.JSON([]byte("{}"))
	if input.SurveyData != nil {
		raw, err := json.Marshal(input.SurveyData)
		if err != nil {
			return nil, apierr.Validation("surveyData is not serializable")
		}
		survey = datatypes.JSON(raw)
	}

	child := &types.Child{
		ID:         uuid.New(),
		UserID:     rd.UserID,
		FirstName:  input.FirstName,
		BirthDate:  input.BirthDate,
		SurveyData: survey,
	}
	created, err := s.childRepo.Create(ctx, nil, child)
	if err != nil {
		return nil, mapStoreErr(s.log, "Create", err)
	}
	return created, nil
}

// List returns the caller's own children, oldest record first.
func (s *childService) List(ctx context.Context) ([]*types.Child, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("not authenticated")
	}
	children, err := s.childRepo.GetByUserID(ctx, nil, rd.UserID)
	if err != nil {
		return nil, mapStoreErr(s.log, "List", err)
	}
	return children, nil
}

func (s *childService) Get(ctx context.Context, childID uuid.UUID) (*types.Child, error) {
	child, err := authorizeChild(ctx, s.childRepo, childID)
	if err != nil {
		return nil, mapStoreErr(s.log, "Get", err)
	}
	return child, nil
}
