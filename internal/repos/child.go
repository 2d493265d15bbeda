package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

type ChildRepo interface {
	Create(ctx context.Context, tx *gorm.DB, child *types.Child) (*types.Child, error)
	GetByID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*types.Child, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Child, error)
}

type childRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChildRepo(db *gorm.DB, baseLog *logger.Logger) ChildRepo {
	return &childRepo{db: db, log: baseLog.With("repo", "ChildRepo")}
}

func (r *childRepo) Create(ctx context.Context, tx *gorm.DB, child *types.Child) (*types.Child, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if child == nil {
		return nil, errors.New("child required")
	}
	if err := transaction.WithContext(ctx).Create(child).Error; err != nil {
		return nil, err
	}
	return child, nil
}

func (r *childRepo) GetByID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*types.Child, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var child types.Child
	err := transaction.WithContext(ctx).
		Where("id = ?", childID).
		First(&child).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &child, nil
}

func (r *childRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Child, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Child
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
