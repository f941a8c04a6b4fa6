package repositories

import (
	"context"

	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/pkg/errors"
	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Save(ctx context.Context, membership *models.PlayerMembership) error {
	if err := r.db.WithContext(ctx).Save(membership).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to save membership")
	}
	return nil
}

func (r *MembershipRepository) GetByPlayerID(ctx context.Context, playerID string) (*models.PlayerMembership, error) {
	var membership models.PlayerMembership
	if err := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&membership).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrCodeNotFound, "membership not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to get membership")
	}
	return &membership, nil
}

func (r *MembershipRepository) ListAll(ctx context.Context) ([]models.PlayerMembership, error) {
	var memberships []models.PlayerMembership
	if err := r.db.WithContext(ctx).Find(&memberships).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list memberships")
	}
	return memberships, nil
}

func (r *MembershipRepository) ListByIsland(ctx context.Context, islandID string) ([]models.PlayerMembership, error) {
	var memberships []models.PlayerMembership
	if err := r.db.WithContext(ctx).Where("current_island_id = ?", islandID).Find(&memberships).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list island memberships")
	}
	return memberships, nil
}
