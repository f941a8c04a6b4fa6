package repositories

import (
	"context"

	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/pkg/errors"
	"gorm.io/gorm"
)

type IslandRepository struct {
	db *gorm.DB
}

func NewIslandRepository(db *gorm.DB) *IslandRepository {
	return &IslandRepository{db: db}
}

// Save inserts the island or replaces every column of the stored row.
func (r *IslandRepository) Save(ctx context.Context, island *models.Island) error {
	if err := r.db.WithContext(ctx).Save(island).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to save island")
	}
	return nil
}

func (r *IslandRepository) GetByID(ctx context.Context, id string) (*models.Island, error) {
	var island models.Island
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&island).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrCodeNotFound, "island not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to get island")
	}
	return &island, nil
}

// Delete removes the island row. Deleting a missing island is not an error.
func (r *IslandRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Island{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to delete island")
	}
	return nil
}

func (r *IslandRepository) ListPublic(ctx context.Context, limit int) ([]models.Island, error) {
	var islands []models.Island
	q := r.db.WithContext(ctx).Where("is_public = ?", true).Order("last_activity DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&islands).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list public islands")
	}
	return islands, nil
}

func (r *IslandRepository) ListAll(ctx context.Context) ([]models.Island, error) {
	var islands []models.Island
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&islands).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list islands")
	}
	return islands, nil
}

func (r *IslandRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Island{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, errors.ErrCodePersistence, "failed to count islands")
	}
	return count, nil
}
