package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

// UserStatsRepository provides access to the per-user page counters
type UserStatsRepository struct {
	db *gorm.DB
}

// NewUserStatsRepository creates a new user stats repository instance
func NewUserStatsRepository(db *gorm.DB) *UserStatsRepository {
	return &UserStatsRepository{db: db}
}

// Get retrieves the stats record for the given user, returning a zeroed
// record when none exists yet.
func (r *UserStatsRepository) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.db.WithContext(ctx).Where(&models.UserStats{UserID: userID}).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &stats, nil
}

// AddPagesSucceed increases the succeeded-pages counter by the given amount
// and returns the updated record.
func (r *UserStatsRepository) AddPagesSucceed(ctx context.Context, userID string, pages int) (*models.UserStats, error) {
	return r.add(ctx, userID, "pages_succeed", pages)
}

// AddPagesFailed increases the failed-pages counter by the given amount and
// returns the updated record.
func (r *UserStatsRepository) AddPagesFailed(ctx context.Context, userID string, pages int) (*models.UserStats, error) {
	return r.add(ctx, userID, "pages_failed", pages)
}

// add increments a counter column in place. Counters only ever grow, so the
// increment is expressed on the database side instead of read-modify-write.
func (r *UserStatsRepository) add(ctx context.Context, userID string, column string, pages int) (*models.UserStats, error) {
	if pages < 0 {
		return nil, fmt.Errorf("page amount must not be negative: %d", pages)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stats models.UserStats
		err := tx.Where(&models.UserStats{UserID: userID}).First(&stats).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(&models.UserStats{UserID: userID}).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return tx.Model(&models.UserStats{}).
			Where(&models.UserStats{UserID: userID}).
			Update(column, gorm.Expr(column+" + ?", pages)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to increase %s: %w", column, err)
	}
	return r.Get(ctx, userID)
}
