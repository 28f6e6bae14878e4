package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/uptrace/bun"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindOrCreate(ctx context.Context, id, username string) (*models.User, error)
	SetReminderEnabled(ctx context.Context, id string, enabled bool) error
	SetGamblingWarningShown(ctx context.Context, id string) error
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", ID: id}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindOrCreate upserts the user on every interaction so the cached
// username stays current.
func (r *userRepository) FindOrCreate(ctx context.Context, id, username string) (*models.User, error) {
	user := &models.User{
		ID:        id,
		Username:  username,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *userRepository) SetReminderEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("reminder_enabled = ?", enabled).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update reminder preference: %w", err)
	}
	return nil
}

func (r *userRepository) SetGamblingWarningShown(ctx context.Context, id string) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("gambling_warning_shown = true").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update gambling warning flag: %w", err)
	}
	return nil
}
