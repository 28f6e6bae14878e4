package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/uptrace/bun"
)

type MapperRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Mapper, error)
	GetByUsername(ctx context.Context, username string) (*models.Mapper, error)
	GetActive(ctx context.Context) ([]*models.Mapper, error)
	GetActiveUsernames(ctx context.Context) ([]string, error)
	SetAvatarURL(ctx context.Context, id int64, url string) error
	GetWishlistedMapperIDs(ctx context.Context, userID string) (map[int64]bool, error)
	AddWishlistEntry(ctx context.Context, userID string, mapperID int64) error
	RemoveWishlistEntry(ctx context.Context, userID string, mapperID int64) (bool, error)
	GetWishlist(ctx context.Context, userID string) ([]*models.WishlistEntry, error)
}

type mapperRepository struct {
	db *bun.DB
}

func NewMapperRepository(db *bun.DB) MapperRepository {
	return &mapperRepository{db: db}
}

func (r *mapperRepository) GetByID(ctx context.Context, id int64) (*models.Mapper, error) {
	mapper := new(models.Mapper)
	err := r.db.NewSelect().
		Model(mapper).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "mapper", ID: id}
		}
		return nil, fmt.Errorf("failed to get mapper: %w", err)
	}
	return mapper, nil
}

func (r *mapperRepository) GetByUsername(ctx context.Context, username string) (*models.Mapper, error) {
	mapper := new(models.Mapper)
	err := r.db.NewSelect().
		Model(mapper).
		Where("LOWER(username) = LOWER(?)", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "mapper", ID: username}
		}
		return nil, fmt.Errorf("failed to get mapper: %w", err)
	}
	return mapper, nil
}

// GetActive returns all mappers eligible for drops.
func (r *mapperRepository) GetActive(ctx context.Context) ([]*models.Mapper, error) {
	var mappers []*models.Mapper
	err := r.db.NewSelect().
		Model(&mappers).
		Where("deleted = false").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active mappers: %w", err)
	}
	return mappers, nil
}

func (r *mapperRepository) GetActiveUsernames(ctx context.Context) ([]string, error) {
	var usernames []string
	err := r.db.NewSelect().
		Model((*models.Mapper)(nil)).
		Column("username").
		Where("deleted = false").
		Order("username ASC").
		Scan(ctx, &usernames)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapper usernames: %w", err)
	}
	return usernames, nil
}

// SetAvatarURL updates the art URL stamped onto future card mints.
// Cards already minted keep the URL they were created with.
func (r *mapperRepository) SetAvatarURL(ctx context.Context, id int64, url string) error {
	result, err := r.db.NewUpdate().
		Model((*models.Mapper)(nil)).
		Set("avatar_url = ?", url).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set mapper avatar: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return &NotFoundError{Entity: "mapper", ID: id}
	}
	return nil
}

func (r *mapperRepository) GetWishlistedMapperIDs(ctx context.Context, userID string) (map[int64]bool, error) {
	var mapperIDs []int64
	err := r.db.NewSelect().
		Model((*models.WishlistEntry)(nil)).
		Column("mapper_id").
		Where("user_id = ?", userID).
		Scan(ctx, &mapperIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}

	wishlisted := make(map[int64]bool, len(mapperIDs))
	for _, id := range mapperIDs {
		wishlisted[id] = true
	}
	return wishlisted, nil
}

func (r *mapperRepository) AddWishlistEntry(ctx context.Context, userID string, mapperID int64) error {
	exists, err := r.db.NewSelect().
		Model((*models.WishlistEntry)(nil)).
		Where("user_id = ? AND mapper_id = ?", userID, mapperID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check wishlist entry: %w", err)
	}
	if exists {
		return nil
	}

	_, err = r.db.NewInsert().
		Model(&models.WishlistEntry{UserID: userID, MapperID: mapperID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add wishlist entry: %w", err)
	}
	return nil
}

func (r *mapperRepository) RemoveWishlistEntry(ctx context.Context, userID string, mapperID int64) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*models.WishlistEntry)(nil)).
		Where("user_id = ? AND mapper_id = ?", userID, mapperID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to remove wishlist entry: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func (r *mapperRepository) GetWishlist(ctx context.Context, userID string) ([]*models.WishlistEntry, error) {
	var entries []*models.WishlistEntry
	err := r.db.NewSelect().
		Model(&entries).
		Relation("Mapper").
		Where("we.user_id = ?", userID).
		Order("we.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist entries: %w", err)
	}
	return entries, nil
}
