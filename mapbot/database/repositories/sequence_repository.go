package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/uptrace/bun"
)

type SequenceRepository interface {
	NextBlock(ctx context.Context, count int) ([]int64, error)
}

type sequenceRepository struct {
	db *bun.DB
}

func NewSequenceRepository(db *bun.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

// NextBlock claims a contiguous block of card ids. The counter row is
// locked for the duration of a short dedicated transaction so unrelated
// drops contend on a single fast update instead of serializing
// card-by-card.
func (r *sequenceRepository) NextBlock(ctx context.Context, count int) ([]int64, error) {
	if count <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", count)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to start sequence transaction: %w", err)
	}
	defer tx.Rollback()

	sequence := new(models.CardSequence)
	err = tx.NewSelect().
		Model(sequence).
		Where("id = 0").
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "card sequence", ID: 0}
		}
		return nil, fmt.Errorf("failed to lock card sequence: %w", err)
	}

	next := sequence.Value

	_, err = tx.NewUpdate().
		Model((*models.CardSequence)(nil)).
		Set("value = ?", next+int64(count)).
		Where("id = 0").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to advance card sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	ids := make([]int64, count)
	for i := range ids {
		ids[i] = next + int64(i)
	}
	return ids, nil
}
