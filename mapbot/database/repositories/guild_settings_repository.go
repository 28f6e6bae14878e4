package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/uptrace/bun"
)

type GuildSettingsRepository interface {
	Get(ctx context.Context, guildID string) (*models.GuildSettings, error)
	SetChannel(ctx context.Context, guildID, channelID string) error
	MarkSettingsHintPosted(ctx context.Context, guildID string) (bool, error)
}

type guildSettingsRepository struct {
	db *bun.DB
}

func NewGuildSettingsRepository(db *bun.DB) GuildSettingsRepository {
	return &guildSettingsRepository{db: db}
}

func (r *guildSettingsRepository) Get(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	settings := new(models.GuildSettings)
	err := r.db.NewSelect().
		Model(settings).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.GuildSettings{GuildID: guildID}, nil
		}
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}
	return settings, nil
}

func (r *guildSettingsRepository) SetChannel(ctx context.Context, guildID, channelID string) error {
	settings := &models.GuildSettings{GuildID: guildID, ChannelID: &channelID}
	_, err := r.db.NewInsert().
		Model(settings).
		On("CONFLICT (guild_id) DO UPDATE").
		Set("channel_id = EXCLUDED.channel_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set guild channel: %w", err)
	}
	return nil
}

// MarkSettingsHintPosted flips the one-time hint flag. Returns true if
// this call was the one that flipped it, so only a single hint is ever
// posted per guild even under concurrent drops.
func (r *guildSettingsRepository) MarkSettingsHintPosted(ctx context.Context, guildID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	settings := new(models.GuildSettings)
	err = tx.NewSelect().
		Model(settings).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to get guild settings: %w", err)
	}

	if err == nil && (settings.PostedSettingsHint || settings.ChannelID != nil) {
		return false, nil
	}

	settings.GuildID = guildID
	settings.PostedSettingsHint = true
	_, err = tx.NewInsert().
		Model(settings).
		On("CONFLICT (guild_id) DO UPDATE").
		Set("posted_settings_hint = true").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update guild settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit guild settings: %w", err)
	}
	return true, nil
}
