// Package eventlog records user actions for audits. Logging is fire
// and forget: a failed insert is logged and swallowed so it can never
// abort the mutation it describes.
package eventlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/uptrace/bun"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Log appends one event row and mirrors it to the structured log.
// payload must be JSON-marshalable; nil is fine.
func (s *Service) Log(ctx context.Context, userID, username, action string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			slog.Error("Failed to marshal event payload",
				slog.String("type", "sys"),
				slog.String("action", action),
				slog.Any("error", err))
			return
		}
		raw = b
	}

	slog.Info("Event",
		slog.String("type", "cmd"),
		slog.String("action", action),
		slog.String("user_id", userID),
		slog.String("username", username),
		slog.String("payload", string(raw)))

	_, err := s.db.NewInsert().
		Model(&models.EventLog{
			UserID:    userID,
			Username:  username,
			Action:    action,
			Payload:   raw,
			CreatedAt: time.Now(),
		}).
		Exec(ctx)
	if err != nil {
		slog.Error("Failed to persist event",
			slog.String("type", "db"),
			slog.String("action", action),
			slog.Any("error", err))
	}
}
