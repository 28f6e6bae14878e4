package drops

import (
	"context"
	"fmt"
	"testing"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
)

type bucketArt struct {
	uploaded map[int64]bool
	heads    int
}

func (a *bucketArt) HasAvatar(ctx context.Context, mapperID int64) bool {
	a.heads++
	return a.uploaded[mapperID]
}

func (a *bucketArt) AvatarURL(mapperID int64) string {
	return fmt.Sprintf("https://cdn.example/mappers/%d.png", mapperID)
}

func TestResolveArt(t *testing.T) {
	art := &bucketArt{uploaded: map[int64]bool{2: true}}
	svc := &Service{art: art}
	ctx := context.Background()

	t.Run("mapper row URL wins", func(t *testing.T) {
		got := svc.resolveArt(ctx, &models.Mapper{ID: 1, AvatarURL: "https://a.ppy.sh/1"})
		if got != "https://a.ppy.sh/1" {
			t.Errorf("resolveArt = %q, want the mapper's own URL", got)
		}
	})

	t.Run("falls back to the bucket", func(t *testing.T) {
		got := svc.resolveArt(ctx, &models.Mapper{ID: 2})
		if got != "https://cdn.example/mappers/2.png" {
			t.Errorf("resolveArt = %q, want the bucket URL", got)
		}
	})

	t.Run("no art anywhere", func(t *testing.T) {
		if got := svc.resolveArt(ctx, &models.Mapper{ID: 3}); got != "" {
			t.Errorf("resolveArt = %q, want empty", got)
		}
	})

	t.Run("nil resolver", func(t *testing.T) {
		bare := &Service{}
		if got := bare.resolveArt(ctx, &models.Mapper{ID: 2}); got != "" {
			t.Errorf("resolveArt = %q, want empty without a resolver", got)
		}
	})

	t.Run("row URL never hits the bucket", func(t *testing.T) {
		before := art.heads
		svc.resolveArt(ctx, &models.Mapper{ID: 4, AvatarURL: "https://a.ppy.sh/4"})
		if art.heads != before {
			t.Error("resolveArt consulted the bucket despite a row URL")
		}
	})
}
