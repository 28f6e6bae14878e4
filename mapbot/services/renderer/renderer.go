package renderer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
)

const (
	renderTimeout      = 15 * time.Second
	maxParallelRenders = 4
	cacheSize          = 256
)

// CardRenderer turns cards into PNG frames by screenshotting an HTML
// template in a headless browser. Rendered frames are cached by a key
// that covers every visual attribute, so a condition upgrade or foil
// change invalidates naturally.
type CardRenderer struct {
	logger *slog.Logger
	cache  *lru.Cache
}

type cardData struct {
	Username    string
	AvatarURL   string
	Condition   string
	BorderColor template.CSS
	Code        string
	Rarity      int
	Foil        bool
}

func NewCardRenderer() (*CardRenderer, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create render cache: %w", err)
	}

	r := &CardRenderer{
		logger: slog.With(slog.String("service", "card_renderer")),
		cache:  cache,
	}
	r.testChromedpAvailability()
	return r, nil
}

func (r *CardRenderer) testChromedpAvailability() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chromedpCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	err := chromedp.Run(chromedpCtx, chromedp.Navigate("data:text/html,<html><body>test</body></html>"))
	if err != nil {
		r.logger.Error("chromedp not available, card rendering will fail",
			slog.String("error", err.Error()))
	}
}

// RenderCard produces a PNG frame for a single card. The card must
// have its Mapper and Condition relations loaded.
func (r *CardRenderer) RenderCard(ctx context.Context, card *models.Card) ([]byte, error) {
	key := renderKey(card)
	if cached, ok := r.cache.Get(key); ok {
		return cached.([]byte), nil
	}

	start := time.Now()
	htmlContent, err := r.generateHTML(card)
	if err != nil {
		return nil, fmt.Errorf("failed to generate card HTML: %w", err)
	}

	chromedpCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	chromedpCtx, cancel = context.WithTimeout(chromedpCtx, renderTimeout)
	defer cancel()

	var imageBytes []byte
	err = chromedp.Run(chromedpCtx,
		chromedp.Navigate("data:text/html,"+htmlContent),
		chromedp.WaitVisible("#card-container", chromedp.ByID),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.Screenshot("#card-container", &imageBytes, chromedp.ByID),
	)
	if err != nil {
		r.logger.Error("failed to render card",
			slog.String("card_id", card.ID),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("failed to render card %s: %w", card.ID, err)
	}

	r.cache.Add(key, imageBytes)
	r.logger.Debug("card rendered",
		slog.String("card_id", card.ID),
		slog.Int("image_size", len(imageBytes)),
		slog.Duration("elapsed", time.Since(start)))
	return imageBytes, nil
}

// RenderCards renders multiple cards in parallel. Results keep the
// input order. A single failed render fails the whole batch.
func (r *CardRenderer) RenderCards(ctx context.Context, cards []*models.Card) ([][]byte, error) {
	frames := make([][]byte, len(cards))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRenders)
	for i, card := range cards {
		i, card := i, card
		g.Go(func() error {
			frame, err := r.RenderCard(gCtx, card)
			if err != nil {
				return err
			}
			frames[i] = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

func (r *CardRenderer) generateHTML(card *models.Card) (string, error) {
	templatePath := filepath.Join("mapbot", "templates", "card.html")
	templateContent, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read card template: %w", err)
	}

	tmpl, err := template.New("card").Parse(string(templateContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse card template: %w", err)
	}

	rarity := 0
	if card.Mapper != nil {
		rarity = card.Mapper.Rarity
	}
	data := cardData{
		Username:    card.Username,
		AvatarURL:   card.AvatarURL,
		Condition:   card.ConditionID,
		BorderColor: conditionColor(card.ConditionID),
		Code:        card.ID,
		Rarity:      rarity,
		Foil:        card.Foil,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute card template: %w", err)
	}

	// data: URLs treat # as a fragment separator.
	htmlContent := strings.ReplaceAll(buf.String(), "#", "%23")
	htmlContent = strings.ReplaceAll(htmlContent, "\n", "")
	return htmlContent, nil
}

func renderKey(card *models.Card) string {
	return fmt.Sprintf("%s|%s|%t|%s", card.ID, card.ConditionID, card.Foil, card.AvatarURL)
}

func conditionColor(conditionID string) template.CSS {
	switch conditionID {
	case models.ConditionBadlyDamaged:
		return "#8a5a44"
	case models.ConditionPoor:
		return "#9aa0a6"
	case models.ConditionGood:
		return "#58a55c"
	case models.ConditionMint:
		return "#4d90fe"
	default:
		return "#9aa0a6"
	}
}
