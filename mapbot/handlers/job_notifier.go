package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

// JobNotifier posts finished shift outcomes back to the channel the
// shift was started from, falling back to a DM when the channel is
// unknown or the send fails.
type JobNotifier struct {
	client bot.Client
}

func NewJobNotifier(client bot.Client) *JobNotifier {
	return &JobNotifier{client: client}
}

func (n *JobNotifier) NotifyJobOutcome(_ context.Context, userID, guildID, channelID string, lines []string) error {
	msg := discord.MessageCreate{
		Content: fmt.Sprintf("<@%s>", userID),
		Embeds: []discord.Embed{{
			Title:       "Shift report",
			Description: strings.Join(lines, "\n"),
			Color:       utils.InfoColor,
		}},
	}

	if channelID != "" {
		if id, err := snowflake.Parse(channelID); err == nil {
			if _, err = n.client.Rest().CreateMessage(id, msg); err == nil {
				return nil
			}
		}
	}

	uid, err := snowflake.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	dmChannel, err := n.client.Rest().CreateDMChannel(uid)
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	if _, err = n.client.Rest().CreateMessage(dmChannel.ID(), msg); err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}
	return nil
}
