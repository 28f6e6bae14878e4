package utils

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

const (
	ErrorColor   = 0xFF5555
	SuccessColor = 0x55CC77
	InfoColor    = 0x5599FF
	WarningColor = 0xFFAA00
	GoldColor    = 0xFFD700
	DefaultColor = 0x2B2D31
)

// CreateError replies to a command with a plain red embed. The reply
// is ephemeral so failures do not clutter the channel.
func CreateError(e *handler.CommandEvent, description string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: description,
			Color:       ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

// UpdateError replaces a deferred command response with an error embed.
func UpdateError(e *handler.CommandEvent, description string) error {
	_, err := e.UpdateInteractionResponse(discord.MessageUpdate{
		Embeds:     &[]discord.Embed{{Description: description, Color: ErrorColor}},
		Components: &[]discord.ContainerComponent{},
	})
	return err
}

// ComponentError replies to a component interaction with an ephemeral
// error embed, leaving the original message untouched.
func ComponentError(e *handler.ComponentEvent, description string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: description,
			Color:       ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

// CreateSuccess replies to a command with a green embed.
func CreateSuccess(e *handler.CommandEvent, title, description string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       title,
			Description: description,
			Color:       SuccessColor,
		}},
	})
}
