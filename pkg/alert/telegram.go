// Package alert sends emergency notifications over Telegram.
package alert

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
)

// botAPI is the slice of tgbotapi.BotAPI the sender needs. Narrowed to an
// interface so tests can substitute a fake without network access.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetMe() (tgbotapi.User, error)
}

// Telegram implements the alert port over a Telegram bot. Recipients are
// chat ids in decimal string form.
type Telegram struct {
	bot botAPI
}

// NewTelegram authorizes a bot with the given token.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram authorization: %v", ports.ErrTransportFailure, err)
	}
	log.Info("telegram bot authorized", "username", bot.Self.UserName)
	return &Telegram{bot: bot}, nil
}

// Send delivers a message to the given chat id. The tgbotapi client has no
// context support, so the call runs in a goroutine and the context bounds
// how long we wait for it.
func (t *Telegram) Send(ctx context.Context, recipient, message string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad chat id %q: %v", ports.ErrTransportFailure, recipient, err)
	}

	msg := tgbotapi.NewMessage(chatID, message)
	msg.DisableWebPagePreview = true

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: send to %s: %v", ports.ErrTransportFailure, recipient, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: send to %s: %v", ports.ErrTransportFailure, recipient, err)
		}
	}

	log.Debug("telegram message sent", "chat_id", recipient)
	return nil
}

// Prepare verifies the bot session is live so the first real alert does not
// pay the authorization cost.
func (t *Telegram) Prepare(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.GetMe()
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: prepare: %v", ports.ErrTransportFailure, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: prepare: %v", ports.ErrTransportFailure, err)
		}
	}
	return nil
}
