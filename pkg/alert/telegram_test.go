package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
)

type fakeBot struct {
	sent    []tgbotapi.MessageConfig
	sendErr error
	meErr   error
	block   chan struct{}
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeBot) GetMe() (tgbotapi.User, error) {
	return tgbotapi.User{UserName: "visionglove_bot"}, f.meErr
}

func TestSendDeliversToChatID(t *testing.T) {
	bot := &fakeBot{}
	tg := &Telegram{bot: bot}

	if err := tg.Send(context.Background(), "123456", "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(bot.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(bot.sent))
	}
	if bot.sent[0].ChatID != 123456 || bot.sent[0].Text != "hello" {
		t.Errorf("Unexpected message: %+v", bot.sent[0])
	}
}

func TestSendBadChatID(t *testing.T) {
	tg := &Telegram{bot: &fakeBot{}}

	err := tg.Send(context.Background(), "not-a-number", "hello")
	if !errors.Is(err, ports.ErrTransportFailure) {
		t.Errorf("Expected ErrTransportFailure, got %v", err)
	}
}

func TestSendWrapsTransportError(t *testing.T) {
	bot := &fakeBot{sendErr: errors.New("api down")}
	tg := &Telegram{bot: bot}

	err := tg.Send(context.Background(), "123", "hello")
	if !errors.Is(err, ports.ErrTransportFailure) {
		t.Errorf("Expected ErrTransportFailure, got %v", err)
	}
}

func TestSendHonorsContextDeadline(t *testing.T) {
	bot := &fakeBot{block: make(chan struct{})}
	defer close(bot.block)
	tg := &Telegram{bot: bot}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tg.Send(ctx, "123", "hello")
	if !errors.Is(err, ports.ErrTransportFailure) {
		t.Errorf("Expected ErrTransportFailure on timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Send did not return promptly on context expiry")
	}
}

func TestPrepare(t *testing.T) {
	tg := &Telegram{bot: &fakeBot{}}
	if err := tg.Prepare(context.Background()); err != nil {
		t.Errorf("Prepare failed: %v", err)
	}

	tg = &Telegram{bot: &fakeBot{meErr: errors.New("unauthorized")}}
	if err := tg.Prepare(context.Background()); !errors.Is(err, ports.ErrTransportFailure) {
		t.Errorf("Expected ErrTransportFailure, got %v", err)
	}
}
