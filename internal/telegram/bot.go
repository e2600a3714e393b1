package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/rufetisr/FitnessTelegramBot/internal/dispatch"
	"github.com/rufetisr/FitnessTelegramBot/internal/intake"
	"github.com/rufetisr/FitnessTelegramBot/internal/metrics"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Handler consumes intake events. *intake.Machine implements it.
type Handler interface {
	Handle(ctx context.Context, ev intake.Event)
}

// Bot turns Telegram updates into intake events and queues them per chat.
type Bot struct {
	api        botAPI
	dispatcher *dispatch.Dispatcher
	handler    Handler
	logger     *zap.Logger
}

func New(api botAPI, dispatcher *dispatch.Dispatcher, handler Handler, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{api: api, dispatcher: dispatcher, handler: handler, logger: logger}
}

// EventFromUpdate extracts a text message. Other update kinds are ignored.
func EventFromUpdate(u tgbotapi.Update, clientIP string) (intake.Event, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return intake.Event{}, false
	}
	return intake.Event{
		SessionID: SessionID(msg.Chat.ID),
		Text:      msg.Text,
		ClientIP:  clientIP,
	}, true
}

// Dispatch queues the update for its chat. It does not wait for handling.
func (b *Bot) Dispatch(u tgbotapi.Update, clientIP, mode string) {
	metrics.RecordUpdate(mode)
	ev, ok := EventFromUpdate(u, clientIP)
	if !ok {
		b.logger.Debug("ignoring non-text update", zap.Int("update_id", u.UpdateID))
		return
	}
	err := b.dispatcher.Submit(ev.SessionID, func(ctx context.Context) {
		b.handler.Handle(ctx, ev)
	})
	if err != nil {
		b.logger.Warn("dropping update", zap.Int("update_id", u.UpdateID), zap.String("session_id", ev.SessionID), zap.Error(err))
	}
}

// RunPolling long-polls for updates until ctx is cancelled. Any registered
// webhook is removed first, as Telegram refuses getUpdates while one is set.
func (b *Bot) RunPolling(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return errors.New("updates channel closed")
			}
			b.Dispatch(upd, "", ModePolling)
		}
	}
}

// WebhookURL is the public address Telegram posts updates to.
func WebhookURL(base, secret string) string {
	return strings.TrimRight(base, "/") + webhookPrefix + secret
}

// RegisterWebhook points Telegram at base + /webhook/<secret>.
func (b *Bot) RegisterWebhook(base, secret string) error {
	wh, err := tgbotapi.NewWebhook(WebhookURL(base, secret))
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.logger.Info("webhook registered", zap.String("url", strings.TrimRight(base, "/")+webhookPrefix+"***"))
	return nil
}
