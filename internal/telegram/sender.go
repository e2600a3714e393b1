package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLength is the Bot API limit for one text message, in characters.
const MaxMessageLength = 4096

// Sender delivers plain text to a chat. Session ids are chat ids.
type Sender struct {
	api sender
}

func NewSender(api sender) *Sender {
	return &Sender{api: api}
}

// SendText sends text, split into several messages when it is too long.
func (s *Sender) SendText(ctx context.Context, sessionID, text string) error {
	chatID, err := ChatID(sessionID)
	if err != nil {
		return err
	}
	for _, chunk := range splitMessage(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.api.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("send message to %d: %w", chatID, err)
		}
	}
	return nil
}

// ChatID parses a session id back into a Telegram chat id.
func ChatID(sessionID string) (int64, error) {
	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}
	return id, nil
}

// SessionID renders a chat id as a session id.
func SessionID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// splitMessage cuts text into chunks of at most limit runes, preferring to
// break after a newline.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if i := lastIndexRune(runes[:limit], '\n'); i > 0 {
			cut = i + 1
		}
		chunks = appendChunk(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	return appendChunk(chunks, string(runes))
}

// Telegram rejects blank messages, so whitespace-only chunks are dropped.
func appendChunk(chunks []string, chunk string) []string {
	if strings.TrimSpace(chunk) == "" {
		return chunks
	}
	return append(chunks, chunk)
}

func lastIndexRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
