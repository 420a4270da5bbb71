package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type TelegramConfig struct {
	Token  string `yaml:"token" envconfig:"TELEGRAM_API_KEY"`
	ChatID string `yaml:"chatId" envconfig:"TELEGRAM_CHAT_ID"`
}

// TelegramSender delivers notification texts to a Telegram chat through
// the Bot API with HTML parse mode.
type TelegramSender struct {
	cfg    TelegramConfig
	client *http.Client
	log    *zap.Logger
}

func NewTelegramSender(cfg TelegramConfig, log *zap.Logger) *TelegramSender {
	return &TelegramSender{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Minute,
		},
		log: log.Named("telegram"),
	}
}

func (t *TelegramSender) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.cfg.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return errors.Wrap(err, "marshal body")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send message")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("sendMessage status %d", resp.StatusCode)
	}
	t.log.Debug("message sent", zap.Int("len", len(text)))
	return nil
}
