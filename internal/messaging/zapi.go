package messaging

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type ZAPIConfig struct {
	BaseURL     string
	InstanceID  string
	Token       string
	ClientToken string
	Retries     int
	RetryWait   time.Duration
	Timeout     time.Duration
}

// ZAPISender posts text messages to a Z-API instance.
type ZAPISender struct {
	client *resty.Client
	path   string
}

type sendTextRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendTextResponse struct {
	ZaapID    string `json:"zaapId"`
	MessageID string `json:"messageId"`
}

func NewZAPISender(cfg ZAPIConfig) (*ZAPISender, error) {
	if cfg.BaseURL == "" || cfg.InstanceID == "" || cfg.Token == "" {
		return nil, fmt.Errorf("z-api base url, instance id and token are required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4 * cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.ClientToken != "" {
		c.SetHeader("Client-Token", cfg.ClientToken)
	}

	return &ZAPISender{
		client: c,
		path:   fmt.Sprintf("/instances/%s/token/%s/send-text", cfg.InstanceID, cfg.Token),
	}, nil
}

func (s *ZAPISender) SendText(ctx context.Context, phone, text string) error {
	var out sendTextResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&sendTextRequest{Phone: phone, Message: text}).
		SetResult(&out).
		Post(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: z-api status %d: %s", ErrDeliveryFailed, resp.StatusCode(), resp.String())
	}
	return nil
}
