package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mattdomit/dotted-sub000/internal/config"
)

const SignatureHeader = "X-Dotted-Signature"

// WebhookPublisher POSTs each event as JSON. With a secret configured the
// body is signed with HMAC-SHA256 in SignatureHeader.
type WebhookPublisher struct {
	client *resty.Client
	url    string
	secret string
}

func NewWebhookPublisher(cfg config.WebhookConfig) *WebhookPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "dotted-cycled")
	return &WebhookPublisher{client: client, url: cfg.URL, secret: cfg.Secret}
}

func (p *WebhookPublisher) Publish(ctx context.Context, evt PhaseChanged) error {
	payload, err := evt.Payload()
	if err != nil {
		return err
	}
	req := p.client.R().SetContext(ctx).SetBody(payload)
	if p.secret != "" {
		req.SetHeader(SignatureHeader, Sign(p.secret, payload))
	}
	resp, err := req.Post(p.url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook post: status %d", resp.StatusCode())
	}
	return nil
}

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
