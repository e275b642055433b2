// Package push delivers Web Push notifications for attention requests.
// Delivery is best-effort: failures are reported to the caller so the
// request can be marked failed, never retried beyond a short backoff.
package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sethvargo/go-retry"

	"github.com/fernwood/hearth/internal/model"
)

// ErrExpired is returned when a push endpoint is no longer valid (410 Gone).
var ErrExpired = errors.New("push endpoint expired")

// Payload is the JSON sent to the push service for an attention request.
type Payload struct {
	Title       string `json:"title"`
	Body        string `json:"body,omitempty"`
	Tag         string `json:"tag"`
	Intensity   string `json:"intensity"`
	DurationSec int    `json:"duration_sec"`
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// Service sends web push notifications.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.Subscriber == "" {
		cfg.Subscriber = "mailto:noreply@hearth.family"
	}
	return &Service{cfg: cfg, logger: logger}
}

// VAPIDPublicKey returns the public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// send pushes one payload to one endpoint.
func (s *Service) send(endpoint *model.PushEndpoint, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: endpoint.Endpoint,
		Keys: webpush.Keys{
			P256dh: endpoint.P256dhKey,
			Auth:   endpoint.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subscriber,
		TTL:             120,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 500 {
		// Transient service-side failure; worth one short retry cycle.
		return retry.RetryableError(fmt.Errorf("push service returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// Dispatch fans an attention request out to every registered endpoint of
// the target. It succeeds if at least one endpoint accepted the payload.
func (s *Service) Dispatch(ctx context.Context, endpoints []model.PushEndpoint, req *model.AttentionRequest) error {
	payload := Payload{
		Title:       "Attention requested",
		Body:        req.Message,
		Tag:         "attention-" + req.ID,
		Intensity:   string(req.Intensity),
		DurationSec: req.DurationSec,
	}

	delivered := 0
	for i := range endpoints {
		ep := &endpoints[i]
		backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			return s.send(ep, payload)
		})
		if err != nil {
			s.logger.Warn("push dispatch failed", "endpoint_id", ep.ID, "error", err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("no endpoint accepted the notification")
	}
	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)

	privBytes := make([]byte, 32)
	key.D.FillBytes(privBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(privBytes)

	return publicKey, privateKey, nil
}
