package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/charlahq/charla/messaging"
	"github.com/charlahq/charla/metrics"
)

const graphAPIBase = "https://graph.facebook.com/v20.0"

// SenderConfig tunes the outbound Cloud API client.
type SenderConfig struct {
	Token   string
	PhoneID string
	BaseURL string  // default graph API; tests point this at a stub
	Rate    float64 // messages per second, default 20
	Burst   int     // default 10
}

// Sender delivers outgoing messages through the WhatsApp Cloud API.
type Sender struct {
	cfg     SenderConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewSender builds the outbound client.
func NewSender(cfg SenderConfig) *Sender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = graphAPIBase
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Sender{
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
	}
}

// Send validates and delivers a batch in order. The first failure aborts the
// rest of the batch so replies never arrive out of sequence.
func (s *Sender) Send(ctx context.Context, to string, msgs []messaging.OutgoingMessage) error {
	if err := messaging.ValidateAll(msgs); err != nil {
		return errors.Wrap(err, "outbound batch invalid")
	}
	for i, msg := range msgs {
		if err := s.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limit wait")
		}
		if err := s.sendOne(ctx, to, msg); err != nil {
			return errors.Wrapf(err, "message %d of %d", i+1, len(msgs))
		}
		metrics.MessagesSent.WithLabelValues(string(msg.Type)).Inc()
	}
	return nil
}

// sendOne posts one message, retrying a transient 5xx once.
func (s *Sender) sendOne(ctx context.Context, to string, msg messaging.OutgoingMessage) error {
	payload, err := json.Marshal(messaging.ToWire(to, msg))
	if err != nil {
		return errors.Wrap(err, "marshal wire payload")
	}

	status, body, err := s.post(ctx, payload)
	if err == nil && status >= 500 {
		slog.Warn("sender: transient upstream error, retrying",
			"status", status, "to", to)
		status, body, err = s.post(ctx, payload)
	}
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("cloud api returned %d: %s", status, body)
	}
	return nil
}

func (s *Sender) post(ctx context.Context, payload []byte) (int, string, error) {
	url := fmt.Sprintf("%s/%s/messages", s.cfg.BaseURL, s.cfg.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", errors.Wrap(err, "post message")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(body), nil
}
