package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/metrics"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

type CloudConfig struct {
	APIURL          string
	Token           string
	PhoneNumberID   string
	RetryMaxElapsed time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// APIError is a non-2xx answer from the Cloud API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api returned status %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether the failure is on the provider side.
func (e *APIError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// CloudClient posts messages to {api_url}/{phone_number_id}/messages.
// Provider-side failures are retried with exponential backoff and repeated
// failures open a circuit breaker; client errors fail immediately.
type CloudClient struct {
	conf CloudConfig
	http *http.Client
	cb   *gobreaker.CircuitBreaker
	log  *zap.SugaredLogger
}

func NewCloudClient(conf CloudConfig, log *zap.SugaredLogger) *CloudClient {
	if conf.BreakerFailures <= 0 {
		conf.BreakerFailures = 5
	}
	if conf.RetryMaxElapsed <= 0 {
		conf.RetryMaxElapsed = 10 * time.Second
	}
	if conf.BreakerTimeout <= 0 {
		conf.BreakerTimeout = 30 * time.Second
	}
	st := gobreaker.Settings{
		Name:        "whatsapp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     conf.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(conf.BreakerFailures)
		},
		// a rejected payload says nothing about the provider's health
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.retryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infow("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &CloudClient{
		conf: conf,
		http: &http.Client{Timeout: 10 * time.Second},
		cb:   gobreaker.NewCircuitBreaker(st),
		log:  log,
	}
}

func (c *CloudClient) SendText(ctx context.Context, to, body string) (string, error) {
	return c.send(ctx, textMessage(to, body))
}

func (c *CloudClient) SendTemplate(ctx context.Context, to, name string, components []any) (string, error) {
	return c.send(ctx, templateMessage(to, name, components))
}

func (c *CloudClient) SendMedia(ctx context.Context, to string, mediaType models.MessageType, link, caption string) (string, error) {
	m, err := mediaMessage(to, mediaType, link, caption)
	if err != nil {
		return "", err
	}
	return c.send(ctx, m)
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *CloudClient) send(ctx context.Context, m outbound) (string, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode whatsapp message: %w", err)
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.postWithRetry(ctx, payload)
	})
	if err != nil {
		metrics.WhatsAppSent.WithLabelValues("error").Inc()
		c.log.Errorw("whatsapp send failed", "phone", m.To, "type", m.Type, "err", err)
		return "", err
	}
	metrics.WhatsAppSent.WithLabelValues("ok").Inc()
	id := out.(string)
	c.log.Infow("whatsapp message sent", "phone", m.To, "type", m.Type, "message_id", id)
	return id, nil
}

func (c *CloudClient) postWithRetry(ctx context.Context, payload []byte) (string, error) {
	endpoint := strings.TrimRight(c.conf.APIURL, "/") + "/" + c.conf.PhoneNumberID + "/messages"

	var id string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create whatsapp request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.conf.Token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("send whatsapp request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			if apiErr.retryable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		var sr sendResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return backoff.Permanent(fmt.Errorf("decode whatsapp response: %w", err))
		}
		if len(sr.Messages) == 0 || sr.Messages[0].ID == "" {
			return backoff.Permanent(errors.New("whatsapp response carried no message id"))
		}
		id = sr.Messages[0].ID
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = c.conf.RetryMaxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return id, nil
}
