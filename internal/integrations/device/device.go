// Package device relays aroma activations to the dispenser over plain HTTP.
package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dan9191/aromastream/internal/config"
	"github.com/Dan9191/aromastream/internal/models"
	"github.com/sirupsen/logrus"
)

// Error describes a failed relay. StatusCode is zero when the device could
// not be reached.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("device unreachable: %v", e.Err)
	}
	return fmt.Sprintf("device responded with status %d", e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Client handles integration with the aroma dispenser
type Client struct {
	urlTemplate string
	client      *http.Client
	log         *logrus.Logger
}

// NewClient initializes a new device client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		urlTemplate: cfg.DeviceURL,
		client: &http.Client{
			Timeout: cfg.DeviceTimeout.Duration,
		},
		log: log,
	}
}

// buildURL interpolates the aroma code into the device URL template
func (c *Client) buildURL(aroma models.Aroma) string {
	target := strings.ReplaceAll(c.urlTemplate, "{}", url.PathEscape(string(aroma)))
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	return target
}

// Trigger asks the device to release aroma. Any 2xx response is a success.
func (c *Client) Trigger(ctx context.Context, aroma models.Aroma) error {
	target := c.buildURL(aroma)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warnf("Device request to %s failed: %v", target, err)
		return &Error{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warnf("Device at %s responded with status %d", target, resp.StatusCode)
		return &Error{StatusCode: resp.StatusCode}
	}

	c.log.Infof("Triggered aroma %s", aroma)
	return nil
}
