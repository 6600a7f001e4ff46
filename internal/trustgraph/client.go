// Package trustgraph talks to the external trust-score provider.
package trustgraph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/setup/config"
	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ErrProviderDisabled is returned when no provider URL is configured.
var ErrProviderDisabled = errors.New("trust-graph provider is not configured")

// DefaultScore stands in for an account's trust score when the provider fails.
const DefaultScore = 0.1

// maxResponseSize caps how much of a provider response is read.
const maxResponseSize = 1 << 20

type scoreResponse struct {
	DID   string  `json:"did"`
	Score float64 `json:"score"`
}

type computeRequest struct {
	CommunityDID types.Scope `json:"communityDid"`
}

// leveledZap adapts a zap logger to retryablehttp. Request errors are logged
// at warn since they are retried.
type leveledZap struct {
	inner *zap.SugaredLogger
}

func (l leveledZap) Error(msg string, keysAndValues ...any) { l.inner.Warnw(msg, keysAndValues...) }
func (l leveledZap) Warn(msg string, keysAndValues ...any)  { l.inner.Warnw(msg, keysAndValues...) }
func (l leveledZap) Info(msg string, keysAndValues ...any)  { l.inner.Debugw(msg, keysAndValues...) }
func (l leveledZap) Debug(msg string, keysAndValues ...any) { l.inner.Debugw(msg, keysAndValues...) }

// Client calls the trust-graph service over HTTP with bounded timeouts and retries.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Client from configuration.
func NewClient(cfg *config.TrustGraph, logger *zap.Logger) *Client {
	logger = logger.Named("trustgraph")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = max(cfg.MaxRetries, 0)
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledZap{logger.Sugar()})

	httpClient := retryClient.StandardClient()
	httpClient.Timeout = cfg.Timeout()

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// GetTrustScore returns the raw trust score of an account, clamped to [0, 1].
func (c *Client) GetTrustScore(ctx context.Context, did string, scope types.Scope) (float64, error) {
	if c.baseURL == "" {
		return 0, ErrProviderDisabled
	}

	endpoint := fmt.Sprintf("%s/v1/trust-scores/%s", c.baseURL, url.PathEscape(did))
	if !scope.IsGlobal() {
		endpoint += "?community=" + url.QueryEscape(scope.CommunityDID())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build trust score request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return 0, err
	}

	var resp scoreResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode trust score: %w", err)
	}

	return min(max(resp.Score, 0), 1), nil
}

// ComputeTrustScores asks the provider to recompute scores for a scope.
func (c *Client) ComputeTrustScores(ctx context.Context, scope types.Scope) error {
	if c.baseURL == "" {
		return ErrProviderDisabled
	}

	payload, err := sonic.Marshal(computeRequest{CommunityDID: scope})
	if err != nil {
		return fmt.Errorf("failed to encode recompute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/trust-scores/compute", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build recompute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		return err
	}

	c.logger.Debug("Requested trust score recompute", zap.String("scope", scope.Key()))
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trust-graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read trust-graph response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("trust-graph returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
