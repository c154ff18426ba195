// Package scorer provides engine.Scorer implementations backed by an
// external model service or by fixed values.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aptash/riskd/internal/circuitbreaker"
	"github.com/aptash/riskd/internal/engine"
	"github.com/aptash/riskd/internal/retry"
)

var (
	scoreRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskd",
		Subsystem: "scorer",
		Name:      "requests_total",
		Help:      "Model service score requests by outcome.",
	}, []string{"outcome"})

	scoreDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "riskd",
		Subsystem: "scorer",
		Name:      "request_duration_seconds",
		Help:      "Model service score request latency.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(scoreRequestsTotal, scoreDuration)
}

// maxResponseBytes bounds how much of a model response is read.
const maxResponseBytes = 1 << 20

// HTTPScorer calls an external model service over HTTP. The service holds
// the fitted models; this client only ships feature vectors and reads back
// signals. Failures of any kind surface as errors, which callers treat as
// signal absence.
type HTTPScorer struct {
	url     string
	client  *http.Client
	breaker *circuitbreaker.Breaker

	maxAttempts int
	baseDelay   time.Duration
}

// HTTPOption configures an HTTPScorer.
type HTTPOption func(*HTTPScorer)

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPScorer) { s.client = c }
}

// WithRetry overrides the retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) HTTPOption {
	return func(s *HTTPScorer) {
		s.maxAttempts = maxAttempts
		s.baseDelay = baseDelay
	}
}

// NewHTTPScorer creates a scorer that POSTs feature vectors to url.
func NewHTTPScorer(url string, opts ...HTTPOption) *HTTPScorer {
	s := &HTTPScorer{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker:     circuitbreaker.New("model", 5, 30*time.Second),
		maxAttempts: 2,
		baseDelay:   50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type scoreRequest struct {
	Features []float64 `json:"features"`
}

// Score sends the feature vector to the model service and returns its
// signal. The circuit opens after repeated failures so a dead model service
// costs one state check per transaction instead of a timeout.
func (s *HTTPScorer) Score(ctx context.Context, features []float64) (engine.Signal, error) {
	if !s.breaker.Allow() {
		scoreRequestsTotal.WithLabelValues("circuit_open").Inc()
		return engine.Signal{}, fmt.Errorf("model service circuit open")
	}

	payload, err := json.Marshal(scoreRequest{Features: features})
	if err != nil {
		return engine.Signal{}, fmt.Errorf("marshal features: %w", err)
	}

	start := time.Now()
	var sig engine.Signal
	err = retry.Do(ctx, s.maxAttempts, s.baseDelay, func() error {
		var attemptErr error
		sig, attemptErr = s.scoreOnce(ctx, payload)
		return attemptErr
	})
	scoreDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.breaker.RecordFailure()
		scoreRequestsTotal.WithLabelValues("error").Inc()
		return engine.Signal{}, err
	}

	s.breaker.RecordSuccess()
	scoreRequestsTotal.WithLabelValues("success").Inc()
	return sig, nil
}

func (s *HTTPScorer) scoreOnce(ctx context.Context, payload []byte) (engine.Signal, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewReader(payload))
	if err != nil {
		return engine.Signal{}, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return engine.Signal{}, fmt.Errorf("model request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return engine.Signal{}, fmt.Errorf("read model response: %w", err)
	}

	// Client errors are not retryable; the payload will not get better.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return engine.Signal{}, retry.Permanent(fmt.Errorf("model service rejected request: status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return engine.Signal{}, fmt.Errorf("model service error: status %d", resp.StatusCode)
	}

	var sig engine.Signal
	if err := json.Unmarshal(body, &sig); err != nil {
		return engine.Signal{}, retry.Permanent(fmt.Errorf("decode model response: %w", err))
	}
	return sig, nil
}

// Static returns the same signal for every transaction. Used in demos and
// tests where no model service is running.
type Static struct {
	Signal engine.Signal
}

// NewStatic creates a fixed-signal scorer.
func NewStatic(sig engine.Signal) *Static {
	return &Static{Signal: sig}
}

func (s *Static) Score(_ context.Context, _ []float64) (engine.Signal, error) {
	return s.Signal, nil
}
