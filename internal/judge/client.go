// Package judge adapts the remote Judge0-style execution service's
// asynchronous batch model: submit a batch of execution units for opaque
// tokens, then poll those tokens until every one reaches a terminal status.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"algoarena/internal/common"
)

// Judge0 status ids. Ids 1 and 2 (in queue, processing) are non-terminal;
// everything from Accepted up is terminal.
const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

// SubmissionUnit is one (source, language, stdin, expected stdout) execution
// request, ephemeral per (solution, test case) pair.
type SubmissionUnit struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Terminal reports whether execution has finished, whatever the outcome.
func (s Status) Terminal() bool {
	return s.ID >= StatusAccepted
}

type Result struct {
	Token         string `json:"token"`
	Status        Status `json:"status"`
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
}

// Client is the judge contract the validation pipeline depends on. Both
// methods preserve input order in their outputs regardless of how the remote
// service batches or schedules the work.
type Client interface {
	SubmitBatch(ctx context.Context, units []SubmissionUnit) ([]string, error)
	PollBatchResults(ctx context.Context, tokens []string) ([]Result, error)
}

// Options configures an HTTPClient. Sleep and Now exist so tests can drive
// the polling loop without real delays.
type Options struct {
	BaseURL      string
	AuthToken    string
	MaxBatchSize int           // remote batch limit, default 20
	PollInterval time.Duration // backoff between poll attempts, default 1s
	PollTimeout  time.Duration // wall-clock ceiling for polling, default 60s
	HTTPClient   *http.Client
	Sleep        func(ctx context.Context, d time.Duration) error
	Now          func() time.Time
}

// HTTPClient talks to a Judge0-compatible service over HTTP. It performs no
// local persistence; its only side effects are network calls.
type HTTPClient struct {
	baseURL      string
	authToken    string
	maxBatchSize int
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpc        *http.Client
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
	logger       *zap.Logger
}

func NewHTTPClient(opts Options, logger *zap.Logger) *HTTPClient {
	c := &HTTPClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		authToken:    opts.AuthToken,
		maxBatchSize: opts.MaxBatchSize,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
		httpc:        opts.HTTPClient,
		sleep:        opts.Sleep,
		now:          opts.Now,
		logger:       logger,
	}
	if c.maxBatchSize <= 0 {
		c.maxBatchSize = 20
	}
	if c.pollInterval <= 0 {
		c.pollInterval = time.Second
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = 60 * time.Second
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if c.sleep == nil {
		c.sleep = sleepWithContext
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SubmitBatch submits the units in sub-batches no larger than the remote
// batch limit and reassembles the returned tokens in original unit order.
func (c *HTTPClient) SubmitBatch(ctx context.Context, units []SubmissionUnit) ([]string, error) {
	if len(units) == 0 {
		return nil, nil
	}

	tokens := make([]string, 0, len(units))
	for start := 0; start < len(units); start += c.maxBatchSize {
		end := start + c.maxBatchSize
		if end > len(units) {
			end = len(units)
		}
		chunkTokens, err := c.submitChunk(ctx, units[start:end])
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, chunkTokens...)
	}
	c.logger.Debug("submitted batch to judge",
		zap.Int("units", len(units)),
		zap.Int("tokens", len(tokens)))
	return tokens, nil
}

func (c *HTTPClient) submitChunk(ctx context.Context, units []SubmissionUnit) ([]string, error) {
	body, err := json.Marshal(struct {
		Submissions []SubmissionUnit `json:"submissions"`
	}{Submissions: units})
	if err != nil {
		return nil, common.Errorf("judge: marshal batch: %w", err)
	}

	url := c.baseURL + "/submissions/batch?base64_encoded=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, common.Errorf("judge: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, common.Errorf("judge: submit batch: %v: %w", err, common.ErrJudgeUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, common.Errorf("judge: submit batch returned %d: %w", resp.StatusCode, common.ErrJudgeUnavailable)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, common.Errorf("judge: submit batch returned %d: %w", resp.StatusCode, common.ErrJudgeProtocol)
	}

	var created []struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, common.Errorf("judge: decode submit response: %v: %w", err, common.ErrJudgeProtocol)
	}
	if len(created) != len(units) {
		return nil, common.Errorf("judge: submitted %d units, got %d tokens: %w", len(units), len(created), common.ErrJudgeProtocol)
	}

	tokens := make([]string, len(created))
	for i, entry := range created {
		if entry.Token == "" {
			return nil, common.Errorf("judge: empty token at position %d: %w", i, common.ErrJudgeProtocol)
		}
		tokens[i] = entry.Token
	}
	return tokens, nil
}

// PollBatchResults re-queries the judge until every token reaches a terminal
// status, sleeping a fixed interval between attempts. It fails with
// ErrJudgeTimeout if the wall-clock ceiling passes while any token remains
// non-terminal. Results are returned in token order.
func (c *HTTPClient) PollBatchResults(ctx context.Context, tokens []string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	deadline := c.now().Add(c.pollTimeout)
	for {
		results, err := c.fetchResults(ctx, tokens)
		if err != nil {
			return nil, err
		}

		allTerminal := true
		for _, res := range results {
			if !res.Status.Terminal() {
				allTerminal = false
				break
			}
		}
		if allTerminal {
			return results, nil
		}

		if !c.now().Before(deadline) {
			return nil, common.Errorf("judge: %d tokens still pending after %s: %w",
				len(tokens), c.pollTimeout, common.ErrJudgeTimeout)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, common.Errorf("judge: polling aborted: %w", err)
		}
	}
}

func (c *HTTPClient) fetchResults(ctx context.Context, tokens []string) ([]Result, error) {
	byToken := make(map[string]int, len(tokens))
	for i, token := range tokens {
		byToken[token] = i
	}

	results := make([]Result, len(tokens))
	seen := 0
	for start := 0; start < len(tokens); start += c.maxBatchSize {
		end := start + c.maxBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk, err := c.fetchChunk(ctx, tokens[start:end])
		if err != nil {
			return nil, err
		}
		for _, res := range chunk {
			pos, ok := byToken[res.Token]
			if !ok {
				return nil, common.Errorf("judge: result for unknown token %q: %w", res.Token, common.ErrJudgeProtocol)
			}
			results[pos] = res
			seen++
		}
	}
	if seen != len(tokens) {
		return nil, common.Errorf("judge: polled %d tokens, got %d results: %w", len(tokens), seen, common.ErrJudgeProtocol)
	}
	return results, nil
}

func (c *HTTPClient) fetchChunk(ctx context.Context, tokens []string) ([]Result, error) {
	url := c.baseURL + "/submissions/batch?base64_encoded=false" +
		"&tokens=" + strings.Join(tokens, ",") +
		"&fields=token,status,stdout,stderr,compile_output"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.Errorf("judge: build poll request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, common.Errorf("judge: poll batch: %v: %w", err, common.ErrJudgeUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, common.Errorf("judge: poll batch returned %d: %w", resp.StatusCode, common.ErrJudgeUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, common.Errorf("judge: poll batch returned %d: %w", resp.StatusCode, common.ErrJudgeProtocol)
	}

	var payload struct {
		Submissions []Result `json:"submissions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, common.Errorf("judge: decode poll response: %v: %w", err, common.ErrJudgeProtocol)
	}
	return payload.Submissions, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}
}
