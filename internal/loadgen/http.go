package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/admission/internal/domain/eligibility"
	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/pkg/logger"
)

// ErrUnexpectedStatus is returned when the service answers with an unexpected code.
var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPClient wraps http.Client with JSON helpers.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends body as JSON (when non-nil) and decodes the response into out.
// It returns the status code so callers can tell 200 from 202.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, want ...int) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	ok := false
	for _, code := range want {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		return resp.StatusCode, fmt.Errorf("%w %d from %s %s: %s", ErrUnexpectedStatus, resp.StatusCode, method, path, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type programBody struct {
	Name          string       `json:"name"`
	Institution   string       `json:"institution"`
	CutoffHistory model.Series `json:"cutoff_history"`
}

// putProgram stores p under its ID.
func (c *HTTPClient) putProgram(ctx context.Context, p model.Program) error {
	body := programBody{Name: p.Name, Institution: p.Institution, CutoffHistory: p.CutoffHistory}
	_, err := c.do(ctx, http.MethodPut, "/programs/"+url.PathEscape(p.ID), body, nil, http.StatusOK)
	return err
}

type batchBody struct {
	BatchID    string            `json:"batch_id"`
	Candidates []model.Candidate `json:"candidates"`
	ProgramIDs []string          `json:"program_ids"`
}

// submitBatch posts one batch. A 200 answer marks a duplicate.
func (c *HTTPClient) submitBatch(ctx context.Context, id string, candidates []model.Candidate, programIDs []string) (AckResponse, error) {
	var ack AckResponse
	_, err := c.do(ctx, http.MethodPost, "/batches", batchBody{BatchID: id, Candidates: candidates, ProgramIDs: programIDs},
		&ack, http.StatusAccepted, http.StatusOK)
	return ack, err
}

// getBatch reads up to limit ranked results for a batch.
func (c *HTTPClient) getBatch(ctx context.Context, id string, limit int) (BatchView, error) {
	var b BatchView
	_, err := c.do(ctx, http.MethodGet, "/batches/"+url.PathEscape(id)+"?limit="+strconv.Itoa(limit), nil, &b, http.StatusOK)
	return b, err
}

type evaluateBody struct {
	model.Candidate
	ProgramID string `json:"program_id"`
}

// evaluate runs a single synchronous eligibility check.
func (c *HTTPClient) evaluate(ctx context.Context, cand model.Candidate, programID string) (eligibility.Result, error) {
	var res eligibility.Result
	_, err := c.do(ctx, http.MethodPost, "/eligibility", evaluateBody{Candidate: cand, ProgramID: programID}, &res, http.StatusOK)
	return res, err
}

// seedPrograms uploads the catalogue sequentially; it is small.
func seedPrograms(ctx context.Context, client *HTTPClient, programs []model.Program, stats *Stats) error {
	for _, p := range programs {
		if err := client.putProgram(ctx, p); err != nil {
			return fmt.Errorf("seed program %s: %w", p.ID, err)
		}
		stats.ProgramsSeeded++
	}
	logger.Get().Info(ctx, "programs seeded", logger.Int("count", stats.ProgramsSeeded))
	return nil
}

// submitBatches submits batches concurrently using a worker pool.
func submitBatches(ctx context.Context, client *HTTPClient, config *Config, batches []Submission, programIDs []string, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting batches", logger.Int("batches", len(batches)), logger.Int("workers", config.Workers))

	var accepted, duplicate, failed atomic.Int64
	indexes := make(chan int, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				sub := &batches[i]
				sub.Ack, sub.Err = client.submitBatch(ctx, sub.BatchID, sub.Candidates, programIDs)
				switch {
				case sub.Err != nil:
					failed.Add(1)
					if config.Verbose {
						log.Warn(ctx, "batch submission failed", logger.String("batch_id", sub.BatchID), logger.Error(sub.Err))
					}
				case sub.Ack.Duplicate:
					duplicate.Add(1)
				default:
					accepted.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := range batches {
			select {
			case <-ctx.Done():
				return
			case indexes <- i:
			}
		}
	}()
	wg.Wait()

	stats.BatchesSubmitted = int(accepted.Load() + duplicate.Load() + failed.Load())
	stats.BatchesAccepted = int(accepted.Load())
	stats.BatchesDuplicate = int(duplicate.Load())
	stats.BatchesFailed = int(failed.Load())
	log.Info(ctx, "batch submission completed",
		logger.Int("accepted", stats.BatchesAccepted),
		logger.Int("duplicate", stats.BatchesDuplicate),
		logger.Int("failed", stats.BatchesFailed))
}

// awaitBatch polls a batch until every job has a result.
func awaitBatch(ctx context.Context, client *HTTPClient, config *Config, sub Submission) (BatchView, error) {
	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()
	for {
		b, err := client.getBatch(ctx, sub.BatchID, min(max(1, sub.Ack.Jobs), maxResultLimit))
		if err != nil {
			return BatchView{}, err
		}
		if b.Completed+b.Failed >= b.Total {
			return b, nil
		}
		select {
		case <-ctx.Done():
			return BatchView{}, fmt.Errorf("batch %s incomplete (%d/%d): %w", sub.BatchID, b.Completed+b.Failed, b.Total, ctx.Err())
		case <-ticker.C:
		}
	}
}
