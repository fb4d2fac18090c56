// Package grading talks to the external grading engine that turns uploaded
// exam scripts into graded results.
package grading

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/services"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

const gradeExamPath = "/grade-exam"

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
	Logger     *slog.Logger
}

type Client struct {
	http       *resty.Client
	maxRetries uint64
	logger     *slog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}
}

type engineError struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Grade posts the submission as multipart form data. Network failures and
// 5xx responses are retried with exponential backoff; 4xx responses are not.
func (c *Client) Grade(ctx context.Context, submission *services.GradingSubmission) (*services.IngestResultRequest, error) {
	var payload *services.IngestResultRequest

	operation := func() error {
		var result services.IngestResultRequest
		var failure engineError

		req := c.http.R().
			SetContext(ctx).
			SetFileReader("questions_file", submission.QuestionsFilename, bytes.NewReader(submission.Questions)).
			SetResult(&result).
			SetError(&failure)
		if len(submission.Answers) > 0 {
			req.SetFileReader("answers_file", submission.AnswersFilename, bytes.NewReader(submission.Answers))
		}
		if g := strings.TrimSpace(submission.Guidelines); g != "" {
			req.SetFormData(map[string]string{"guidelines": g})
		}

		resp, err := req.Post(gradeExamPath)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %v", services.ErrGradingEngine, err)
		}
		if resp.IsError() {
			err := fmt.Errorf("%w: status %d: %s", services.ErrGradingEngine, resp.StatusCode(), failure.describe(resp))
			if resp.StatusCode() < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}

		payload = &result
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Retrying grading engine call", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return payload, nil
}

func (e engineError) describe(resp *resty.Response) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Detail != "":
		return e.Detail
	}
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return resp.Status()
	}
	return body
}
