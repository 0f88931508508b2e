// Package client submits locally counted reps to the challenge API through
// the gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"rep-challenge-system/models"
	"rep-challenge-system/pose"
	"rep-challenge-system/utils"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("challenge api: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	userID  string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces utils.HTTPClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, token, userID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		userID:  userID,
		http:    utils.HTTPClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProgressResponse mirrors the body of a successful progress submission.
type ProgressResponse struct {
	Message     string `json:"message"`
	UpdatedReps int    `json:"updated_reps"`
	Completed   bool   `json:"completed"`
	EvidenceURL string `json:"evidence_url,omitempty"`
}

// Join enrolls the configured user in challengeID.
func (c *Client) Join(ctx context.Context, challengeID string) (*models.Participation, error) {
	var out models.Participation
	if err := c.post(ctx, "/challenges/"+url.PathEscape(challengeID)+"/join", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitProgress sends reps as a delta. session, when non-nil, is attached
// as the evidence summary.
func (c *Client) SubmitProgress(ctx context.Context, challengeID string, reps int, session *pose.Result) (*ProgressResponse, error) {
	body := struct {
		Reps    int          `json:"reps"`
		Session *pose.Result `json:"session,omitempty"`
	}{reps, session}

	var out ProgressResponse
	if err := c.post(ctx, "/challenges/"+url.PathEscape(challengeID)+"/progress", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-User-ID", c.userID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error     string `json:"error"`
			Retryable bool   `json:"retryable"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error, Retryable: e.Retryable}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
