// Package submit sends assessment scores to the course backend and serves
// the matching endpoint.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"
)

// ErrDisabled is returned when no remote endpoint is configured.
var ErrDisabled = errors.New("score submission is disabled")

// Client posts scores to a remote score endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the endpoint at baseURL. An empty baseURL
// yields a client whose Submit always returns ErrDisabled.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	LearnerID string         `json:"learnerId"`
	Score     int            `json:"score"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Submit posts one score and decodes the reply.
func (c *Client) Submit(ctx context.Context, sub model.Submission) (model.SubmissionReply, error) {
	if c.baseURL == "" {
		return model.SubmissionReply{}, ErrDisabled
	}
	body, err := json.Marshal(submitRequest{
		LearnerID: sub.LearnerID,
		Score:     sub.Score,
		Metadata:  sub.Metadata,
	})
	if err != nil {
		return model.SubmissionReply{}, fmt.Errorf("encode submission: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/v1/assessments/%s/scores", c.baseURL, url.PathEscape(sub.AssessmentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.SubmissionReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.SubmissionReply{}, fmt.Errorf("submit score: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			_ = cerr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.SubmissionReply{}, fmt.Errorf("submit score: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	var reply model.SubmissionReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return model.SubmissionReply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}
