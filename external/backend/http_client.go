package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/interview"
	"github.com/google/uuid"
)

const maxErrorBodyBytes = 4 << 10

type HTTPClient struct {
	baseURL *url.URL
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) (interview.Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	return &HTTPClient{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type interviewResponse struct {
	ID                   string   `json:"id"`
	QuestionSet          []string `json:"questionSet"`
	CurrentQuestionIndex int      `json:"currentQuestionIndex"`
	QuestionSource       string   `json:"questionSource,omitempty"`
}

type nextQuestionResponse struct {
	Done     bool   `json:"done"`
	Question string `json:"question,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Total    int    `json:"total,omitempty"`
}

type realtimeResponse struct {
	SessionID string `json:"sessionId"`
	StreamURL string `json:"streamUrl"`
}

type submitAnswerRequest struct {
	SessionID     string `json:"sessionId"`
	Transcript    string `json:"transcript"`
	QuestionIndex int    `json:"questionIndex"`
}

type feedbackPayload struct {
	Clarity    float64  `json:"clarity"`
	Confidence float64  `json:"confidence"`
	Structure  float64  `json:"structure"`
	Relevance  float64  `json:"relevance"`
	Summary    string   `json:"summary"`
	Tips       []string `json:"tips"`
}

type submitAnswerResponse struct {
	Feedback *feedbackPayload `json:"feedback"`
}

type finalizeResponse struct {
	ReportURL string `json:"reportUrl,omitempty"`
}

func (c *HTTPClient) GetInterview(ctx context.Context, interviewID string) (*interview.Interview, error) {
	var resp interviewResponse
	if err := c.do(ctx, "get interview", http.MethodGet, c.interviewPath(interviewID), nil, &resp); err != nil {
		return nil, err
	}
	id := resp.ID
	if id == "" {
		id = interviewID
	}
	return &interview.Interview{
		ID:                   id,
		Questions:            resp.QuestionSet,
		CurrentQuestionIndex: resp.CurrentQuestionIndex,
		Source:               resp.QuestionSource,
	}, nil
}

func (c *HTTPClient) NextQuestion(ctx context.Context, interviewID string) (*interview.NextQuestion, error) {
	var resp nextQuestionResponse
	if err := c.do(ctx, "next question", http.MethodGet, c.interviewPath(interviewID, "next-question"), nil, &resp); err != nil {
		return nil, err
	}
	return &interview.NextQuestion{
		Done:     resp.Done,
		Question: resp.Question,
		Index:    resp.Index,
		Total:    resp.Total,
	}, nil
}

func (c *HTTPClient) StartRealtime(ctx context.Context, interviewID string) (*interview.RealtimeSession, error) {
	var resp realtimeResponse
	if err := c.do(ctx, "start realtime", http.MethodPost, c.interviewPath(interviewID, "rt", "start"), nil, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" || resp.StreamURL == "" {
		return nil, fmt.Errorf("start realtime: response is missing sessionId or streamUrl")
	}
	streamURL, err := c.resolveStreamURL(resp.StreamURL)
	if err != nil {
		return nil, fmt.Errorf("start realtime: %w", err)
	}
	return &interview.RealtimeSession{SessionID: resp.SessionID, StreamURL: streamURL}, nil
}

func (c *HTTPClient) SubmitAnswer(ctx context.Context, interviewID string, input interview.SubmitAnswerInput) (*interview.Feedback, error) {
	body := submitAnswerRequest(input)
	var resp submitAnswerResponse
	if err := c.do(ctx, "submit answer", http.MethodPost, c.interviewPath(interviewID, "rt", "submit-answer"), body, &resp); err != nil {
		return nil, err
	}
	if resp.Feedback == nil {
		return nil, fmt.Errorf("submit answer: response has no feedback")
	}
	fb := resp.Feedback
	return &interview.Feedback{
		Clarity:    interview.RoundScore(fb.Clarity),
		Confidence: interview.RoundScore(fb.Confidence),
		Structure:  interview.RoundScore(fb.Structure),
		Relevance:  interview.RoundScore(fb.Relevance),
		Summary:    fb.Summary,
		Tips:       fb.Tips,
	}, nil
}

func (c *HTTPClient) Finalize(ctx context.Context, interviewID string) (*interview.FinalizeResult, error) {
	var resp finalizeResponse
	if err := c.do(ctx, "finalize", http.MethodPost, c.interviewPath(interviewID, "finalize"), nil, &resp); err != nil {
		return nil, err
	}
	return &interview.FinalizeResult{ReportURL: resp.ReportURL}, nil
}

func (c *HTTPClient) interviewPath(interviewID string, parts ...string) string {
	segments := append([]string{"interviews", url.PathEscape(interviewID)}, parts...)
	return strings.Join(segments, "/")
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	target := c.baseURL.JoinPath(path)
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &interview.APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// resolveStreamURL accepts absolute ws(s) URLs as they are and maps relative
// or http(s) URLs onto the backend host.
func (c *HTTPClient) resolveStreamURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	u = c.baseURL.ResolveReference(u)
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported stream url scheme %q", u.Scheme)
	}
	return u.String(), nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
