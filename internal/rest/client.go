// Package rest is the HTTP client for the platform API. All calls carry the
// session token; a 401 from any endpoint invalidates the session at this
// boundary, not per call site.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/internal/session"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/metrics"
)

const tracerName = "rapidconsult/rest"

// APIError is a non-2xx response from the platform API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the platform REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sess       *session.Session
	logger     *logger.Logger
	tracer     trace.Tracer
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a REST client bound to a session.
func NewClient(baseURL string, sess *session.Session, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sess:       sess,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PaginatedMessages is the newest-first message page envelope.
type PaginatedMessages struct {
	Count   int             `json:"count"`
	Next    *string         `json:"next"`
	Results []model.Message `json:"results"`
}

// PaginatedConversations is the conversation list page envelope.
type PaginatedConversations struct {
	Count   int                  `json:"count"`
	Next    *string              `json:"next"`
	Results []model.Conversation `json:"results"`
}

// GetMessages fetches one page of a conversation's history, newest first.
func (c *Client) GetMessages(ctx context.Context, conversationID, organizationID, locationID string, page, pageSize int) (*PaginatedMessages, error) {
	params := url.Values{}
	params.Set("conversation_id", conversationID)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("organization_id", organizationID)
	params.Set("location_id", locationID)

	var out PaginatedMessages
	if err := c.getJSON(ctx, "/api/messages/", params, &out); err != nil {
		return nil, fmt.Errorf("get messages page %d: %w", page, err)
	}
	return &out, nil
}

// GetConversations fetches one page of the user's active conversations.
func (c *Client) GetConversations(ctx context.Context, userID, organizationID, locationID string, page int, search string) (*PaginatedConversations, error) {
	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("organization_id", organizationID)
	params.Set("location_id", locationID)
	params.Set("page", strconv.Itoa(page))
	if search != "" {
		params.Set("search", search)
	}

	var out PaginatedConversations
	if err := c.getJSON(ctx, "/api/active-conversations/", params, &out); err != nil {
		return nil, fmt.Errorf("get conversations page %d: %w", page, err)
	}
	return &out, nil
}

// Attachment is a file staged for upload.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// SendMessageRequest is the multipart send used when an attachment is staged.
type SendMessageRequest struct {
	ConversationID string
	Content        string
	OrganizationID string
	LocationID     string
	File           *Attachment
}

// SendMessage performs the single multipart request that persists a message
// with an optional attachment. No chunking, no retry; the caller keeps the
// draft on failure.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*model.Message, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := map[string]string{
		"conversationId":  req.ConversationID,
		"content":         req.Content,
		"organization_id": req.OrganizationID,
		"location_id":     req.LocationID,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if req.File != nil {
		part, err := w.CreateFormFile("file", req.File.Name)
		if err != nil {
			return nil, fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(req.File.Data); err != nil {
			return nil, fmt.Errorf("write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/save-message/", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	var out model.Message
	if err := c.do(httpReq, &out); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// do executes a request with auth, tracing, metrics, and the global 401
// policy applied.
func (c *Client) do(req *http.Request, out interface{}) error {
	if !c.sess.Valid() {
		return session.ErrInvalid
	}
	req.Header.Set("Authorization", "Token "+c.sess.Token())
	req.Header.Set("Accept", "application/json")

	ctx, span := c.tracer.Start(req.Context(), req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.Path),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRequest(req.Method, req.URL.Path, "error", duration)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	metrics.RecordRequest(req.Method, req.URL.Path, strconv.Itoa(resp.StatusCode), duration)

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("unauthorized response, invalidating session",
			zap.String("path", req.URL.Path))
		c.sess.Invalidate("unauthorized")
		span.SetStatus(codes.Error, "unauthorized")
		return session.ErrInvalid
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		span.SetStatus(codes.Error, resp.Status)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
