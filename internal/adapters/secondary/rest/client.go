package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

// envelope is the `{ success, data, error? }` shape every endpoint returns.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// Client consumes the marketplace REST API on behalf of the session. Calls
// carry no client-enforced timeout of their own; callers bound them via ctx.
type Client struct {
	baseURL string
	http    *http.Client
	session ports.Session
	logger  *slog.Logger
}

var (
	_ ports.TrabajoAPI = (*Client)(nil)
	_ ports.ChatAPI    = (*Client)(nil)
)

func NewClient(baseURL string, httpClient *http.Client, session ports.Session, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		session: session,
		logger:  logger.With("component", "rest_client"),
	}
}

// do issues one request and decodes the envelope into out (when non-nil).
// Error mapping follows the client taxonomy: transport failures become
// NETWORK_FAILURE, 401 becomes AUTH_FAILURE, and other 4xx responses become
// VALIDATION_ERROR carrying the server's message verbatim.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewNetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError(err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 400 {
				return c.statusError(resp.StatusCode, "")
			}
			return apperrors.NewNetworkError(fmt.Errorf("malformed response body: %w", err))
		}
	}

	if resp.StatusCode >= 400 || !env.Success {
		return c.statusError(resp.StatusCode, env.Error)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.NewNetworkError(fmt.Errorf("malformed response data: %w", err))
		}
	}
	return nil
}

func (c *Client) statusError(statusCode int, message string) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return apperrors.NewAuthError(message)
	case statusCode >= 400 && statusCode < 500:
		if message == "" {
			message = http.StatusText(statusCode)
		}
		return apperrors.NewValidationError(statusCode, message)
	default:
		return apperrors.NewServerError(statusCode, message)
	}
}
