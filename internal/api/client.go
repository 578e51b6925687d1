package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/clouddrive/drive/internal/config"
	"github.com/clouddrive/drive/internal/constants"
	"github.com/clouddrive/drive/internal/http"
	"github.com/clouddrive/drive/internal/logging"
	"github.com/clouddrive/drive/internal/models"
	"github.com/clouddrive/drive/internal/version"
)

// maxErrorBody caps how much of an error response is read for the message.
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token, read on every request.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token() (string, error) { return f() }

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Client talks to the Cloud Drive API.
//
// Reads go through a retrying client; mutations are issued exactly once so a
// lost acknowledgement never duplicates an upload or folder.
type Client struct {
	readClient     *nethttp.Client // GET, retried
	mutationClient *nethttp.Client // POST/PUT/DELETE, single-shot
	transferClient *nethttp.Client // uploads and access-URL downloads, no overall timeout
	baseURL        string
	tokens         TokenSource
	logger         *logging.Logger
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, tokens TokenSource, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, ErrEmptyBaseURL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	httpClient, err := http.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	readRetry := retryablehttp.NewClient()
	readRetry.HTTPClient = httpClient
	readRetry.RetryMax = constants.APIRetryMax
	readRetry.RetryWaitMin = constants.APIRetryWaitMin
	readRetry.RetryWaitMax = constants.APIRetryWaitMax
	readRetry.CheckRetry = http.CheckRetry
	readRetry.Backoff = http.Backoff
	readRetry.ErrorHandler = retryablehttp.PassthroughErrorHandler
	readRetry.Logger = &retryLogger{logger: logger}

	mutationRetry := retryablehttp.NewClient()
	mutationRetry.HTTPClient = httpClient
	mutationRetry.RetryMax = 0
	mutationRetry.CheckRetry = http.NoRetry
	mutationRetry.ErrorHandler = retryablehttp.PassthroughErrorHandler
	mutationRetry.Logger = &retryLogger{logger: logger}

	transfer := *httpClient
	transfer.Timeout = 0 // bounded by the caller's context

	return &Client{
		readClient:     readRetry.StandardClient(),
		mutationClient: mutationRetry.StandardClient(),
		transferClient: &transfer,
		baseURL:        strings.TrimSuffix(cfg.APIURL, "/"),
		tokens:         tokens,
		logger:         logger,
	}, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newRequest builds an authenticated request carrying a fresh X-Request-ID.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*nethttp.Request, string, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, "", fmt.Errorf("failed to read session token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, requestID, nil
}

// doJSON performs a JSON request and decodes a 2xx body into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, hc *nethttp.Client, method, path string, query url.Values, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, requestID, err := c.newRequest(ctx, method, path, query, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(hc, req, requestID, path, out)
}

func (c *Client) do(hc *nethttp.Client, req *nethttp.Request, requestID, path string, out interface{}) error {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug().Str("request_id", requestID).Str("method", req.Method).Str("path", path).Err(err).Msg("API call failed")
		return &RemoteError{Method: req.Method, Path: path, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("API call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := &RemoteError{Method: req.Method, Path: path, StatusCode: resp.StatusCode, RequestID: requestID}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var envelope models.ErrorResponse
		if json.Unmarshal(data, &envelope) == nil && envelope.Msg != "" {
			remote.Msg = envelope.Msg
		} else {
			remote.Msg = strings.TrimSpace(string(data))
		}
		return remote
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{
			Method:     req.Method,
			Path:       path,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

// ListFiles returns the immediate children of parentID (nil = root).
func (c *Client) ListFiles(ctx context.Context, parentID *string) ([]models.Resource, error) {
	var query url.Values
	if parentID != nil {
		query = url.Values{"parent": []string{*parentID}}
	}

	var resources []models.Resource
	if err := c.doJSON(ctx, c.readClient, nethttp.MethodGet, "/files", query, nil, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// ListFolders returns every folder of the account, flat.
func (c *Client) ListFolders(ctx context.Context) ([]models.Resource, error) {
	var folders []models.Resource
	if err := c.doJSON(ctx, c.readClient, nethttp.MethodGet, "/files/folders", nil, nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// CreateFolder creates a folder named name under parentID (nil = root).
func (c *Client) CreateFolder(ctx context.Context, name string, parentID *string) error {
	body := models.CreateFolderRequest{Name: name, ParentID: parentID}
	return c.doJSON(ctx, c.mutationClient, nethttp.MethodPost, "/files/folder", nil, body, nil)
}

// Rename changes the name of a resource.
func (c *Client) Rename(ctx context.Context, id, newName string) error {
	path := "/files/" + url.PathEscape(id)
	return c.doJSON(ctx, c.mutationClient, nethttp.MethodPut, path, nil, models.RenameRequest{Name: newName}, nil)
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, c.mutationClient, nethttp.MethodDelete, "/files/"+url.PathEscape(id), nil, nil, nil)
}

// Upload streams r as a multipart "file" part, with "parentId" when parentID is set.
func (c *Client) Upload(ctx context.Context, r io.Reader, filename string, parentID *string) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, r, filename, parentID)
		pw.CloseWithError(err)
	}()

	const path = "/files/upload"
	req, requestID, err := c.newRequest(ctx, nethttp.MethodPost, path, nil, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	err = c.do(c.transferClient, req, requestID, path, nil)
	pr.Close()
	return err
}

func writeUploadForm(mw *multipart.Writer, r io.Reader, filename string, parentID *string) error {
	if parentID != nil {
		if err := mw.WriteField("parentId", *parentID); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// ResolveAccessURL asks the API for a fresh, time-bounded URL for id.
// Each call resolves anew; the URL must not be cached.
func (c *Client) ResolveAccessURL(ctx context.Context, id string) (string, error) {
	var locator models.AccessLocator
	path := "/files/open/" + url.PathEscape(id)
	if err := c.doJSON(ctx, c.readClient, nethttp.MethodGet, path, nil, nil, &locator); err != nil {
		return "", err
	}
	if locator.URL == "" {
		return "", &RemoteError{Method: nethttp.MethodGet, Path: path, StatusCode: nethttp.StatusOK, Err: ErrEmptyAccessURL}
	}
	return locator.URL, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	body := models.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, c.mutationClient, nethttp.MethodPost, "/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &RemoteError{Method: nethttp.MethodPost, Path: "/auth/login", StatusCode: nethttp.StatusOK, Msg: resp.Msg}
	}
	return &resp, nil
}

// PublicShareURL returns the public URL a share token resolves to.
func (c *Client) PublicShareURL(token string) string {
	return c.baseURL + "/files/public/" + url.PathEscape(token)
}

// Fetch opens rawURL (typically an access URL) for streaming.
// No credentials are attached; access URLs carry their own authorization.
// The caller closes the body. size is -1 when unknown.
func (c *Client) Fetch(ctx context.Context, rawURL string) (body io.ReadCloser, size int64, err error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.transferClient.Do(req)
	if err != nil {
		return nil, 0, &RemoteError{Method: nethttp.MethodGet, Path: req.URL.Path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, &RemoteError{Method: nethttp.MethodGet, Path: req.URL.Path, StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}
