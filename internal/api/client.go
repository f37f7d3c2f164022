// Package api is the HTTP client of a skirmish server: leaderboard reads
// and writes and the model catalogue.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
)

// ErrNotFound is returned when the server has no such model.
var ErrNotFound = errors.New("not found")

// APIKeyHeader carries the shared secret on write requests.
const APIKeyHeader = "X-Api-Key"

const defaultTimeout = 30 * time.Second

// StatusError is a non-2xx answer. Message is the server's "error" field
// when it sent one.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// ResolveURL makes a model reference absolute. http(s) URLs pass through;
// anything else is a path on the server.
func (c *Client) ResolveURL(ref string) string {
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return ref
	}
	return c.baseURL + "/" + strings.TrimLeft(ref, "/")
}

// request is one call. A nil body sends nothing; auth adds the API key.
type request struct {
	method      string
	target      string
	body        io.Reader
	contentType string
	auth        bool
}

// do sends r and returns the response when its status is 2xx. Otherwise
// the body is read for an error message and a *StatusError is returned.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	target := r.target
	if !strings.Contains(target, "://") {
		target = c.baseURL + target
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", r.method, err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth && c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	return nil, &StatusError{Method: r.method, Path: req.URL.Path, Code: resp.StatusCode, Message: body.Error}
}

// call sends r and decodes a JSON answer into out.
func (c *Client) call(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", resp.Request.URL.Path, err)
	}
	return nil
}

// Healthcheck reports whether the server answers.
func (c *Client) Healthcheck(ctx context.Context) error {
	return c.call(ctx, request{method: http.MethodGet, target: "/healthcheck"}, nil)
}

// FetchModel downloads the GLB behind ref.
func (c *Client) FetchModel(ctx context.Context, ref string) ([]byte, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, target: c.ResolveURL(ref)})
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", ref, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", ref, err)
	}
	return data, nil
}

func (c *Client) ListModels(ctx context.Context) ([]core.ModelEntry, error) {
	var body struct {
		Models []core.ModelEntry `json:"models"`
	}
	err := c.call(ctx, request{method: http.MethodGet, target: "/api/models"}, &body)
	return body.Models, err
}

// FetchTop reads the leaderboard.
func (c *Client) FetchTop(ctx context.Context, limit int, sort core.SortKey) ([]core.LeaderboardEntry, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}, "sort": {string(sort)}}
	var body struct {
		Entries []core.LeaderboardEntry `json:"entries"`
	}
	err := c.call(ctx, request{method: http.MethodGet, target: "/api/leaderboard/top?" + q.Encode()}, &body)
	return body.Entries, err
}

// SubmitResult posts a finished sortie for user.
func (c *Client) SubmitResult(ctx context.Context, user core.User, result core.SessionResult) error {
	payload, err := json.Marshal(streaming.SubmitResultPayload{User: user, Result: result})
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	var body struct {
		Inserted bool   `json:"inserted"`
		Error    string `json:"error"`
	}
	err = c.call(ctx, request{
		method:      http.MethodPost,
		target:      "/api/leaderboard/submit",
		body:        bytes.NewReader(payload),
		contentType: "application/json",
		auth:        true,
	}, &body)
	if err != nil {
		return err
	}
	if !body.Inserted {
		return fmt.Errorf("submit not inserted: %s", body.Error)
	}
	return nil
}

// UploadModel streams a GLB file to the catalogue as multipart form data.
func (c *Client) UploadModel(ctx context.Context, path, name string) (core.ModelEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return core.ModelEntry{}, err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(form, file, filepath.Base(path), name))
	}()

	var body struct {
		Model core.ModelEntry `json:"model"`
	}
	err = c.call(ctx, request{
		method:      http.MethodPost,
		target:      "/api/models",
		body:        pr,
		contentType: form.FormDataContentType(),
		auth:        true,
	}, &body)
	_ = pr.Close()
	if err != nil {
		return core.ModelEntry{}, fmt.Errorf("upload %s: %w", path, err)
	}
	return body.Model, nil
}

func writeUpload(form *multipart.Writer, src io.Reader, filename, name string) error {
	if err := form.WriteField("name", name); err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return form.Close()
}
