package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smazurov/sevenseg/internal/version"
)

// nodeClient drives a stream node of a running daemon over its HTTP API.
type nodeClient struct {
	base     string
	node     string
	username string
	password string
	http     *http.Client
}

func newNodeClient(baseURL, node, username, password string) *nodeClient {
	return &nodeClient{
		base:     strings.TrimRight(baseURL, "/"),
		node:     node,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type apiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

func (c *nodeClient) do(method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", version.UserAgent("cycle"))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *nodeClient) handlePath(handle string) string {
	return "/api/dev/" + url.PathEscape(c.node) + "/handles/" + url.PathEscape(handle)
}

// Open returns a new handle id.
func (c *nodeClient) Open() (string, error) {
	var out struct {
		Handle string `json:"handle"`
	}
	if err := c.do(http.MethodPost, "/api/dev/"+url.PathEscape(c.node)+"/open", "", nil, &out); err != nil {
		return "", fmt.Errorf("open %s: %w", c.node, err)
	}
	return out.Handle, nil
}

// Write issues one write call and returns the bytes consumed.
func (c *nodeClient) Write(handle string, p []byte) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(http.MethodPut, c.handlePath(handle), "application/octet-stream", bytes.NewReader(p), &out); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return out.Count, nil
}

// Seek repositions the handle.
func (c *nodeClient) Seek(handle string, offset int64, whence int) (int64, error) {
	body, err := json.Marshal(map[string]any{"offset": offset, "whence": whence})
	if err != nil {
		return 0, err
	}
	var out struct {
		Position int64 `json:"position"`
	}
	if err := c.do(http.MethodPost, c.handlePath(handle)+"/seek", "application/json", bytes.NewReader(body), &out); err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}
	return out.Position, nil
}

// Read reads up to count bytes. It returns io.EOF at end of file.
func (c *nodeClient) Read(handle string, count int) ([]byte, error) {
	var out struct {
		Data []byte `json:"data"`
		EOF  bool   `json:"eof"`
	}
	if err := c.do(http.MethodGet, fmt.Sprintf("%s?count=%d", c.handlePath(handle), count), "", nil, &out); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if out.EOF {
		return out.Data, io.EOF
	}
	return out.Data, nil
}

// Close closes the handle.
func (c *nodeClient) Close(handle string) error {
	if err := c.do(http.MethodDelete, c.handlePath(handle), "", nil, nil); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
