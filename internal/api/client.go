// Package api talks to the shot review server that collects exported
// journals.
package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arenabot/shotfinder/pkg/core"
)

const (
	healthPath = "/healthcheck"
	uploadPath = "/api/v1/journals/add"
	// maxErrorBody caps how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Code, e.Body)
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
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the review server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("healthcheck request: %w", err)
	}
	return c.do(req, "healthcheck")
}

// Upload streams an exported journal file to the review server.
func (c *Client) Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	name := filepath.Base(filePath)
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(c.writeForm(form, name, file, meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	err = c.do(req, "upload")
	// unblocks the form writer if the request ended early
	pr.Close()
	return err
}

// writeForm writes the metadata fields then the file. The returned error
// closes the pipe so the request body fails with it.
func (c *Client) writeForm(form *multipart.Writer, name string, file io.Reader, meta core.UploadMetadata) error {
	fields := [][2]string{
		{"secret", c.apiKey},
		{"filename", name},
		{"arena", meta.Arena},
		{"sessionId", strconv.FormatUint(uint64(meta.SessionID), 10)},
		{"startTime", meta.StartTime.UTC().Format(time.RFC3339)},
		{"duration", strconv.FormatFloat(meta.Duration, 'f', 6, 64)},
		{"tag", meta.Tag},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("writing %s: %w", f[0], err)
		}
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return form.Close()
}

func (c *Client) do(req *http.Request, op string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
