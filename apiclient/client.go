// Package apiclient is a Go client for the pricewatch HTTP API. It drives
// the resumable batch endpoints to completion the way a report consumer
// must: call with start index 0, re-call with resume_from while the answer
// is partial, and merge the reports in order.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/pricewatch/models"
)

// DefaultBaseURL is used when no base URL is given.
const DefaultBaseURL = "http://127.0.0.1:8080"

// maxRounds bounds a resumption chain; each round processes at least one
// product, so this is only reached for lists beyond any sane size.
const maxRounds = 100000

// Client calls the pricewatch API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL. Each HTTP call is bounded by timeout,
// which must exceed the server's batch deadline.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Error is a non-2xx API answer.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("pricewatch api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("pricewatch api: HTTP %d: [%s] %s", e.StatusCode, e.Code, e.Message)
}

// Progress is called after every batch round.
type Progress func(processed, total int)

// RunBatch posts products until every one is processed and returns the
// merged reports in input order.
func (c *Client) RunBatch(ctx context.Context, products []models.Product, progress Progress) ([]models.ProductReport, error) {
	return c.resume(ctx, progress, func(start int) (*http.Request, error) {
		body, err := json.Marshal(models.BatchRequest{Products: products, StartIndex: start})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/batch", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// RunWorkbook uploads an .xlsx product list until every product is
// processed. The workbook is re-sent on every round.
func (c *Client) RunWorkbook(ctx context.Context, filename string, workbook []byte, progress Progress) ([]models.ProductReport, error) {
	return c.resume(ctx, progress, func(start int) (*http.Request, error) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(workbook); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}

		u := c.baseURL + "/api/v1/upload?startIndex=" + strconv.Itoa(start)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	})
}

func (c *Client) resume(ctx context.Context, progress Progress, newRequest func(start int) (*http.Request, error)) ([]models.ProductReport, error) {
	var (
		reports []models.ProductReport
		start   int
	)
	for round := 0; round < maxRounds; round++ {
		req, err := newRequest(start)
		if err != nil {
			return nil, err
		}

		var resp models.BatchResponse
		if err := c.do(req, &resp); err != nil {
			return nil, err
		}
		reports = append(reports, resp.Reports...)
		if progress != nil {
			progress(start+resp.ProcessedCount, resp.TotalCount)
		}

		if resp.Status == models.BatchComplete {
			return reports, nil
		}
		if resp.ResumeFrom <= start {
			return nil, fmt.Errorf("pricewatch api: resume cursor did not advance (%d -> %d)", start, resp.ResumeFrom)
		}
		slog.Debug("batch partial, resuming", "resume_from", resp.ResumeFrom, "total", resp.TotalCount)
		start = resp.ResumeFrom

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, errors.New("pricewatch api: too many batch rounds")
}

// Extract runs one competitor lookup.
func (c *Client) Extract(ctx context.Context, pageURL, competitor string) (*models.ExtractResponse, error) {
	var out models.ExtractResponse
	if err := c.postJSON(ctx, "/api/v1/extract", models.ExtractRequest{URL: pageURL, Competitor: competitor}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Competitors lists the supported competitor ids.
func (c *Client) Competitors(ctx context.Context) ([]models.CompetitorID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/competitors", nil)
	if err != nil {
		return nil, err
	}
	var out models.CompetitorsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Competitors, nil
}

// Export renders reports as an .xlsx workbook on the server and copies it
// to w.
func (c *Client) Export(ctx context.Context, reports []models.ProductReport, competitors []models.CompetitorID, w io.Writer) error {
	body, err := json.Marshal(models.ExportRequest{Reports: reports, Competitors: competitors})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/report/export", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pricewatch api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do sends req and decodes a 200/206 JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pricewatch api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pricewatch api: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	var body models.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil && body.Error != nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

// BaseURLFromEnv returns PRICEWATCH_API_URL or DefaultBaseURL.
func BaseURLFromEnv(getenv func(string) string) string {
	if v := getenv("PRICEWATCH_API_URL"); v != "" {
		if _, err := url.Parse(v); err == nil {
			return v
		}
	}
	return DefaultBaseURL
}
