package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eddiefleurent/apobacktest/internal/models"
	"github.com/eddiefleurent/apobacktest/internal/retry"
)

const defaultTimeout = 30 * time.Second

// StatusError is a non-2xx response from an HTTP source.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// Temporary reports whether a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// HTTPSource fetches {BaseURL}/{SYMBOL}.csv?from=YYYY-MM-DD&to=YYYY-MM-DD.
type HTTPSource struct {
	BaseURL       string
	AdjustedClose bool

	client *http.Client
	retry  *retry.Client
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource returns an HTTPSource. A nil client gets a default with a 30s timeout;
// a nil retrier uses retry.DefaultConfig.
func NewHTTPSource(baseURL string, client *http.Client, retrier *retry.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if retrier == nil {
		retrier = retry.NewClient(nil)
	}
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		retry:   retrier,
	}
}

// CacheVariant implements Variant.
func (h *HTTPSource) CacheVariant() string {
	return fmt.Sprintf("http:%s:adjusted=%t", h.BaseURL, h.AdjustedClose)
}

// FetchBars implements Source.
func (h *HTTPSource) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	endpoint := h.endpoint(symbol, from, to)
	bars, err := retry.Do(ctx, h.retry, "fetch "+strings.ToUpper(symbol), func(ctx context.Context) ([]models.Bar, error) {
		return h.get(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}
	return finish(bars, from, to, h.AdjustedClose)
}

func (h *HTTPSource) endpoint(symbol string, from, to time.Time) string {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		q.Set("to", to.Format("2006-01-02"))
	}
	u := h.BaseURL + "/" + url.PathEscape(strings.ToUpper(symbol)) + ".csv"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (h *HTTPSource) get(ctx context.Context, endpoint string) ([]models.Bar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("User-Agent", "apobacktest/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10)) // 4KB is plenty for an error message
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return ParseCSV(resp.Body)
}
