package datagokr

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
)

const (
	SourceID   = "datagokr"
	SourceName = "data.go.kr business announcements"

	maxRawBody = 2048
)

// Config holds listing API configuration.
type Config struct {
	BaseURL           string
	ServiceKey        string
	PageSize          int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Source fetches one day of announcements for one department. Only the
// first page is requested; PageSize must cover a day's volume.
type Source struct {
	http       *resty.Client
	baseURL    string
	serviceKey string
	pageSize   int
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "*/*")
	client.SetHeader("User-Agent", "AnnouncementSyncer/1.0")

	if cfg.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &Source{
		http:       client,
		baseURL:    cfg.BaseURL,
		serviceKey: normalizeServiceKey(cfg.ServiceKey),
		pageSize:   cfg.PageSize,
		logger:     logger.With("source", SourceID),
	}
}

// normalizeServiceKey accepts the key in either of the forms data.go.kr
// issues it. The encoded form is decoded once so the query encoder does not
// escape it a second time.
func normalizeServiceKey(key string) string {
	if !strings.Contains(key, "%") {
		return key
	}
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

func (s *Source) ID() string {
	return SourceID
}

func (s *Source) Name() string {
	return SourceName
}

// Fetch lists everything registered on exactly date for dept.
func (s *Source) Fetch(ctx context.Context, date time.Time, dept department.Department) ([]domain.RawRecord, error) {
	day := date.Format(domain.DateLayout)
	endpoint := s.baseURL
	if dept.Endpoint != "" {
		endpoint = dept.Endpoint
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"serviceKey":    s.serviceKey,
			"pageNo":        "1",
			"numOfRows":     strconv.Itoa(s.pageSize),
			"startDate":     day,
			"endDate":       day,
			"departmentKey": dept.Key,
		}).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	body := resp.Body()
	doc, parseErr := Decode(body, resp.Header().Get("Content-Type"))

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &UpstreamHTTPError{
			StatusCode: code,
			Body:       doc,
			Raw:        truncate(string(body), maxRawBody),
		}
	}
	if parseErr != nil {
		return nil, parseErr
	}

	items, err := ExtractItems(doc)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fetched day",
		"date", day,
		"department", dept.Key,
		"items", len(items),
	)

	return items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
