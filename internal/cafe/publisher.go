// Package cafe posts announcements to a Naver Cafe board on behalf of a user.
package cafe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"announcement_syncer/internal/domain"
)

const Provider = "naver"

type CredentialStore interface {
	Get(ctx context.Context, userID, provider string) (*domain.Credential, error)
}

type Config struct {
	BaseURL string
	CafeID  string
	MenuID  string
	Timeout time.Duration
}

type Publisher struct {
	http   *resty.Client
	creds  CredentialStore
	path   string
	logger *slog.Logger
	now    func() time.Time
}

func New(cfg Config, creds CredentialStore, logger *slog.Logger) *Publisher {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)

	return &Publisher{
		http:   client,
		creds:  creds,
		path:   fmt.Sprintf("/v1/cafe/%s/menu/%s/articles", url.PathEscape(cfg.CafeID), url.PathEscape(cfg.MenuID)),
		logger: logger.With("component", "cafe"),
		now:    time.Now,
	}
}

// Publish writes post to the configured cafe menu as userID and returns the
// platform's response body. Nothing is retried.
func (p *Publisher) Publish(ctx context.Context, userID string, post domain.Post) (json.RawMessage, error) {
	cred, err := p.creds.Get(ctx, userID, Provider)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil || cred.AccessToken == "" {
		return nil, &AuthCredentialError{Reason: ErrCredentialMissing}
	}
	if cred.Expired(p.now()) {
		return nil, &AuthCredentialError{Reason: ErrCredentialExpired}
	}

	p.logger.Info("publishing cafe post",
		"user_id", userID,
		"title", post.Title,
		"has_view_url", post.ViewURL != "",
	)

	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(cred.AccessToken).
		SetFormData(map[string]string{
			"subject": encodeComponent(post.Title),
			"content": encodeComponent(body(post)),
		}).
		Post(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	if !resp.IsSuccess() {
		perr := classify(resp.StatusCode(), resp.Body())
		p.logger.Error("cafe API error",
			"status", resp.StatusCode(),
			"body", string(resp.Body()),
		)
		return nil, perr
	}

	raw := resp.Body()
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(string(raw))
		return quoted, nil
	}
	return json.RawMessage(raw), nil
}

// body appends the source link to the post content.
func body(post domain.Post) string {
	switch {
	case post.ViewURL == "":
		return post.Content
	case strings.TrimSpace(post.Content) == "":
		return post.ViewURL
	default:
		return post.Content + "\n\n원문 링크: " + post.ViewURL
	}
}

func classify(status int, raw []byte) *PublishHTTPError {
	perr := &PublishHTTPError{StatusCode: status, Body: string(raw)}

	switch {
	case status == http.StatusUnauthorized:
		perr.Kind = ErrUnauthorized
	case status == http.StatusForbidden:
		perr.Kind = ErrForbidden
	case status == http.StatusNotFound:
		perr.Kind = ErrNotFound
	case status >= http.StatusInternalServerError:
		perr.Kind = ErrPlatform
	default:
		perr.Kind = ErrPublishFailed
		var envelope struct {
			Message struct {
				Error struct {
					Msg string `json:"msg"`
				} `json:"error"`
			} `json:"message"`
		}
		if json.Unmarshal(raw, &envelope) == nil {
			perr.Message = envelope.Message.Error.Msg
		}
	}

	return perr
}

// encodeComponent percent-encodes s the way the cafe API expects subject
// and content, with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
