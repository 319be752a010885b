// Package gmail fetches Gmail threads, including PDF attachments, and
// converts them to email threads the intake workflow accepts.
package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/JaimeStill/intake/internal/email"
)

// ErrNoToken indicates no cached OAuth token exists yet.
var ErrNoToken = errors.New("no gmail token; run the authorization flow first")

// Client reads threads from one mailbox.
type Client struct {
	srv    *gm.Service
	user   string
	logger *slog.Logger
}

// OAuthConfig loads the OAuth client from the credentials file with the
// read-only Gmail scope.
func OAuthConfig(cfg *Config) (*oauth2.Config, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	oc, err := google.ConfigFromJSON(b, gm.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	return oc, nil
}

// New creates a Client from the credentials and cached token in cfg.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Client, error) {
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tok, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := gm.NewService(ctx, option.WithHTTPClient(oc.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return &Client{
		srv:    srv,
		user:   cfg.User,
		logger: logger.With("system", "gmail"),
	}, nil
}

// LoadToken reads a cached OAuth token. A missing file yields ErrNoToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return tok, nil
}

// SaveToken writes tok to path readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("save oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// Authorize exchanges an authorization code obtained from AuthURL for a token
// and caches it.
func Authorize(ctx context.Context, cfg *Config, code string) error {
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return err
	}
	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return SaveToken(cfg.TokenFile, tok)
}

// AuthURL returns the consent URL for offline access.
func AuthURL(cfg *Config) (string, error) {
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return "", err
	}
	return oc.AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// Thread fetches a thread with full message payloads and resolves PDF
// attachment data.
func (c *Client) Thread(ctx context.Context, id string) (*email.Thread, error) {
	t, err := c.srv.Users.Threads.Get(c.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", id, err)
	}

	thread, err := Convert(t, func(messageID, attachmentID string) ([]byte, error) {
		body, err := c.srv.Users.Messages.Attachments.Get(c.user, messageID, attachmentID).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return decode(body.Data)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "thread fetched",
		"thread_id", id,
		"messages", len(thread.Messages),
		"attachments", len(thread.Attachments),
	)
	return thread, nil
}
