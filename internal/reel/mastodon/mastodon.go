// Package mastodon announces published reels on a Mastodon instance.
package mastodon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/blacktop/reelpost/internal/reel"
	mastodonapi "github.com/mattn/go-mastodon"
)

const (
	EnvServer       = "REELPOST_MASTODON_SERVER"
	EnvAccessToken  = "REELPOST_MASTODON_ACCESS_TOKEN"
	EnvClientID     = "REELPOST_MASTODON_CLIENT_ID"
	EnvClientSecret = "REELPOST_MASTODON_CLIENT_SECRET"
	EnvVisibility   = "REELPOST_MASTODON_VISIBILITY"

	providerName   = "mastodon"
	maxChars       = 500
	requestTimeout = 30 * time.Second
)

// Config holds the instance URL and an access token with write:statuses and
// write:media scopes.
type Config struct {
	Server       string
	AccessToken  string
	ClientID     string
	ClientSecret string
	// Visibility is public, unlisted, private or direct. Empty uses the
	// account default.
	Visibility string
}

// ConfigFromEnv reads Config through getenv.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Server:       strings.TrimRight(strings.TrimSpace(getenv(EnvServer)), "/"),
		AccessToken:  strings.TrimSpace(getenv(EnvAccessToken)),
		ClientID:     strings.TrimSpace(getenv(EnvClientID)),
		ClientSecret: strings.TrimSpace(getenv(EnvClientSecret)),
		Visibility:   strings.ToLower(strings.TrimSpace(getenv(EnvVisibility))),
	}
	var missing []string
	if cfg.Server == "" {
		missing = append(missing, EnvServer)
	}
	if cfg.AccessToken == "" {
		missing = append(missing, EnvAccessToken)
	}
	if len(missing) > 0 {
		return Config{}, reel.MissingEnvError{Provider: providerName, Variables: missing}
	}
	switch cfg.Visibility {
	case "", "public", "unlisted", "private", "direct":
	default:
		return Config{}, reel.ValidationError{Provider: providerName, Reason: fmt.Sprintf("unknown visibility %q", cfg.Visibility)}
	}
	return cfg, nil
}

// Client posts reel announcements as statuses.
type Client struct {
	api        *mastodonapi.Client
	visibility string
}

// New builds a Client. No request is made until Post.
func New(cfg Config) *Client {
	api := mastodonapi.NewClient(&mastodonapi.Config{
		Server:       cfg.Server,
		AccessToken:  cfg.AccessToken,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	api.Timeout = requestTimeout
	return &Client{api: api, visibility: cfg.Visibility}
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Post publishes the announcement, attaching the reel cover when present.
func (c *Client) Post(ctx context.Context, post reel.Post) error {
	toot := &mastodonapi.Toot{
		Status:     post.Compose(maxChars, 0),
		Visibility: c.visibility,
	}
	if post.ImagePath != "" {
		attachment, err := c.uploadImage(ctx, post.ImagePath, post.ImageAlt)
		if err != nil {
			return err
		}
		toot.MediaIDs = []mastodonapi.ID{attachment.ID}
	}

	status, err := c.api.PostStatus(ctx, toot)
	if err != nil {
		return fmt.Errorf("post status: %w", err)
	}
	logutil.Debugf("status posted: id=%s url=%s", status.ID, status.URL)
	return nil
}

func (c *Client) uploadImage(ctx context.Context, path, alt string) (*mastodonapi.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, reel.ValidationError{Provider: providerName, Reason: fmt.Sprintf("image %q not found", path)}
		}
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	attachment, err := c.api.UploadMediaFromMedia(ctx, &mastodonapi.Media{File: f, Description: alt})
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	return attachment, nil
}
