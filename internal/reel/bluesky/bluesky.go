// Package bluesky announces published reels on Bluesky.
package bluesky

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/blacktop/reelpost/internal/reel"
	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

const (
	EnvHandle      = "REELPOST_BLUESKY_HANDLE"
	EnvAppPassword = "REELPOST_BLUESKY_APP_PASSWORD"
	EnvPDSURL      = "REELPOST_BLUESKY_PDS_URL"

	DefaultPDSURL = "https://bsky.social"

	providerName   = "bluesky"
	maxGraphemes   = 300
	requestTimeout = 30 * time.Second
	userAgent      = "reelpost/1"
)

// Config identifies the account. Use an app password, never the main one.
type Config struct {
	Handle      string
	AppPassword string
	PDSURL      string
}

// ConfigFromEnv reads Config through getenv. The PDS defaults to bsky.social.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Handle:      strings.TrimPrefix(strings.TrimSpace(getenv(EnvHandle)), "@"),
		AppPassword: strings.TrimSpace(getenv(EnvAppPassword)),
		PDSURL:      strings.TrimRight(strings.TrimSpace(getenv(EnvPDSURL)), "/"),
	}
	if cfg.PDSURL == "" {
		cfg.PDSURL = DefaultPDSURL
	}
	var missing []string
	if cfg.Handle == "" {
		missing = append(missing, EnvHandle)
	}
	if cfg.AppPassword == "" {
		missing = append(missing, EnvAppPassword)
	}
	if len(missing) > 0 {
		return Config{}, reel.MissingEnvError{Provider: providerName, Variables: missing}
	}
	return cfg, nil
}

// Client posts to the authenticated account's repo.
type Client struct {
	xrpc *xrpc.Client
}

// New logs in and returns a Client bound to the session.
func New(ctx context.Context, cfg Config) (*Client, error) {
	ua := userAgent
	client := &xrpc.Client{
		Client:    &http.Client{Timeout: requestTimeout},
		Host:      cfg.PDSURL,
		UserAgent: &ua,
	}
	session, err := atproto.ServerCreateSession(ctx, client, &atproto.ServerCreateSession_Input{
		Identifier: cfg.Handle,
		Password:   cfg.AppPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}
	logutil.Debugf("bluesky session: did=%s", session.Did)
	return &Client{xrpc: client}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Post creates an app.bsky.feed.post record. The reel link is made
// clickable with a link facet and the cover is embedded as an image.
func (c *Client) Post(ctx context.Context, post reel.Post) error {
	record := Record(post, time.Now())
	if post.ImagePath != "" {
		blob, err := c.uploadImage(ctx, post.ImagePath)
		if err != nil {
			return err
		}
		record.Embed = &bsky.FeedPost_Embed{
			EmbedImages: &bsky.EmbedImages{
				LexiconTypeID: "app.bsky.embed.images",
				Images:        []*bsky.EmbedImages_Image{{Alt: post.ImageAlt, Image: blob}},
			},
		}
	}

	out, err := atproto.RepoCreateRecord(ctx, c.xrpc, &atproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.xrpc.Auth.Did,
		Record:     &util.LexiconTypeDecoder{Val: record},
	})
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	logutil.Debugf("bluesky post created: uri=%s", out.Uri)
	return nil
}

// Record builds the post record for post without any embed.
func Record(post reel.Post, now time.Time) *bsky.FeedPost {
	text := post.Compose(maxGraphemes, 0)
	record := &bsky.FeedPost{
		LexiconTypeID: "app.bsky.feed.post",
		CreatedAt:     now.UTC().Format(time.RFC3339),
		Text:          text,
	}
	if link := strings.TrimSpace(post.Link); link != "" {
		// facet offsets are UTF-8 byte offsets
		if start := strings.LastIndex(text, link); start >= 0 {
			record.Facets = []*bsky.RichtextFacet{{
				Index: &bsky.RichtextFacet_ByteSlice{
					ByteStart: int64(start),
					ByteEnd:   int64(start + len(link)),
				},
				Features: []*bsky.RichtextFacet_Features_Elem{{
					RichtextFacet_Link: &bsky.RichtextFacet_Link{
						LexiconTypeID: "app.bsky.richtext.facet#link",
						Uri:           link,
					},
				}},
			}}
		}
	}
	return record
}

func (c *Client) uploadImage(ctx context.Context, path string) (*util.LexBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, reel.ValidationError{Provider: providerName, Reason: fmt.Sprintf("image %q not found", path)}
		}
		return nil, fmt.Errorf("read image: %w", err)
	}
	resp, err := atproto.RepoUploadBlob(ctx, c.xrpc, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}
	if resp.Blob == nil {
		return nil, errors.New("upload blob: empty response")
	}
	return resp.Blob, nil
}
