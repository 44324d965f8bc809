// Package twitter announces published reels on X.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/blacktop/reelpost/internal/reel"
	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/media/upload"
	uploadtypes "github.com/michimani/gotwi/media/upload/types"
	"github.com/michimani/gotwi/resources"
	"github.com/michimani/gotwi/tweet/managetweet"
	managetweettypes "github.com/michimani/gotwi/tweet/managetweet/types"
)

const (
	EnvAPIKey       = "REELPOST_TWITTER_CONSUMER_KEY"
	EnvAPISecret    = "REELPOST_TWITTER_CONSUMER_SECRET"
	EnvAccessToken  = "REELPOST_TWITTER_ACCESS_TOKEN"
	EnvAccessSecret = "REELPOST_TWITTER_ACCESS_TOKEN_SECRET"

	providerName = "twitter"

	// X counts every URL as 23 characters after t.co wrapping.
	maxChars = 280
	linkCost = 23

	metadataEndpoint = "https://upload.twitter.com/1.1/media/metadata/create.json"
	requestTimeout   = 30 * time.Second
)

// Config holds OAuth 1.0a user-context credentials.
type Config struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// ConfigFromEnv reads the credentials through getenv, reporting every
// missing variable at once.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		APIKey:       strings.TrimSpace(getenv(EnvAPIKey)),
		APISecret:    strings.TrimSpace(getenv(EnvAPISecret)),
		AccessToken:  strings.TrimSpace(getenv(EnvAccessToken)),
		AccessSecret: strings.TrimSpace(getenv(EnvAccessSecret)),
	}
	var missing []string
	for _, v := range []struct{ name, value string }{
		{EnvAPIKey, cfg.APIKey},
		{EnvAPISecret, cfg.APISecret},
		{EnvAccessToken, cfg.AccessToken},
		{EnvAccessSecret, cfg.AccessSecret},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return Config{}, reel.MissingEnvError{Provider: providerName, Variables: missing}
	}
	return cfg, nil
}

// Client posts reel announcements to X.
type Client struct {
	api *gotwi.Client
}

// New builds an X client from cfg.
func New(cfg Config) (*Client, error) {
	api, err := gotwi.NewClient(&gotwi.NewClientInput{
		HTTPClient:           &http.Client{Timeout: requestTimeout},
		AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
		OAuthToken:           cfg.AccessToken,
		OAuthTokenSecret:     cfg.AccessSecret,
		APIKey:               cfg.APIKey,
		APIKeySecret:         cfg.APISecret,
		Debug:                logutil.Verbose(),
	})
	if err != nil {
		return nil, fmt.Errorf("create X client: %w", err)
	}
	if !api.IsReady() {
		return nil, errors.New("X client not ready")
	}
	return &Client{api: api}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return providerName }

// Post tweets the announcement with the reel cover attached.
func (c *Client) Post(ctx context.Context, post reel.Post) error {
	input := &managetweettypes.CreateInput{
		Text: gotwi.String(Text(post)),
	}
	if strings.TrimSpace(post.ImagePath) != "" {
		mediaID, err := c.uploadImage(ctx, post.ImagePath, post.ImageAlt)
		if err != nil {
			return err
		}
		input.Media = &managetweettypes.CreateInputMedia{MediaIDs: []string{mediaID}}
	}

	if _, err := managetweet.Create(ctx, c.api, input); err != nil {
		return fmt.Errorf("post tweet: %w", unwrapGotwiError(err))
	}
	logutil.Debugf("tweet posted: media=%t", input.Media != nil)
	return nil
}

// Text is the tweet body for post.
func Text(post reel.Post) string {
	return post.Compose(maxChars, linkCost)
}

func (c *Client) uploadImage(ctx context.Context, path, alt string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", reel.ValidationError{Provider: providerName, Reason: fmt.Sprintf("image %q not found", path)}
		}
		return "", fmt.Errorf("read image: %w", err)
	}
	mediaType, err := imageType(path, data)
	if err != nil {
		return "", err
	}

	initRes, err := upload.Initialize(ctx, c.api, &uploadtypes.InitializeInput{
		MediaType:     mediaType,
		TotalBytes:    len(data),
		MediaCategory: uploadtypes.MediaCategoryTweetImage,
	})
	if err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}
	if err := partialError(initRes.Errors); err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}
	mediaID := initRes.Data.MediaID

	appendIn := &uploadtypes.AppendInput{
		MediaID:      mediaID,
		Media:        bytes.NewReader(data),
		SegmentIndex: 0,
	}
	appendIn.GenerateBoundary()
	appendRes, err := upload.Append(ctx, c.api, appendIn)
	if err != nil {
		return "", fmt.Errorf("append upload: %w", err)
	}
	if err := partialError(appendRes.Errors); err != nil {
		return "", fmt.Errorf("append upload: %w", err)
	}

	finalRes, err := upload.Finalize(ctx, c.api, &uploadtypes.FinalizeInput{MediaID: mediaID})
	if err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	if err := partialError(finalRes.Errors); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	// images are processed synchronously; anything but these means failure
	switch state := finalRes.Data.ProcessingInfo.State; state {
	case "", resources.ProcessingInfoStateSucceeded, resources.ProcessingInfoStatePending, resources.ProcessingInfoStateInProgress:
	default:
		return "", fmt.Errorf("image processing failed: media_id=%s state=%s", mediaID, state)
	}
	logutil.Debugf("image uploaded: media_id=%s bytes=%d", mediaID, len(data))

	if alt = strings.TrimSpace(alt); alt != "" {
		if err := c.setAltText(ctx, mediaID, alt); err != nil {
			// the image is usable without a description
			logutil.Warnf("set alt text on %s: %v", mediaID, err)
		}
	}
	return mediaID, nil
}

func (c *Client) setAltText(ctx context.Context, mediaID, alt string) error {
	params := &altTextParams{mediaID: mediaID, alt: alt}
	ctx = context.WithValue(ctx, "Content-Type", "application/json;charset=UTF-8")
	if err := c.api.CallAPI(ctx, metadataEndpoint, http.MethodPost, params, &altTextResponse{}); err != nil {
		return unwrapGotwiError(err)
	}
	return nil
}

func imageType(path string, data []byte) (uploadtypes.MediaType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return uploadtypes.MediaTypeJPEG, nil
	case ".png":
		return uploadtypes.MediaTypePNG, nil
	case ".webp":
		return uploadtypes.MediaTypeWebP, nil
	}
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return uploadtypes.MediaTypeJPEG, nil
	case "image/png":
		return uploadtypes.MediaTypePNG, nil
	case "image/webp":
		return uploadtypes.MediaTypeWebP, nil
	}
	return "", reel.ValidationError{Provider: providerName, Reason: fmt.Sprintf("unsupported image type for %q", path)}
}

func partialError(partials []resources.PartialError) error {
	if len(partials) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(partials))
	for _, pe := range partials {
		switch {
		case pe.Detail != nil && *pe.Detail != "":
			msgs = append(msgs, *pe.Detail)
		case pe.Title != nil && *pe.Title != "":
			msgs = append(msgs, *pe.Title)
		}
	}
	if len(msgs) == 0 {
		return errors.New("unknown error")
	}
	return errors.New(strings.Join(msgs, "; "))
}

func unwrapGotwiError(err error) error {
	var gwErr *gotwi.GotwiError
	if !errors.As(err, &gwErr) || gwErr == nil {
		return err
	}
	parts := make([]string, 0, 2+len(gwErr.APIErrors))
	if gwErr.Title != "" {
		parts = append(parts, gwErr.Title)
	}
	if gwErr.Detail != "" {
		parts = append(parts, gwErr.Detail)
	}
	for _, apiErr := range gwErr.APIErrors {
		if apiErr.Message != "" {
			parts = append(parts, apiErr.Message)
		}
	}
	if len(parts) == 0 {
		return err
	}
	return errors.New(strings.Join(parts, "; "))
}

// altTextParams satisfies gotwi.util.Parameters for the v1.1 metadata call.
type altTextParams struct {
	mediaID     string
	alt         string
	accessToken string
}

func (p *altTextParams) SetAccessToken(token string) { p.accessToken = token }
func (p *altTextParams) AccessToken() string         { return p.accessToken }
func (p *altTextParams) ResolveEndpoint(base string) string {
	return base
}
func (p *altTextParams) ParameterMap() map[string]string { return map[string]string{} }

func (p *altTextParams) Body() (io.Reader, error) {
	var body struct {
		MediaID string `json:"media_id"`
		AltText struct {
			Text string `json:"text"`
		} `json:"alt_text"`
	}
	body.MediaID = p.mediaID
	body.AltText.Text = p.alt
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(buf), nil
}

type altTextResponse struct{}

func (altTextResponse) HasPartialError() bool { return false }
