package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/blacktop/reelpost/internal/reel"
	"github.com/go-resty/resty/v2"
)

const (
	providerName = "instagram"

	// DefaultGraphURL is the versioned Graph API root.
	DefaultGraphURL = "https://graph.facebook.com/v18.0"
	// DefaultMaxAttempts and DefaultPollInterval bound the readiness wait.
	DefaultMaxAttempts  = 12
	DefaultPollInterval = 5 * time.Second

	requestTimeout = 30 * time.Second
	userAgent      = "reelpost/1"
)

var (
	// ErrContainerFailed is returned when the container reports status ERROR.
	ErrContainerFailed = errors.New("container failed to finish processing")
	// ErrContainerTimeout is returned when every poll attempt is used up
	// before the container reports FINISHED.
	ErrContainerTimeout = errors.New("timed out waiting for container to finish processing")
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Config tunes the publisher. Zero values fall back to the defaults above.
type Config struct {
	GraphURL     string
	MaxAttempts  int
	PollInterval time.Duration
	HTTPClient   *http.Client
	Wait         WaitFunc
}

// Publisher drives the Reels container handshake against the Graph API.
// It keeps no per-call state and is safe for concurrent use.
type Publisher struct {
	api          *resty.Client
	maxAttempts  int
	pollInterval time.Duration
	wait         WaitFunc
}

// New constructs a Publisher.
func New(cfg Config) *Publisher {
	var api *resty.Client
	if cfg.HTTPClient != nil {
		api = resty.NewWithClient(cfg.HTTPClient)
	} else {
		api = resty.New().SetTimeout(requestTimeout)
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.GraphURL), "/")
	if base == "" {
		base = DefaultGraphURL
	}
	api.SetBaseURL(base).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	p := &Publisher{
		api:          api,
		maxAttempts:  cfg.MaxAttempts,
		pollInterval: cfg.PollInterval,
		wait:         cfg.Wait,
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	if p.pollInterval <= 0 {
		p.pollInterval = DefaultPollInterval
	}
	if p.wait == nil {
		p.wait = sleep
	}
	return p
}

// Name returns the provider identifier.
func (p *Publisher) Name() string { return providerName }

// Publish creates a Reels container for req.VideoURL, waits for the platform
// to finish processing it, publishes it and looks up its permalink.
//
// Missing credentials produce a skipped outcome without any network call.
// Container creation and publication are not idempotent: calling Publish
// twice for the same video creates two containers and possibly two posts.
func (p *Publisher) Publish(ctx context.Context, req reel.PublishRequest, creds reel.Credentials) (reel.PublishOutcome, error) {
	if creds.Missing() {
		return reel.Skipped("missing credentials: INSTAGRAM_BUSINESS_ACCOUNT_ID or FACEBOOK_GRAPH_ACCESS_TOKEN not set"), nil
	}
	if err := validateRequest(req); err != nil {
		return reel.PublishOutcome{}, err
	}

	accountID := strings.TrimSpace(creds.AccountID)
	token := strings.TrimSpace(creds.AccessToken)

	logutil.Debugf("creating reel container: account=%s video_url=%s", accountID, req.VideoURL)
	creationID, err := p.createContainer(ctx, accountID, token, req)
	if err != nil {
		return reel.PublishOutcome{}, fmt.Errorf("create media container: %w", err)
	}
	logutil.Debugf("container created: creation_id=%s", creationID)

	if err := p.waitForContainer(ctx, creationID, token); err != nil {
		return reel.PublishOutcome{}, err
	}

	mediaID, err := p.publishContainer(ctx, accountID, token, creationID)
	if err != nil {
		return reel.PublishOutcome{}, fmt.Errorf("publish reel: %w", err)
	}
	logutil.Infof("reel published: media_id=%s", mediaID)

	return reel.Published(mediaID, p.lookupPermalink(ctx, mediaID, token)), nil
}

func (p *Publisher) createContainer(ctx context.Context, accountID, token string, req reel.PublishRequest) (string, error) {
	var (
		result idResponse
		apiErr graphErrorEnvelope
	)
	resp, err := p.api.R().
		SetContext(ctx).
		SetPathParam("accountID", accountID).
		SetQueryParam("access_token", token).
		SetBody(createContainerBody{
			MediaType:   "REELS",
			VideoURL:    req.VideoURL,
			Caption:     req.Caption,
			ShareToFeed: true,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/{accountID}/media")
	if err := upstreamError(resp, err); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("response did not include a creation id")
	}
	return result.ID, nil
}

// waitForContainer polls the container status up to maxAttempts times with a
// fixed pause between attempts. Only "not finished yet" is retried; a failed
// status request ends the wait immediately.
func (p *Publisher) waitForContainer(ctx context.Context, creationID, token string) error {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		status, err := p.containerStatus(ctx, creationID, token)
		if err != nil {
			return fmt.Errorf("poll container status: %w", err)
		}
		logutil.Debugf("container status: creation_id=%s attempt=%d/%d status_code=%s", creationID, attempt, p.maxAttempts, status.StatusCode)

		switch status.StatusCode {
		case StatusFinished:
			return nil
		case StatusError:
			if detail := strings.TrimSpace(status.Status); detail != "" {
				return fmt.Errorf("%w: %s", ErrContainerFailed, detail)
			}
			return ErrContainerFailed
		}

		if attempt < p.maxAttempts {
			if err := p.wait(ctx, p.pollInterval); err != nil {
				return fmt.Errorf("wait for container %s: %w", creationID, err)
			}
		}
	}
	return fmt.Errorf("%w (%d attempts, %s apart)", ErrContainerTimeout, p.maxAttempts, p.pollInterval)
}

func (p *Publisher) containerStatus(ctx context.Context, creationID, token string) (statusResponse, error) {
	var (
		result statusResponse
		apiErr graphErrorEnvelope
	)
	resp, err := p.api.R().
		SetContext(ctx).
		SetPathParam("creationID", creationID).
		SetQueryParams(map[string]string{
			"fields":       "status_code,status",
			"access_token": token,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Get("/{creationID}")
	if err := upstreamError(resp, err); err != nil {
		return statusResponse{}, err
	}
	return result, nil
}

func (p *Publisher) publishContainer(ctx context.Context, accountID, token, creationID string) (string, error) {
	var (
		result idResponse
		apiErr graphErrorEnvelope
	)
	resp, err := p.api.R().
		SetContext(ctx).
		SetPathParam("accountID", accountID).
		SetQueryParam("access_token", token).
		SetBody(publishBody{CreationID: creationID}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/{accountID}/media_publish")
	if err := upstreamError(resp, err); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("response did not include a media id")
	}
	return result.ID, nil
}

// lookupPermalink never fails the publish: the reel is already live, so a
// failed lookup is logged and reported as an empty permalink.
func (p *Publisher) lookupPermalink(ctx context.Context, mediaID, token string) string {
	var (
		result permalinkResponse
		apiErr graphErrorEnvelope
	)
	resp, err := p.api.R().
		SetContext(ctx).
		SetPathParam("mediaID", mediaID).
		SetQueryParams(map[string]string{
			"fields":       "permalink",
			"access_token": token,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Get("/{mediaID}")
	if err := upstreamError(resp, err); err != nil {
		logutil.Warnf("fetch permalink for media %s: %v", mediaID, err)
		return ""
	}
	return strings.TrimSpace(result.Permalink)
}

func validateRequest(req reel.PublishRequest) error {
	raw := strings.TrimSpace(req.VideoURL)
	if raw == "" {
		return reel.ValidationError{Provider: providerName, Reason: "video url is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return reel.ValidationError{Provider: providerName, Reason: fmt.Sprintf("video url %q must be a public http(s) URL", raw)}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
