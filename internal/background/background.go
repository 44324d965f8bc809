// Package background sources the portrait image a reel is rendered over.
package background

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blacktop/reelpost/internal/fsutil"
	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultUnsplashURL = "https://api.unsplash.com"
	requestTimeout     = 30 * time.Second
)

// Image is a background ready to render. Attribution is empty for local assets.
type Image struct {
	Path        string
	Attribution string
}

// Config wires a Source.
type Config struct {
	AccessKey   string
	UnsplashURL string
	// LocalDir holds the bundled fallback images (jpg, jpeg, png).
	LocalDir   string
	HTTPClient *http.Client
}

// Source fetches a random portrait photo from Unsplash and falls back to the
// bundled images when no key is configured or the request fails.
type Source struct {
	api       *resty.Client
	accessKey string
	localDir  string
	rng       *rand.Rand
}

// NewSource returns a Source.
func NewSource(cfg Config) *Source {
	var api *resty.Client
	if cfg.HTTPClient != nil {
		api = resty.NewWithClient(cfg.HTTPClient)
	} else {
		api = resty.New().SetTimeout(requestTimeout)
	}
	base := strings.TrimRight(cfg.UnsplashURL, "/")
	if base == "" {
		base = DefaultUnsplashURL
	}
	api.SetBaseURL(base)

	return &Source{
		api:       api,
		accessKey: strings.TrimSpace(cfg.AccessKey),
		localDir:  cfg.LocalDir,
	}
}

// WithRand makes local fallback selection deterministic.
func (s *Source) WithRand(rng *rand.Rand) *Source {
	s.rng = rng
	return s
}

type randomPhoto struct {
	URLs struct {
		Regular string `json:"regular"`
		Full    string `json:"full"`
	} `json:"urls"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	Links struct {
		HTML string `json:"html"`
	} `json:"links"`
}

// Fetch returns a background for query.
func (s *Source) Fetch(ctx context.Context, query string) (Image, error) {
	if s.accessKey != "" {
		img, err := s.fetchUnsplash(ctx, query)
		if err == nil {
			return img, nil
		}
		logutil.Warnf("source unsplash background, using local asset: %v", err)
	}
	return s.local()
}

func (s *Source) fetchUnsplash(ctx context.Context, query string) (Image, error) {
	var photo randomPhoto
	resp, err := s.api.R().
		SetContext(ctx).
		SetHeader("Authorization", "Client-ID "+s.accessKey).
		SetHeader("Accept-Version", "v1").
		SetQueryParams(map[string]string{
			"query":          query,
			"orientation":    "portrait",
			"content_filter": "high",
		}).
		SetResult(&photo).
		Get("/photos/random")
	if err != nil {
		return Image{}, fmt.Errorf("random photo: %w", err)
	}
	if resp.IsError() {
		return Image{}, fmt.Errorf("random photo: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	imageURL := photo.URLs.Regular
	if imageURL == "" {
		imageURL = photo.URLs.Full
	}
	if imageURL == "" {
		return Image{}, errors.New("random photo: response has no image url")
	}

	dest := fsutil.TempPath("bg", extension(imageURL))
	dl, err := s.api.R().SetContext(ctx).SetOutput(dest).Get(imageURL)
	if err != nil {
		os.Remove(dest)
		return Image{}, fmt.Errorf("download photo: %w", err)
	}
	if dl.IsError() {
		os.Remove(dest)
		return Image{}, fmt.Errorf("download photo: status %d", dl.StatusCode())
	}

	img := Image{Path: dest}
	if photo.User.Name != "" && photo.Links.HTML != "" {
		img.Attribution = photo.User.Name + " / Unsplash"
	}
	return img, nil
}

func (s *Source) local() (Image, error) {
	var candidates []string
	for _, pattern := range []string{"*.jpg", "*.jpeg", "*.png"} {
		matches, err := filepath.Glob(filepath.Join(s.localDir, pattern))
		if err != nil {
			return Image{}, fmt.Errorf("list local backgrounds: %w", err)
		}
		candidates = append(candidates, matches...)
	}
	if len(candidates) == 0 {
		return Image{}, fmt.Errorf("no local backgrounds found in %s", s.localDir)
	}
	sort.Strings(candidates)

	var i int
	if s.rng != nil {
		i = s.rng.IntN(len(candidates))
	} else {
		i = rand.IntN(len(candidates))
	}
	abs, err := filepath.Abs(candidates[i])
	if err != nil {
		return Image{}, err
	}
	return Image{Path: abs}, nil
}

func extension(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "jpg"
	}
	if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
		return ext
	}
	if fm := u.Query().Get("fm"); fm != "" {
		return fm
	}
	return "jpg"
}
