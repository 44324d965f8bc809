package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/blacktop/reelpost/internal/reel"
	"github.com/blacktop/reelpost/internal/reel/bluesky"
	"github.com/blacktop/reelpost/internal/reel/mastodon"
	"github.com/blacktop/reelpost/internal/reel/twitter"
)

var allTargets = []string{"bluesky", "mastodon", "twitter"}

// normalizeTargets lowercases, dedups and sorts the announce targets. No
// values means no announcements.
func normalizeTargets(values []string) ([]string, error) {
	var out []string
	for _, raw := range values {
		raw = strings.ToLower(strings.TrimSpace(raw))
		switch {
		case raw == "":
			continue
		case raw == "all":
			return slices.Clone(allTargets), nil
		case !slices.Contains(allTargets, raw):
			return nil, fmt.Errorf("unsupported announce target %q (want %s or all)", raw, strings.Join(allTargets, ", "))
		case !slices.Contains(out, raw):
			out = append(out, raw)
		}
	}
	slices.Sort(out)
	return out, nil
}

// buildPosters constructs a poster per target. A target that cannot be set
// up is logged and left out so the reel still publishes.
func buildPosters(ctx context.Context, targets []string, getenv func(string) string) []reel.Poster {
	constructors := map[string]func() (reel.Poster, error){
		"bluesky": func() (reel.Poster, error) {
			cfg, err := bluesky.ConfigFromEnv(getenv)
			if err != nil {
				return nil, err
			}
			return bluesky.New(ctx, cfg)
		},
		"mastodon": func() (reel.Poster, error) {
			cfg, err := mastodon.ConfigFromEnv(getenv)
			if err != nil {
				return nil, err
			}
			return mastodon.New(cfg), nil
		},
		"twitter": func() (reel.Poster, error) {
			cfg, err := twitter.ConfigFromEnv(getenv)
			if err != nil {
				return nil, err
			}
			return twitter.New(cfg)
		},
	}

	posters := make([]reel.Poster, 0, len(targets))
	for _, target := range targets {
		newPoster, ok := constructors[target]
		if !ok {
			logutil.Warnf("announce target %q is not implemented", target)
			continue
		}
		poster, err := newPoster()
		if err != nil {
			logutil.Warnf("skip %s announcement: %v", target, err)
			continue
		}
		posters = append(posters, poster)
	}
	return posters
}
