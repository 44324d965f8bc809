package reel

import (
	"context"
	"encoding/json"
	"strings"
)

// PublishRequest is the payload handed to the reel publisher.
// VideoURL must be reachable by the remote platform, not a local path.
type PublishRequest struct {
	VideoURL string
	Caption  string
}

// Credentials identify the business account that owns the reel.
type Credentials struct {
	AccountID   string
	AccessToken string
}

// Missing reports whether either half of the credential pair is absent.
func (c Credentials) Missing() bool {
	return strings.TrimSpace(c.AccountID) == "" || strings.TrimSpace(c.AccessToken) == ""
}

// Status tags a PublishOutcome.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusPublished Status = "success"
)

// PublishOutcome is the terminal result of a publish attempt. Exactly one of
// Reason (skipped) or MediaID (published) is set. An empty Permalink means the
// lookup failed after a successful publish.
type PublishOutcome struct {
	Status    Status  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
	MediaID   string  `json:"mediaId,omitempty"`
	Permalink *string `json:"permalink,omitempty"`
}

// Skipped builds an outcome for a publish that never reached the network.
func Skipped(reason string) PublishOutcome {
	return PublishOutcome{Status: StatusSkipped, Reason: reason}
}

// Published builds a success outcome. An empty permalink is recorded as absent.
func Published(mediaID, permalink string) PublishOutcome {
	out := PublishOutcome{Status: StatusPublished, MediaID: mediaID}
	if permalink != "" {
		out.Permalink = &permalink
	}
	return out
}

// IsPublished reports whether the outcome is a success.
func (o PublishOutcome) IsPublished() bool { return o.Status == StatusPublished }

// PermalinkOrEmpty dereferences Permalink.
func (o PublishOutcome) PermalinkOrEmpty() string {
	if o.Permalink == nil {
		return ""
	}
	return *o.Permalink
}

// MarshalJSON renders the union the way callers of the automation expect:
// skipped outcomes carry only a reason, published ones always carry a
// permalink key, null when the lookup failed.
func (o PublishOutcome) MarshalJSON() ([]byte, error) {
	if o.Status == StatusPublished {
		return json.Marshal(struct {
			Status    Status  `json:"status"`
			MediaID   string  `json:"mediaId"`
			Permalink *string `json:"permalink"`
		}{o.Status, o.MediaID, o.Permalink})
	}
	return json.Marshal(struct {
		Status Status `json:"status"`
		Reason string `json:"reason"`
	}{o.Status, o.Reason})
}

// Post is the announcement shared to secondary networks once a reel is live.
type Post struct {
	Message   string
	Link      string
	ImagePath string
	ImageAlt  string
}

// Poster abstracts a social network that can announce a published reel.
type Poster interface {
	Name() string
	Post(ctx context.Context, post Post) error
}
