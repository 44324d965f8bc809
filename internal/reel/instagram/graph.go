package instagram

import (
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ContainerStatus is the status_code reported for a media container.
// Values other than the ones below are treated as still in progress.
type ContainerStatus string

const (
	StatusProcessing ContainerStatus = "PROCESSING"
	StatusFinished   ContainerStatus = "FINISHED"
	StatusError      ContainerStatus = "ERROR"
)

type createContainerBody struct {
	MediaType   string `json:"media_type"`
	VideoURL    string `json:"video_url"`
	Caption     string `json:"caption"`
	ShareToFeed bool   `json:"share_to_feed"`
}

type publishBody struct {
	CreationID string `json:"creation_id"`
}

type idResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	StatusCode ContainerStatus `json:"status_code"`
	Status     string          `json:"status"`
}

type permalinkResponse struct {
	Permalink string `json:"permalink"`
}

// GraphError is an error reported by the Graph API, or a non-2xx response
// that did not carry one.
type GraphError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	TraceID    string `json:"fbtrace_id"`
}

func (e *GraphError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "unknown Graph API error"
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d, http %d)", msg, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s (http %d)", msg, e.StatusCode)
}

type graphErrorEnvelope struct {
	Error *GraphError `json:"error"`
}

// upstreamError folds a resty call result into a single error carrying the
// upstream message, or nil when the call succeeded.
func upstreamError(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	if env, ok := resp.Error().(*graphErrorEnvelope); ok && env != nil && env.Error != nil {
		env.Error.StatusCode = resp.StatusCode()
		return env.Error
	}
	body := strings.TrimSpace(resp.String())
	if body == "" {
		body = resp.Status()
	}
	return &GraphError{StatusCode: resp.StatusCode(), Message: body}
}
