// Package media mixes the audio bed and renders the vertical video by
// shelling out to ffmpeg.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/blacktop/reelpost/internal/logutil"
)

// Runner executes a media command line.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// FFmpeg runs the ffmpeg binary at Path (resolved through $PATH when bare).
type FFmpeg struct {
	Path string
}

// Run invokes ffmpeg non-interactively and folds stderr into the error.
func (f FFmpeg) Run(ctx context.Context, args ...string) error {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	logutil.Debugf("exec: %s %s", bin, strings.Join(full, " "))

	cmd := exec.CommandContext(ctx, bin, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w, stderr: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
