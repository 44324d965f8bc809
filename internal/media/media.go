package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blacktop/reelpost/internal/fsutil"
)

const (
	// DefaultAccentColor tints the header band of the render.
	DefaultAccentColor = "0xfaa33b"

	frameRate = 30
	width     = 1080
	height    = 1920
)

// Composer builds the audio bed and the final video.
type Composer struct {
	run      Runner
	ambience string
}

// NewComposer returns a Composer that loops ambiencePath under the voice.
func NewComposer(run Runner, ambiencePath string) *Composer {
	return &Composer{run: run, ambience: ambiencePath}
}

// MixAudio mixes the voice-over over the looped ambience, or renders the
// ambience alone when voicePath is empty. It returns a temp mp3 path.
func (c *Composer) MixAudio(ctx context.Context, voicePath string, d time.Duration) (string, error) {
	if d <= 0 {
		return "", errors.New("mix audio: duration must be positive")
	}
	if _, err := os.Stat(c.ambience); err != nil {
		return "", fmt.Errorf("mix audio: ambience track: %w", err)
	}

	var (
		out  string
		args []string
	)
	if voicePath != "" {
		out = fsutil.TempPath("mix", "mp3")
		args = []string{
			"-i", voicePath,
			"-i", c.ambience,
			"-filter_complex", strings.Join([]string{
				"[0:a]volume=1.1[a0]",
				"[1:a]volume=0.25,aloop=loop=-1:size=2e+09[a1]",
				"[a0][a1]amix=inputs=2:duration=first:dropout_transition=2[aout]",
			}, ";"),
			"-map", "[aout]",
		}
	} else {
		out = fsutil.TempPath("ambience", "mp3")
		args = []string{"-stream_loop", "-1", "-i", c.ambience}
	}
	args = append(args, "-c:a", "libmp3lame", "-ar", "44100", "-t", seconds(d), out)

	if err := c.run.Run(ctx, args...); err != nil {
		return "", fmt.Errorf("mix audio: %w", err)
	}
	return out, nil
}

// RenderConfig describes one render.
type RenderConfig struct {
	BackgroundPath string
	AudioPath      string
	Lines          []string
	Title          string
	Duration       time.Duration
	AccentColor    string
}

// Render is the output of RenderVideo. SubtitlePath is a temp file the
// caller should remove once the video is done with.
type Render struct {
	Path         string
	SubtitlePath string
}

// RenderVideo composites the background with a slow zoom, an accent band and
// burnt-in subtitles, and muxes the audio bed into a 9:16 H.264 mp4.
func (c *Composer) RenderVideo(ctx context.Context, cfg RenderConfig) (Render, error) {
	if cfg.Duration <= 0 {
		return Render{}, errors.New("render video: duration must be positive")
	}
	if cfg.BackgroundPath == "" || cfg.AudioPath == "" {
		return Render{}, errors.New("render video: background and audio are required")
	}
	accent := cfg.AccentColor
	if accent == "" {
		accent = DefaultAccentColor
	}

	subs, err := WriteSubtitles(cfg.Lines, cfg.Duration.Seconds())
	if err != nil {
		return Render{}, fmt.Errorf("render video: %w", err)
	}

	name := fsutil.TempID("reel")
	if s := fsutil.Slug(cfg.Title); s != "" {
		name += "-" + s
	}
	out := filepath.Join(os.TempDir(), name+".mp4")

	frames := int(cfg.Duration.Seconds() * frameRate)
	filter := strings.Join([]string{
		fmt.Sprintf("[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
			"zoompan=z='min(zoom+0.0012,1.08)':d=%d:s=%dx%d,"+
			"eq=brightness=0.03:saturation=1.2:contrast=1.05[v0]",
			width, height, width, height, frames, width, height),
		fmt.Sprintf("[v0]drawbox=0:0:iw:160:color=%s@0.35:t=fill,format=yuv420p,ass='%s'[vout]",
			accent, strings.ReplaceAll(subs, "'", `\'`)),
	}, ";")

	args := []string{
		"-loop", "1",
		"-i", cfg.BackgroundPath,
		"-i", cfg.AudioPath,
		"-filter_complex", filter,
		"-map", "[vout]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "high",
		"-pix_fmt", "yuv420p",
		"-t", seconds(cfg.Duration),
		"-shortest",
		"-c:a", "aac",
		"-b:a", "160k",
		"-metadata", "encoded_by=reelpost",
		"-metadata", "title=" + cfg.Title,
		out,
	}
	if err := c.run.Run(ctx, args...); err != nil {
		os.Remove(subs)
		return Render{}, fmt.Errorf("render video: %w", err)
	}
	return Render{Path: out, SubtitlePath: subs}, nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
