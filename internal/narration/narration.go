// Package narration turns a script into a voice-over track.
package narration

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blacktop/reelpost/internal/fsutil"
	"github.com/blacktop/reelpost/internal/reel"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel synthesizes speech when none is configured.
const DefaultModel = "gpt-4o-mini-tts"

// Voice is one of the presets offered to users.
type Voice string

const (
	VoiceAlloy Voice = "alloy"
	VoiceVerse Voice = "verse"
	VoiceSage  Voice = "sage"
)

// Voices lists the accepted presets.
var Voices = []Voice{VoiceAlloy, VoiceVerse, VoiceSage}

// ParseVoice validates a user supplied preset; empty selects alloy.
func ParseVoice(s string) (Voice, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return VoiceAlloy, nil
	}
	for _, v := range Voices {
		if string(v) == s {
			return v, nil
		}
	}
	return "", reel.ValidationError{Provider: "narration", Reason: fmt.Sprintf("unsupported voice %q (want alloy, verse or sage)", s)}
}

type speechCreator interface {
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// Synthesizer renders speech to a temporary mp3.
type Synthesizer struct {
	client speechCreator
	model  string
}

// NewSynthesizer returns a Synthesizer. With a nil client Synthesize is a no-op.
func NewSynthesizer(client *openai.Client, model string) *Synthesizer {
	s := &Synthesizer{model: strings.TrimSpace(model)}
	if client != nil {
		s.client = client
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	return s
}

// Enabled reports whether speech can be synthesized at all.
func (s *Synthesizer) Enabled() bool { return s.client != nil }

// Synthesize returns the path of the written mp3, or "" when there is nothing
// to say or no client configured. The caller owns the file.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice Voice) (string, error) {
	if strings.TrimSpace(text) == "" || s.client == nil {
		return "", nil
	}
	if voice == "" {
		voice = VoiceAlloy
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return "", fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	path := fsutil.TempPath("voice", "mp3")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create voice file: %w", err)
	}
	if _, err := io.Copy(f, resp); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write voice file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close voice file: %w", err)
	}
	return path, nil
}
