// Package automation runs the reel pipeline end to end: quote, script,
// narration, background, audio mix, render, upload, publish and announce.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/blacktop/reelpost/internal/background"
	"github.com/blacktop/reelpost/internal/fsutil"
	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/blacktop/reelpost/internal/media"
	"github.com/blacktop/reelpost/internal/narration"
	"github.com/blacktop/reelpost/internal/quotes"
	"github.com/blacktop/reelpost/internal/reel"
	"github.com/blacktop/reelpost/internal/story"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDuration = 15 * time.Second
	AccentColor     = "0xfaa33b"

	ReasonDisabled = "Instagram automation disabled."
	ReasonNoURL    = "No public video URL available to publish."
)

type (
	ScriptWriter interface {
		Write(ctx context.Context, req story.Request) (story.Script, bool)
	}
	Narrator interface {
		Synthesize(ctx context.Context, text string, voice narration.Voice) (string, error)
	}
	BackgroundSource interface {
		Fetch(ctx context.Context, query string) (background.Image, error)
	}
	Composer interface {
		MixAudio(ctx context.Context, voicePath string, d time.Duration) (string, error)
		RenderVideo(ctx context.Context, cfg media.RenderConfig) (media.Render, error)
	}
	Uploader interface {
		UploadVideo(ctx context.Context, filePath, name string) (string, error)
	}
	Publisher interface {
		Publish(ctx context.Context, req reel.PublishRequest, creds reel.Credentials) (reel.PublishOutcome, error)
	}
)

// Deps are the pipeline stages. Posters may be empty.
type Deps struct {
	Writer      ScriptWriter
	Narrator    Narrator
	Backgrounds BackgroundSource
	Composer    Composer
	Uploader    Uploader
	Publisher   Publisher
	Credentials reel.Credentials
	Posters     []reel.Poster
	Rand        *rand.Rand
	Now         func() time.Time
}

// Request is one automation run.
type Request struct {
	Topic           string
	Tone            string
	Emphasis        string
	Voice           narration.Voice
	Duration        time.Duration
	Hashtags        []string
	QuoteID         string
	PostToInstagram bool
}

// Step is one entry of the run log.
type Step struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Announcement records the outcome of one cross-post.
type Announcement struct {
	Target string `json:"target"`
	Error  string `json:"error,omitempty"`
}

// Result summarises a run.
type Result struct {
	Quote         quotes.Quote        `json:"quote"`
	Script        story.Script        `json:"script"`
	Caption       string              `json:"caption"`
	VideoPath     string              `json:"videoPath"`
	VideoURL      *string             `json:"videoUrl"`
	Instagram     reel.PublishOutcome `json:"instagram"`
	Announcements []Announcement      `json:"announcements,omitempty"`
	Steps         []Step              `json:"steps"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	deps Deps

	mu    sync.Mutex
	steps []Step
}

// New returns a Pipeline. A Pipeline runs one request at a time.
func New(deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps}
}

func (p *Pipeline) log(label, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, Step{
		ID:        fsutil.TempID("log"),
		Label:     label,
		Detail:    detail,
		Timestamp: p.deps.Now().UTC(),
	})
	logutil.With("step", label).Info(detail)
}

// Run executes req. On a fatal stage error the partially filled Result is
// returned alongside the error so the caller can still report the steps.
func (p *Pipeline) Run(ctx context.Context, req Request) (res Result, err error) {
	p.mu.Lock()
	p.steps = nil
	p.mu.Unlock()

	duration := req.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	var temps []string
	defer func() {
		fsutil.RemoveTemp(temps...)
		p.mu.Lock()
		res.Steps = append([]Step(nil), p.steps...)
		p.mu.Unlock()
	}()

	res.Quote, err = p.selectQuote(req.QuoteID)
	if err != nil {
		return res, err
	}
	p.log("Selected Quote", fmt.Sprintf("%s (%s)", res.Quote.Text, res.Quote.Source))

	emphasis := req.Emphasis
	if strings.TrimSpace(emphasis) == "" {
		emphasis = req.Topic
	}
	script, fromModel := p.deps.Writer.Write(ctx, story.Request{Quote: res.Quote, Tone: req.Tone, Emphasis: emphasis})
	res.Script = script
	detail := script.Full()
	if !fromModel {
		detail += " (fallback template)"
	}
	p.log("Generated Script", detail)

	// speech synthesis and the background fetch are independent network calls
	var (
		voicePath string
		bg        background.Image
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		path, err := p.deps.Narrator.Synthesize(gctx, script.Full(), req.Voice)
		if err != nil {
			return fmt.Errorf("narration: %w", err)
		}
		voicePath = path
		return nil
	})
	g.Go(func() error {
		img, err := p.deps.Backgrounds.Fetch(gctx, strings.TrimSpace(req.Topic+" krishna spiritual"))
		if err != nil {
			return fmt.Errorf("background: %w", err)
		}
		bg = img
		return nil
	})
	err = g.Wait()
	temps = append(temps, voicePath, bg.Path)
	if err != nil {
		return res, err
	}

	if voicePath != "" {
		p.log("Narration", "Synthesized voice-over using OpenAI TTS.")
	} else {
		p.log("Narration", "No TTS available, using instrumental bed only.")
	}
	if bg.Attribution != "" {
		p.log("Background", "Fetched portrait from "+bg.Attribution)
	} else {
		p.log("Background", "Using local backdrop asset.")
	}

	audioPath, err := p.deps.Composer.MixAudio(ctx, voicePath, duration)
	if err != nil {
		return res, err
	}
	temps = append(temps, audioPath)
	p.log("Audio Mix", fmt.Sprintf("Created audio bed (%ss).", trimSeconds(duration)))

	render, err := p.deps.Composer.RenderVideo(ctx, media.RenderConfig{
		BackgroundPath: bg.Path,
		AudioPath:      audioPath,
		Lines:          script.Lines(),
		Title:          res.Quote.ID,
		Duration:       duration,
		AccentColor:    AccentColor,
	})
	if err != nil {
		return res, err
	}
	temps = append(temps, render.SubtitlePath)
	res.VideoPath = render.Path
	p.log("Video Render", "Rendered 9:16 MP4 via ffmpeg.")

	res.Caption = Caption(res.Quote, script, req.Hashtags)

	name := fmt.Sprintf("%s-%d.mp4", fsutil.Slug(res.Quote.ID), p.deps.Now().UnixMilli())
	videoURL, err := p.deps.Uploader.UploadVideo(ctx, render.Path, name)
	if err != nil {
		return res, fmt.Errorf("upload video: %w", err)
	}
	if videoURL != "" {
		res.VideoURL = &videoURL
		p.log("Upload", "Uploaded reel to object storage: "+videoURL)
	} else {
		p.log("Upload", "Skip upload, object storage is not configured.")
	}

	switch {
	case videoURL == "":
		res.Instagram = reel.Skipped(ReasonNoURL)
	case !req.PostToInstagram:
		res.Instagram = reel.Skipped(ReasonDisabled)
	default:
		res.Instagram, err = p.deps.Publisher.Publish(ctx, reel.PublishRequest{VideoURL: videoURL, Caption: res.Caption}, p.deps.Credentials)
		if err != nil {
			p.log("Instagram", "Failed: "+err.Error())
			return res, fmt.Errorf("publish to instagram: %w", err)
		}
		if res.Instagram.IsPublished() {
			p.log("Instagram", fmt.Sprintf("Published reel (media id %s).", res.Instagram.MediaID))
		} else {
			p.log("Instagram", "Skipped: "+res.Instagram.Reason)
		}
	}

	if res.Instagram.IsPublished() && len(p.deps.Posters) > 0 {
		res.Announcements = p.announce(ctx, res, bg)
	}
	return res, nil
}

func (p *Pipeline) selectQuote(id string) (quotes.Quote, error) {
	if strings.TrimSpace(id) != "" {
		return quotes.ByID(id)
	}
	return quotes.Random(p.deps.Rand), nil
}

// announce cross-posts the published reel. Failures never fail the run.
func (p *Pipeline) announce(ctx context.Context, res Result, bg background.Image) []Announcement {
	link := res.Instagram.PermalinkOrEmpty()
	if link == "" && res.VideoURL != nil {
		link = *res.VideoURL
	}
	post := reel.Post{
		Message:   Headline(res.Quote) + "\n\n" + res.Script.Hook,
		Link:      link,
		ImagePath: bg.Path,
		ImageAlt:  "Background artwork for the reel: " + res.Quote.Source,
	}

	out := make([]Announcement, len(p.deps.Posters))
	errs := make([]error, len(p.deps.Posters))
	var wg sync.WaitGroup
	for i, poster := range p.deps.Posters {
		out[i].Target = poster.Name()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poster.Post(ctx, post); err != nil {
				out[i].Error = err.Error()
				errs[i] = fmt.Errorf("%s: %w", poster.Name(), err)
			}
		}()
	}
	wg.Wait()

	var posted []string
	for _, a := range out {
		if a.Error == "" {
			posted = append(posted, a.Target)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logutil.Warnf("announce reel: %v", err)
	}
	if len(posted) > 0 {
		p.log("Announcements", "Shared reel on "+strings.Join(posted, ", ")+".")
	} else {
		p.log("Announcements", "No announcement was posted.")
	}
	return out
}

func trimSeconds(d time.Duration) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", d.Seconds()), "0"), ".")
}
