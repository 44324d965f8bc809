package automation

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blacktop/reelpost/internal/background"
	"github.com/blacktop/reelpost/internal/media"
	"github.com/blacktop/reelpost/internal/narration"
	"github.com/blacktop/reelpost/internal/quotes"
	"github.com/blacktop/reelpost/internal/reel"
	"github.com/blacktop/reelpost/internal/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScript = story.Script{
	Hook:         "Stop scrolling.",
	Narration:    []string{"One.", "Two.", "Three."},
	CallToAction: "Follow for more.",
}

type fakeWriter struct{ req story.Request }

func (f *fakeWriter) Write(_ context.Context, req story.Request) (story.Script, bool) {
	f.req = req
	return testScript, true
}

type fakeNarrator struct {
	path string
	err  error
}

func (f fakeNarrator) Synthesize(context.Context, string, narration.Voice) (string, error) {
	return f.path, f.err
}

type fakeBackgrounds struct {
	img   background.Image
	query string
}

func (f *fakeBackgrounds) Fetch(_ context.Context, query string) (background.Image, error) {
	f.query = query
	return f.img, nil
}

type fakeComposer struct {
	dir       string
	voicePath string
	render    media.RenderConfig
	mixPath   string
	subsPath  string
}

func (f *fakeComposer) MixAudio(_ context.Context, voicePath string, _ time.Duration) (string, error) {
	f.voicePath = voicePath
	f.mixPath = touch(f.dir, "mix.mp3")
	return f.mixPath, nil
}

func (f *fakeComposer) RenderVideo(_ context.Context, cfg media.RenderConfig) (media.Render, error) {
	f.render = cfg
	f.subsPath = touch(f.dir, "subs.ass")
	return media.Render{Path: touch(f.dir, "reel.mp4"), SubtitlePath: f.subsPath}, nil
}

type fakeUploader struct {
	url  string
	name string
}

func (f *fakeUploader) UploadVideo(_ context.Context, _ string, name string) (string, error) {
	f.name = name
	return f.url, nil
}

type fakePublisher struct {
	calls   int
	req     reel.PublishRequest
	outcome reel.PublishOutcome
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, req reel.PublishRequest, _ reel.Credentials) (reel.PublishOutcome, error) {
	f.calls++
	f.req = req
	return f.outcome, f.err
}

type fakePoster struct {
	name string
	err  error

	mu    sync.Mutex
	posts []reel.Post
}

func (f *fakePoster) Name() string { return f.name }

func (f *fakePoster) Post(_ context.Context, post reel.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post)
	return f.err
}

func touch(dir, name string) string {
	p := filepath.Join(dir, name)
	_ = os.WriteFile(p, []byte("x"), 0o644)
	return p
}

type harness struct {
	writer    *fakeWriter
	bg        *fakeBackgrounds
	composer  *fakeComposer
	uploader  *fakeUploader
	publisher *fakePublisher
	voice     string
	deps      Deps
}

func newHarness(t *testing.T, videoURL string) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		writer:    &fakeWriter{},
		bg:        &fakeBackgrounds{img: background.Image{Path: touch(dir, "bg.jpg"), Attribution: "Jane Doe / Unsplash"}},
		composer:  &fakeComposer{dir: dir},
		uploader:  &fakeUploader{url: videoURL},
		publisher: &fakePublisher{outcome: reel.Published("17900", "https://www.instagram.com/reel/C1/")},
		voice:     touch(dir, "voice.mp3"),
	}
	h.deps = Deps{
		Writer:      h.writer,
		Narrator:    fakeNarrator{path: h.voice},
		Backgrounds: h.bg,
		Composer:    h.composer,
		Uploader:    h.uploader,
		Publisher:   h.publisher,
		Rand:        rand.New(rand.NewPCG(1, 2)),
		Now:         func() time.Time { return time.UnixMilli(1700000000000) },
	}
	return h
}

func labels(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Label
	}
	return out
}

func TestRunPublishes(t *testing.T) {
	h := newHarness(t, "https://cdn.example/reels/gita-2-47-1700000000000.mp4")
	res, err := New(h.deps).Run(context.Background(), Request{
		Topic:           "discipline",
		Tone:            "calm",
		QuoteID:         "gita-2-47",
		Hashtags:        []string{"dharma", "#gita"},
		PostToInstagram: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Selected Quote", "Generated Script", "Narration", "Background",
		"Audio Mix", "Video Render", "Upload", "Instagram",
	}, labels(res.Steps))
	for _, s := range res.Steps {
		assert.True(t, strings.HasPrefix(s.ID, "log-"), s.ID)
	}

	assert.Equal(t, "discipline", h.writer.req.Emphasis, "emphasis defaults to topic")
	assert.Equal(t, "discipline krishna spiritual", h.bg.query)
	assert.Equal(t, h.voice, h.composer.voicePath)
	assert.Equal(t, DefaultDuration, h.composer.render.Duration)
	assert.Equal(t, AccentColor, h.composer.render.AccentColor)
	assert.Equal(t, testScript.Lines(), h.composer.render.Lines)
	assert.Equal(t, "gita-2-47-1700000000000.mp4", h.uploader.name)

	assert.Equal(t, 1, h.publisher.calls)
	assert.Equal(t, *res.VideoURL, h.publisher.req.VideoURL)
	assert.Equal(t, res.Caption, h.publisher.req.Caption)
	assert.True(t, strings.HasPrefix(res.Caption, `"You have the right to work, but never to the fruit of work." — Bhagavad Gita 2.47`+"\n\nFollow for more.\n\n#dharma #gita #LordKrishna"))
	assert.Equal(t, "17900", res.Instagram.MediaID)

	// intermediates are removed, the video is kept
	for _, p := range []string{h.voice, h.composer.mixPath, h.composer.subsPath, h.bg.img.Path} {
		assert.NoFileExists(t, p)
	}
	assert.FileExists(t, res.VideoPath)
}

func TestRunSkipReasons(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		post     bool
		reason   string
		lastStep string
	}{
		{"no url", "", true, ReasonNoURL, "Upload"},
		{"no url and disabled", "", false, ReasonNoURL, "Upload"},
		{"disabled", "https://cdn.example/r.mp4", false, ReasonDisabled, "Upload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.url)
			res, err := New(h.deps).Run(context.Background(), Request{Topic: "faith", PostToInstagram: tc.post})
			require.NoError(t, err)

			assert.Zero(t, h.publisher.calls)
			assert.Equal(t, reel.Skipped(tc.reason), res.Instagram)
			assert.Equal(t, tc.lastStep, res.Steps[len(res.Steps)-1].Label)
			if tc.url == "" {
				assert.Nil(t, res.VideoURL)
			}
		})
	}
}

func TestRunPublishFailure(t *testing.T) {
	h := newHarness(t, "https://cdn.example/r.mp4")
	h.publisher.outcome = reel.PublishOutcome{}
	h.publisher.err = errors.New("Invalid OAuth access token")

	res, err := New(h.deps).Run(context.Background(), Request{Topic: "faith", PostToInstagram: true})
	require.Error(t, err)
	assert.ErrorContains(t, err, "Invalid OAuth access token")

	last := res.Steps[len(res.Steps)-1]
	assert.Equal(t, "Instagram", last.Label)
	assert.Contains(t, last.Detail, "Failed")
	assert.NoFileExists(t, h.composer.mixPath)
}

func TestRunPublisherSkip(t *testing.T) {
	h := newHarness(t, "https://cdn.example/r.mp4")
	h.publisher.outcome = reel.Skipped("missing credentials")

	res, err := New(h.deps).Run(context.Background(), Request{Topic: "faith", PostToInstagram: true})
	require.NoError(t, err)
	assert.Equal(t, "Skipped: missing credentials", res.Steps[len(res.Steps)-1].Detail)
}

func TestRunNarrationFailureIsFatal(t *testing.T) {
	h := newHarness(t, "")
	h.deps.Narrator = fakeNarrator{err: errors.New("quota exceeded")}

	res, err := New(h.deps).Run(context.Background(), Request{Topic: "faith"})
	assert.ErrorContains(t, err, "narration: quota exceeded")
	assert.Equal(t, []string{"Selected Quote", "Generated Script"}, labels(res.Steps))
	assert.Empty(t, h.composer.mixPath)
}

func TestRunWithoutVoice(t *testing.T) {
	h := newHarness(t, "")
	h.deps.Narrator = fakeNarrator{}

	res, err := New(h.deps).Run(context.Background(), Request{Topic: "faith", Duration: 10 * time.Second})
	require.NoError(t, err)
	assert.Empty(t, h.composer.voicePath)
	assert.Equal(t, "Created audio bed (10s).", res.Steps[4].Detail)
}

func TestRunUnknownQuote(t *testing.T) {
	h := newHarness(t, "")
	_, err := New(h.deps).Run(context.Background(), Request{QuoteID: "gita-99-1"})
	assert.ErrorContains(t, err, `unknown quote "gita-99-1"`)
}

func TestRunAnnounces(t *testing.T) {
	h := newHarness(t, "https://cdn.example/r.mp4")
	ok := &fakePoster{name: "mastodon"}
	bad := &fakePoster{name: "twitter", err: reel.MissingEnvError{Provider: "twitter"}}
	h.deps.Posters = []reel.Poster{bad, ok}

	res, err := New(h.deps).Run(context.Background(), Request{Topic: "faith", QuoteID: "gita-6-5", PostToInstagram: true})
	require.NoError(t, err)

	require.Len(t, res.Announcements, 2)
	assert.Equal(t, Announcement{Target: "twitter", Error: "twitter credentials not configured"}, res.Announcements[0])
	assert.Equal(t, Announcement{Target: "mastodon"}, res.Announcements[1])

	require.Len(t, ok.posts, 1)
	assert.Equal(t, "https://www.instagram.com/reel/C1/", ok.posts[0].Link)
	assert.Equal(t, h.bg.img.Path, ok.posts[0].ImagePath)
	assert.Equal(t, "Shared reel on mastodon.", res.Steps[len(res.Steps)-1].Detail)
}

func TestRunAnnouncesOnlyPublished(t *testing.T) {
	h := newHarness(t, "https://cdn.example/r.mp4")
	poster := &fakePoster{name: "bluesky"}
	h.deps.Posters = []reel.Poster{poster}

	res, err := New(h.deps).Run(context.Background(), Request{Topic: "faith"})
	require.NoError(t, err)
	assert.Empty(t, poster.posts)
	assert.Empty(t, res.Announcements)
}

func TestResultJSON(t *testing.T) {
	h := newHarness(t, "")
	res, err := New(h.deps).Run(context.Background(), Request{Topic: "faith"})
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Nil(t, got["videoUrl"])
	assert.Equal(t, map[string]any{"status": "skipped", "reason": ReasonNoURL}, got["instagram"])
	assert.NotContains(t, got, "announcements")
}

func TestHashtags(t *testing.T) {
	tags := Hashtags([]string{" dharma ", "#LordKrishna", "", "#", "dharma"})
	assert.Equal(t, "#dharma", tags[0])
	assert.Equal(t, "#LordKrishna", tags[1])
	assert.Len(t, tags, 1+len(quotes.Hashtags))
	for _, tag := range tags {
		assert.True(t, strings.HasPrefix(tag, "#"))
	}
}

func TestCaption(t *testing.T) {
	q := quotes.Quote{Text: "Lift yourself by yourself.", Source: "Bhagavad Gita 6.5"}
	got := Caption(q, story.Script{CallToAction: " Share this. "}, nil)
	assert.Equal(t, `"Lift yourself by yourself." — Bhagavad Gita 6.5`+"\n\nShare this.\n\n"+strings.Join(quotes.Hashtags, " "), got)
}
