/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/blacktop/reelpost/internal/automation"
	"github.com/blacktop/reelpost/internal/background"
	"github.com/blacktop/reelpost/internal/config"
	"github.com/blacktop/reelpost/internal/llm"
	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/blacktop/reelpost/internal/media"
	"github.com/blacktop/reelpost/internal/narration"
	"github.com/blacktop/reelpost/internal/reel"
	"github.com/blacktop/reelpost/internal/reel/instagram"
	"github.com/blacktop/reelpost/internal/storage"
	"github.com/blacktop/reelpost/internal/story"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	envFile    string
	verbose    bool
	jsonOutput bool

	topicFlag    string
	toneFlag     string
	emphasisFlag string
	voiceFlag    string
	durationFlag time.Duration
	hashtagFlags []string
	quoteFlag    string
	postFlag     bool
	announceFlag []string
	dryRun       bool
)

const defaultTone = "uplifting"

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reelpost [topic]",
		Short: "Render a devotional reel and publish it to Instagram",
		Long: "reelpost picks a Bhagavad Gita quote, drafts a short script, narrates it, " +
			"renders a 9:16 video with ffmpeg, uploads it to S3 and publishes it as an Instagram Reel. " +
			"Settings are read from the environment or a .env file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logutil.SetVerbose(verbose)
		},
		Example: `  reelpost "letting go of fear" --tone calm --voice sage
  reelpost --topic discipline --quote gita-2-47 --instagram --announce all
  echo "devotion" | reelpost --dry-run --json`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "Load environment variables from this file when it exists")
	pf.BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")
	pf.BoolVar(&jsonOutput, "json", false, "Print the result as JSON")

	f := cmd.Flags()
	f.StringVarP(&topicFlag, "topic", "t", "", "Theme of the reel (also used to search for the background)")
	f.StringVar(&toneFlag, "tone", defaultTone, "Tone of the narration")
	f.StringVar(&emphasisFlag, "emphasis", "", "Extra focus for the script (defaults to the topic)")
	f.StringVar(&voiceFlag, "voice", string(narration.VoiceAlloy), "Narration voice (alloy, verse, sage)")
	f.DurationVarP(&durationFlag, "duration", "d", automation.DefaultDuration, "Length of the reel")
	f.StringSliceVar(&hashtagFlags, "hashtag", nil, "Extra hashtags placed before the defaults")
	f.StringVarP(&quoteFlag, "quote", "q", "", "Use this quote id instead of a random one (list them with reelpost quotes)")
	f.BoolVar(&postFlag, "instagram", false, "Publish the reel to Instagram")
	f.StringSliceVar(&announceFlag, "announce", nil, "Announce the published reel on twitter, mastodon, bluesky, or all")
	f.BoolVar(&dryRun, "dry-run", false, "Render locally without uploading, publishing or announcing")
	f.SortFlags = false

	cmd.AddCommand(newPublishCommand())
	cmd.AddCommand(newQuotesCommand())
	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	topic, err := resolveTopic(cmd, args)
	if err != nil {
		return err
	}
	voice, err := narration.ParseVoice(voiceFlag)
	if err != nil {
		return err
	}
	if durationFlag <= 0 || durationFlag > 90*time.Second {
		return fmt.Errorf("duration must be between 0s and 90s, got %s", durationFlag)
	}
	targets, err := normalizeTargets(announceFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	if dryRun {
		deps.Uploader = skipUpload{}
		if postFlag || len(targets) > 0 {
			logutil.Warnf("--dry-run: ignoring --instagram and --announce")
		}
	} else if postFlag {
		deps.Posters = buildPosters(ctx, targets, os.Getenv)
	} else if len(targets) > 0 {
		logutil.Warnf("--announce has no effect without --instagram")
	}

	res, runErr := automation.New(deps).Run(ctx, automation.Request{
		Topic:           topic,
		Tone:            toneFlag,
		Emphasis:        emphasisFlag,
		Voice:           voice,
		Duration:        durationFlag,
		Hashtags:        hashtagFlags,
		QuoteID:         quoteFlag,
		PostToInstagram: postFlag && !dryRun,
	})
	if err := printResult(cmd.OutOrStdout(), res, jsonOutput); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func buildDeps(ctx context.Context, cfg config.Config) (automation.Deps, error) {
	client := llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if client == nil {
		logutil.Warnf("OPENAI_API_KEY not set; using template scripts and no narration")
	}

	store, err := storage.NewS3Storage(ctx, storage.Config{
		Endpoint:      cfg.Storage.Endpoint,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		Region:        cfg.Storage.Region,
		Bucket:        cfg.Storage.Bucket,
		AccessKeyID:   cfg.Storage.AccessKeyID,
		SecretKey:     cfg.Storage.SecretKey,
		UsePathStyle:  cfg.Storage.UsePathStyle,
		PublicRead:    cfg.Storage.PublicRead,
		KeyPrefix:     cfg.Storage.KeyPrefix,
	})
	if err != nil {
		return automation.Deps{}, fmt.Errorf("configure storage: %w", err)
	}

	return automation.Deps{
		Writer:   story.NewWriter(client, cfg.OpenAI.ScriptModel),
		Narrator: narration.NewSynthesizer(client, cfg.OpenAI.SpeechModel),
		Backgrounds: background.NewSource(background.Config{
			AccessKey:   cfg.UnsplashAccessKey,
			UnsplashURL: cfg.UnsplashURL,
			LocalDir:    cfg.BackgroundDir(),
		}),
		Composer:    media.NewComposer(media.FFmpeg{Path: cfg.FFmpegPath}, cfg.AmbiencePath()),
		Uploader:    store,
		Publisher:   newPublisher(cfg),
		Credentials: cfg.Credentials(),
	}, nil
}

func newPublisher(cfg config.Config) *instagram.Publisher {
	return instagram.New(instagram.Config{
		GraphURL:     cfg.Instagram.GraphURL,
		MaxAttempts:  cfg.Instagram.PollAttempts,
		PollInterval: cfg.Instagram.PollInterval,
	})
}

type skipUpload struct{}

func (skipUpload) UploadVideo(context.Context, string, string) (string, error) { return "", nil }

func resolveTopic(cmd *cobra.Command, args []string) (string, error) {
	topic := strings.TrimSpace(topicFlag)
	if len(args) > 0 {
		if topic != "" {
			return "", errors.New("provide the topic either as an argument or with --topic, not both")
		}
		topic = strings.TrimSpace(strings.Join(args, " "))
	}
	if topic != "" {
		return topic, nil
	}

	piped, err := readPiped(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	if piped == "" {
		return "", errors.New("topic is required")
	}
	return piped, nil
}

// readPiped returns trimmed stdin when it is not an interactive terminal.
func readPiped(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func printResult(out io.Writer, res automation.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	}

	for _, s := range res.Steps {
		fmt.Fprintf(out, "[%s] %s: %s\n", s.Timestamp.Local().Format(time.TimeOnly), s.Label, s.Detail)
	}
	if res.VideoPath == "" {
		return nil
	}
	fmt.Fprintf(out, "\nvideo:     %s\n", res.VideoPath)
	if res.VideoURL != nil {
		fmt.Fprintf(out, "url:       %s\n", *res.VideoURL)
	}
	printOutcome(out, res.Instagram)
	for _, a := range res.Announcements {
		if a.Error != "" {
			fmt.Fprintf(out, "%-10s failed: %s\n", a.Target+":", a.Error)
		} else {
			fmt.Fprintf(out, "%-10s posted\n", a.Target+":")
		}
	}
	fmt.Fprintf(out, "\n%s\n", res.Caption)
	return nil
}

func printOutcome(out io.Writer, o reel.PublishOutcome) {
	switch {
	case o.IsPublished() && o.Permalink != nil:
		fmt.Fprintf(out, "instagram: published %s (%s)\n", o.MediaID, *o.Permalink)
	case o.IsPublished():
		fmt.Fprintf(out, "instagram: published %s (permalink unavailable)\n", o.MediaID)
	default:
		fmt.Fprintf(out, "instagram: skipped, %s\n", o.Reason)
	}
}
