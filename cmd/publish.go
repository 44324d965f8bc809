package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/blacktop/reelpost/internal/config"
	"github.com/blacktop/reelpost/internal/reel"
	"github.com/spf13/cobra"
)

func newPublishCommand() *cobra.Command {
	var (
		videoURL string
		caption  string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an already hosted video as an Instagram Reel",
		Long: "publish runs only the Graph API handshake: it creates a Reels container for a public video URL, " +
			"waits for Instagram to process it, publishes it and prints the outcome. The caption may be piped on stdin.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  reelpost publish --video-url https://cdn.example/reels/gita-2-47.mp4 --caption "Karma yoga"
  cat caption.txt | reelpost publish --video-url https://cdn.example/reels/gita-2-47.mp4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(caption) == "" {
				piped, err := readPiped(cmd.InOrStdin())
				if err != nil {
					return err
				}
				caption = piped
			}

			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}

			req := reel.PublishRequest{VideoURL: strings.TrimSpace(videoURL), Caption: caption}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "[dry-run] would publish %s to account %q via %s\n",
					req.VideoURL, cfg.Instagram.AccountID, cfg.Instagram.GraphURL)
				return nil
			}

			outcome, err := newPublisher(cfg).Publish(cmd.Context(), req, cfg.Credentials())
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(outcome); err != nil {
					return err
				}
			} else {
				printOutcome(cmd.OutOrStdout(), outcome)
			}
			if !outcome.IsPublished() {
				return errors.New("reel was not published")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&videoURL, "video-url", "", "Public http(s) URL of the mp4 to publish")
	cmd.Flags().StringVarP(&caption, "caption", "c", "", "Caption for the reel")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the request without calling the Graph API")
	_ = cmd.MarkFlagRequired("video-url")
	return cmd
}
