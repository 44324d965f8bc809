// Package config reads reelpost settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/blacktop/reelpost/internal/reel"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	OpenAI    OpenAI    `envPrefix:"OPENAI_"`
	Instagram Instagram
	Storage   Storage `envPrefix:"REELPOST_S3_"`

	UnsplashAccessKey string `env:"UNSPLASH_ACCESS_KEY"`
	UnsplashURL       string `env:"UNSPLASH_API_URL" envDefault:"https://api.unsplash.com"`

	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	// AssetsDir holds backgrounds/*.{jpg,png} and audio/ambience.mp3.
	AssetsDir string `env:"REELPOST_ASSETS_DIR" envDefault:"public"`
}

type OpenAI struct {
	APIKey      string `env:"API_KEY"`
	BaseURL     string `env:"BASE_URL"`
	ScriptModel string `env:"SCRIPT_MODEL" envDefault:"gpt-4o-mini"`
	SpeechModel string `env:"SPEECH_MODEL" envDefault:"gpt-4o-mini-tts"`
}

type Instagram struct {
	AccountID    string        `env:"INSTAGRAM_BUSINESS_ACCOUNT_ID"`
	AccessToken  string        `env:"FACEBOOK_GRAPH_ACCESS_TOKEN"`
	GraphURL     string        `env:"FACEBOOK_GRAPH_URL" envDefault:"https://graph.facebook.com/v18.0"`
	PollAttempts int           `env:"REELPOST_POLL_ATTEMPTS" envDefault:"12"`
	PollInterval time.Duration `env:"REELPOST_POLL_INTERVAL" envDefault:"5s"`
}

type Storage struct {
	Endpoint      string `env:"ENDPOINT"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	Region        string `env:"REGION" envDefault:"us-east-1"`
	Bucket        string `env:"BUCKET"`
	AccessKeyID   string `env:"ACCESS_KEY_ID"`
	SecretKey     string `env:"SECRET_ACCESS_KEY"`
	UsePathStyle  bool   `env:"USE_PATH_STYLE"`
	PublicRead    bool   `env:"PUBLIC_READ"`
	KeyPrefix     string `env:"KEY_PREFIX" envDefault:"reels"`
}

// Load reads envFile (ignored when absent) into the process environment and
// parses the result. Variables already set win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return parse(env.Options{})
}

// FromMap parses cfg from vars only, ignoring the process environment.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Instagram.PollAttempts <= 0 {
		errs = append(errs, fmt.Errorf("REELPOST_POLL_ATTEMPTS must be positive, got %d", c.Instagram.PollAttempts))
	}
	if c.Instagram.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("REELPOST_POLL_INTERVAL must be positive, got %s", c.Instagram.PollInterval))
	}
	return errors.Join(errs...)
}

// Credentials returns the Graph API credential pair.
func (c Config) Credentials() reel.Credentials {
	return reel.Credentials{AccountID: c.Instagram.AccountID, AccessToken: c.Instagram.AccessToken}
}

func (c Config) BackgroundDir() string { return filepath.Join(c.AssetsDir, "backgrounds") }

func (c Config) AmbiencePath() string { return filepath.Join(c.AssetsDir, "audio", "ambience.mp3") }
