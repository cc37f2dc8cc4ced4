package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalidSettings is returned by Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds all configuration options.
type Settings struct {
	// Input and output
	ManifestPath string `json:"manifest_path" toml:"manifest_path"`
	OutputPath   string `json:"output_path" toml:"output_path"`
	TempPath     string `json:"temp_path" toml:"temp_path"`

	// Worker pool
	Workers         int     `json:"workers" toml:"workers"`
	SummaryInterval float64 `json:"summary_interval" toml:"summary_interval"`

	// Retry of rate-limited stream requests. Waits grow linearly:
	// cooldown, cooldown+step, cooldown+2*step, ...
	RetryCooldown     float64 `json:"retry_cooldown" toml:"retry_cooldown"`
	RetryCooldownStep float64 `json:"retry_cooldown_step" toml:"retry_cooldown_step"`
	RetryMaxAttempts  int     `json:"retry_max_attempts" toml:"retry_max_attempts"`

	// Streaming provider
	ProviderURL       string  `json:"provider_url" toml:"provider_url"`
	ProviderToken     string  `json:"provider_token" toml:"provider_token"`
	ProviderRateLimit float64 `json:"provider_rate_limit" toml:"provider_rate_limit"`
	ProviderTimeout   float64 `json:"provider_timeout" toml:"provider_timeout"`

	// Transcoding
	FFmpegPath string `json:"ffmpeg_path" toml:"ffmpeg_path"`
	Bitrate    string `json:"bitrate" toml:"bitrate"`

	// Cover art settings
	SaveCoverArtInFolder  bool `json:"save_cover_art_in_folder" toml:"save_cover_art_in_folder"`
	SaveCoverArtInTags    bool `json:"save_cover_art_in_tags" toml:"save_cover_art_in_tags"`
	CoverArtInTagsResize  bool `json:"cover_art_in_tags_resize" toml:"cover_art_in_tags_resize"`
	CoverArtInTagsMaxSize int  `json:"cover_art_in_tags_max_size" toml:"cover_art_in_tags_max_size"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist" toml:"create_playlist"`
	PlaylistFormat string `json:"playlist_format" toml:"playlist_format"` // m3u, pls, wpl
	M3UExtended    bool   `json:"m3u_extended" toml:"m3u_extended"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return &Settings{
		ManifestPath: "spotify-playlists.json",
		OutputPath:   filepath.Join(homeDir, "Music", "Archive"),
		TempPath:     filepath.Join(cwd, "tmp"),

		Workers:         1,
		SummaryInterval: 10,

		RetryCooldown:     5,
		RetryCooldownStep: 5,
		RetryMaxAttempts:  10,

		ProviderURL:       "http://127.0.0.1:24879",
		ProviderRateLimit: 2,
		ProviderTimeout:   120,

		FFmpegPath: "ffmpeg",
		Bitrate:    "320k",

		SaveCoverArtInFolder:  true,
		SaveCoverArtInTags:    true,
		CoverArtInTagsResize:  false,
		CoverArtInTagsMaxSize: 1000,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,
	}
}

// Load reads settings from a JSON or TOML file on top of the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isTOML(path) {
		if err := toml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return settings, nil
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return settings, nil
}

// Save writes settings to a JSON or TOML file, depending on the extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(s); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings a run depends on.
func (s *Settings) Validate() error {
	var errs []error
	if s.ManifestPath == "" {
		errs = append(errs, errors.New("manifest_path is required"))
	}
	if s.OutputPath == "" {
		errs = append(errs, errors.New("output_path is required"))
	}
	if s.TempPath == "" {
		errs = append(errs, errors.New("temp_path is required"))
	}
	if s.OutputPath != "" && s.TempPath != "" && overlaps(s.TempPath, s.OutputPath) {
		errs = append(errs, fmt.Errorf("temp_path %q must not be, contain or lie inside output_path %q", s.TempPath, s.OutputPath))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", s.Workers))
	}
	if s.RetryMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry_max_attempts must be at least 1, got %d", s.RetryMaxAttempts))
	}
	if s.RetryCooldown < 0 || s.RetryCooldownStep < 0 {
		errs = append(errs, errors.New("retry cooldowns must not be negative"))
	}
	if s.SummaryInterval <= 0 {
		errs = append(errs, errors.New("summary_interval must be positive"))
	}
	switch s.PlaylistFormat {
	case "m3u", "pls", "wpl":
	default:
		errs = append(errs, fmt.Errorf("unknown playlist_format %q", s.PlaylistFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// Seconds converts a float seconds setting to a time.Duration.
func Seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// overlaps reports whether one path is the other or lies beneath it. The
// scratch directory is emptied at the start of every run, so it must not
// share any part of the output tree.
func overlaps(a, b string) bool {
	absA, err := filepath.Abs(a)
	if err != nil {
		return true
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return true
	}
	return within(absA, absB) || within(absB, absA)
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
