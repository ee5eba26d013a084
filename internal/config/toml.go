// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Learner    LearnerConfig    `toml:"learner"`
	Practice   PracticeConfig   `toml:"practice"`
	Categories []CategoryConfig `toml:"category"`
	Assessment AssessmentConfig `toml:"assessment"`
	Remote     RemoteConfig     `toml:"remote"`
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
}

// LearnerConfig identifies the local learner profile.
type LearnerConfig struct {
	ID *string `toml:"id"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	LessonID        *string   `toml:"lesson"`
	MetricsInterval *Duration `toml:"metrics-interval"`
	ClockInterval   *Duration `toml:"clock-interval"`
}

// CategoryConfig maps one [[category]] table. An empty texts list with no
// file keeps the built-in texts of a known category.
type CategoryConfig struct {
	ID          string   `toml:"id"`
	Name        string   `toml:"name"`
	MinWPM      *int     `toml:"min-wpm"`
	MinAccuracy *int     `toml:"min-accuracy"`
	Texts       []string `toml:"texts"`
	File        string   `toml:"file"`
}

// AssessmentConfig maps the final assessment settings.
type AssessmentConfig struct {
	ID          *string  `toml:"id"`
	LessonID    *string  `toml:"lesson"`
	MinWPM      *int     `toml:"min-wpm"`
	MinAccuracy *int     `toml:"min-accuracy"`
	Texts       []string `toml:"texts"`
	File        string   `toml:"file"`
}

// RemoteConfig maps the score submission endpoint.
type RemoteConfig struct {
	URL     *string   `toml:"url"`
	Timeout *Duration `toml:"timeout"`
}

// LogConfig maps the log file settings.
type LogConfig struct {
	Level      *string `toml:"level"`
	File       *string `toml:"file"`
	MaxSize    *int    `toml:"max-size"`
	MaxBackups *int    `toml:"max-backups"`
	MaxAge     *int    `toml:"max-age"`
	Compress   *bool   `toml:"compress"`
}

// ServerConfig maps the score server settings.
type ServerConfig struct {
	Addr                *string  `toml:"addr"`
	RequiredAssessments []string `toml:"required-assessments"`
}

// Duration decodes TOML strings such as "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
