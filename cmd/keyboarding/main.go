// Package main provides the CLI entrypoint for keyboarding.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/keyboarding/internal/config"
	"github.com/verte-zerg/keyboarding/internal/kv"
	"github.com/verte-zerg/keyboarding/internal/lesson"
	"github.com/verte-zerg/keyboarding/internal/logging"
	"github.com/verte-zerg/keyboarding/internal/report"
	"github.com/verte-zerg/keyboarding/internal/store"
	"github.com/verte-zerg/keyboarding/internal/submit"
	"github.com/verte-zerg/keyboarding/internal/texts"
	"github.com/verte-zerg/keyboarding/internal/tui"
)

const defaultRecent = 20

var (
	flagLearner  string
	flagRemote   string
	flagLogLevel string

	progressRecent int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keyboarding",
		Short:         "Keyboarding practice with a gated final assessment",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPractice(cmd, false)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagLearner, "learner", config.DefaultLearnerID, "learner profile id")
	rootCmd.PersistentFlags().StringVar(&flagRemote, "remote", "", "score endpoint base URL (empty disables submission)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newAssessCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newCategoriesCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newAssessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assess",
		Short: "Take the final assessment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPractice(cmd, true)
		},
	}
}

// loadSettings merges the config file, the flags and the built-in defaults.
// Flags win when set explicitly.
func loadSettings(cmd *cobra.Command, extra func(*config.FileConfig)) (config.Settings, error) {
	path := config.DefaultConfigPath()
	fileCfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "learner", &flagLearner, fileCfg.Learner.ID)
	applyStringConfig(cmd, "remote", &flagRemote, fileCfg.Remote.URL)
	applyStringConfig(cmd, "log-level", &flagLogLevel, fileCfg.Log.Level)
	fileCfg.Learner.ID = &flagLearner
	fileCfg.Remote.URL = &flagRemote
	fileCfg.Log.Level = &flagLogLevel
	if extra != nil {
		extra(&fileCfg)
	}

	settings, err := config.Resolve(fileCfg, filepath.Dir(path))
	if err != nil {
		return config.Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return settings, nil
}

func newLogger(s config.Settings, console io.Writer) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:      s.Log.Level,
		File:       s.Log.File,
		MaxSize:    s.Log.MaxSize,
		MaxBackups: s.Log.MaxBackups,
		MaxAge:     s.Log.MaxAge,
		Compress:   s.Log.Compress,
		Console:    console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, nil
}

// app holds the stores behind a learner's lesson service.
type app struct {
	kv       *kv.Store
	attempts *store.Store
	svc      *lesson.Service
}

func openApp(s config.Settings, logger *zap.Logger) (*app, error) {
	kvs, err := kv.Open(config.DefaultKVPath())
	if err != nil {
		if errors.Is(err, kv.ErrLocked) {
			return nil, errors.New("progress store is in use by another keyboarding process")
		}
		return nil, fmt.Errorf("failed to open progress store: %w", err)
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		closeQuietly(kvs, "progress store")
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	svc, err := lesson.New(lesson.Options{
		LearnerID:  s.LearnerID,
		LessonID:   s.PracticeLessonID,
		Categories: s.Categories,
		Assessment: s.Assessment,
		KV:         kvs,
		Attempts:   st,
		Submitter:  submit.NewClient(s.Remote.URL, s.Remote.Timeout),
		Logger:     logger,
	})
	if err != nil {
		closeQuietly(st, "db")
		closeQuietly(kvs, "progress store")
		return nil, err
	}
	return &app{kv: kvs, attempts: st, svc: svc}, nil
}

func (a *app) close() {
	closeQuietly(a.attempts, "db")
	closeQuietly(a.kv, "progress store")
}

func runPractice(cmd *cobra.Command, assess bool) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("keyboarding needs an interactive terminal")
	}
	settings, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings, nil)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	a, err := openApp(settings, logger)
	if err != nil {
		return err
	}
	defer a.close()

	model := tui.NewModel(tui.Options{
		Service:         a.svc,
		Texts:           texts.NewStatic(settings.Categories, settings.Assessment),
		MetricsInterval: settings.MetricsInterval,
		ClockInterval:   settings.ClockInterval,
		Logger:          logger,
		StartAssessment: assess,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show practice progress, statistics and achievements",
		Args:  cobra.NoArgs,
		RunE:  runProgressCmd,
	}
	cmd.Flags().IntVar(&progressRecent, "recent", defaultRecent, "number of recent attempts in the trend")
	return cmd
}

func runProgressCmd(cmd *cobra.Command, _ []string) error {
	if progressRecent < 0 {
		return fmt.Errorf("--recent must be >= 0")
	}
	settings, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings, nil)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	a, err := openApp(settings, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.svc.Load(ctx); err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	r, err := report.Build(ctx, a.svc, progressRecent)
	if err != nil {
		return err
	}
	r.TrendWidth = trendWidth()
	if err := report.Write(cmd.OutOrStdout(), r); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// trendWidth sizes the sparkline to the terminal, leaving room for labels.
func trendWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return max(10, min(width-24, 120))
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List practice categories and passing thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd, nil)
			if err != nil {
				return err
			}
			if err := report.WriteCategories(cmd.OutOrStdout(), settings.Categories, settings.Assessment); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keyboarding configuration
# Uncomment a value to enable it. CLI flags override config values.

[learner]
# id = %q

[practice]
# lesson = %q
# metrics-interval = %q    # How often live WPM and accuracy refresh
# clock-interval = %q      # How often the elapsed time refreshes

# Override a built-in category or add a new one. Every category must be
# passed before the final assessment unlocks.
# [[category]]
# id = "homeRow"
# name = "Home Row"
# min-wpm = 15
# min-accuracy = 75
# file = "home-row.txt"     # One text per line, relative to this file

[assessment]
# id = %q
# lesson = %q
# min-wpm = %d
# min-accuracy = %d

[remote]
# url = "http://%s"   # Score endpoint, empty disables submission
# timeout = %q

[log]
# level = %q
# file = %q
# max-size = %d             # Megabytes before rotation
# max-backups = %d
# max-age = %d              # Days
# compress = false

[server]
# addr = %q
# required-assessments = [%q]
`,
		config.DefaultLearnerID,
		config.DefaultPracticeLessonID,
		config.DefaultMetricsInterval.String(),
		config.DefaultClockInterval.String(),
		config.DefaultAssessmentID,
		config.DefaultAssessmentLesson,
		config.DefaultAssessment().Criteria.MinWPM,
		config.DefaultAssessment().Criteria.MinAccuracy,
		config.DefaultServerAddr,
		config.DefaultRemoteTimeout.String(),
		config.DefaultLogLevel,
		config.DefaultLogPath(),
		config.DefaultLogMaxSize,
		config.DefaultLogMaxBackups,
		config.DefaultLogMaxAge,
		config.DefaultServerAddr,
		config.DefaultAssessmentID,
	)
}

func closeQuietly(c io.Closer, what string) {
	if cerr := c.Close(); cerr != nil {
		logErrf("failed to close %s: %v\n", what, cerr)
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
