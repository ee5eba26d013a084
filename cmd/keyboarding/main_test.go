package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/keyboarding/internal/config"
)

func TestDefaultConfigTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	fc, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if _, err := config.Resolve(fc, filepath.Dir(path)); err != nil {
		t.Fatalf("template does not resolve: %v", err)
	}
}

func TestApplyStringConfigRespectsChangedFlags(t *testing.T) {
	var target string
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&target, "learner", "local", "")

	fromFile := "file"
	applyStringConfig(cmd, "learner", &target, &fromFile)
	if target != "file" {
		t.Fatalf("expected file value, got %q", target)
	}

	if err := cmd.Flags().Set("learner", "flag"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyStringConfig(cmd, "learner", &target, &fromFile)
	if target != "flag" {
		t.Fatalf("expected flag value to win, got %q", target)
	}

	applyStringConfig(cmd, "learner", &target, nil)
	if target != "flag" {
		t.Fatalf("nil file value must not change the target")
	}
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"assess", "progress", "categories", "serve", "config"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("missing command %q: %v", name, err)
		}
	}
}
