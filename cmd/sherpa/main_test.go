package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/sherpa/internal/config"
	temporalmod "github.com/efebarandurmaz/sherpa/internal/temporal"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestLanguagesCommand(t *testing.T) {
	out, _, err := execute(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "go")
	assert.Contains(t, out, ".py")
	assert.Contains(t, out, ".tsx")
}

func TestProvidersCommand(t *testing.T) {
	out, _, err := execute(t, "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "ollama")
	assert.Contains(t, out, "http://localhost:11434")
	assert.Contains(t, out, "hash")
	assert.Contains(t, out, "SHERPA_EMBEDDER_PROVIDER")
}

func TestScanDryRunJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# docs\n"), 0o644))

	out, _, err := execute(t, "scan", "--path", root, "--dry-run", "--json", "-q")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["dry_run"])
	assert.Equal(t, "memory", report["store"])
	assert.Equal(t, "hash", report["embedder"])
	files, ok := report["files"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, files["skipped"])
}

func TestScanMissingRoot(t *testing.T) {
	out, _, err := execute(t, "scan", "--path", filepath.Join(t.TempDir(), "gone"), "--dry-run", "-q")
	require.Error(t, err)
	assert.Contains(t, out, "scan root not found")
}

func TestScanRejectsInvalidFlags(t *testing.T) {
	_, _, err := execute(t, "scan", "--path", t.TempDir(), "--chunk-size-limit", "2", "--dry-run", "-q")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = execute(t, "scan", "--path", t.TempDir(), "--store", "redis", "-q")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestScanFlagsOverrideConfig(t *testing.T) {
	cmd := newScanCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--path", "/src", "--orphans", "attach", "--exclude", "vendor/**",
		"--store", "sqlite", "--embedder", "openai", "-vv",
	}))

	cfg := config.Default()
	cfg.Scan.Exclude = []string{"**/*.pb.go"}
	cfg.Scan.ChunkSizeLimit = 1200

	var f scanFlags
	f.path, f.orphans, f.backend, f.embedder, f.verbose = "/src", "attach", "sqlite", "openai", 2
	f.exclude = []string{"vendor/**"}
	f.apply(cmd, cfg)

	assert.Equal(t, "/src", cfg.Scan.Path)
	assert.Equal(t, "attach", cfg.Scan.Orphans)
	assert.Equal(t, 1200, cfg.Scan.ChunkSizeLimit, "unset flags keep config values")
	assert.Equal(t, []string{"**/*.pb.go", "vendor/**"}, cfg.Scan.Exclude)
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "openai", cfg.Embedder.Provider)
	assert.Equal(t, 2, cfg.Log.Verbosity)
}

func TestSubmitRequiresPath(t *testing.T) {
	_, _, err := execute(t, "submit")
	assert.ErrorContains(t, err, "path")
}

func TestSubmitFlagsFillScanInput(t *testing.T) {
	cmd := &cobra.Command{Use: "submit"}
	var in temporalmod.ScanInput
	bindScanInput(cmd, &in)
	require.NoError(t, cmd.ParseFlags([]string{
		"--path", "/srv/repo", "--orphans", "attach", "--extensions", "go,py",
		"--exclude", "vendor/**", "--lenient", "--max-attempts", "5",
	}))

	assert.Equal(t, temporalmod.ScanInput{
		Path:           "/srv/repo",
		Orphans:        "attach",
		Extensions:     []string{"go", "py"},
		Exclude:        []string{"vendor/**"},
		LenientParsing: true,
		MaxAttempts:    5,
	}, in)
}

func TestScanLenientFlag(t *testing.T) {
	cmd := newScanCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--lenient"}))
	cfg := config.Default()
	scanFlags{lenient: true}.apply(cmd, cfg)
	assert.True(t, cfg.Scan.LenientParsing)
}
