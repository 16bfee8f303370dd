package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/sherpa/internal/config"
	"github.com/efebarandurmaz/sherpa/internal/embed"
	"github.com/efebarandurmaz/sherpa/internal/lang"
	"github.com/efebarandurmaz/sherpa/internal/scan"
	temporalmod "github.com/efebarandurmaz/sherpa/internal/temporal"
	"github.com/efebarandurmaz/sherpa/pkg/treesitter"
)

// exitCanceled is the conventional status for a run stopped by SIGINT.
const exitCanceled = 130

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, scan.ErrCanceled) {
			os.Exit(exitCanceled)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sherpa",
		Short:         "Syntax-aware source indexer for semantic code search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(newScanCmd(), newLanguagesCmd(), newProvidersCmd(), newSubmitCmd())
	return rootCmd
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and their file extensions",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Supported languages:")
			fmt.Fprintln(w)
			for _, spec := range lang.Builtin() {
				status := ""
				if !treesitter.Supported(spec.Grammar) {
					status = "  (grammar not compiled in)"
				}
				fmt.Fprintf(w, "  %-12s %s%s\n", spec.Language, strings.Join(spec.Extensions, " "), status)
			}
		},
	}
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available embedding providers",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Available embedding providers:")
			fmt.Fprintln(w)
			for _, name := range embed.NewFactory().Names() {
				url := embed.KnownProviders[name]
				if name == "hash" {
					url = "(offline, deterministic)"
				}
				fmt.Fprintf(w, "  %-14s %s\n", name, url)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "OpenAI-compatible services use provider openai with a base URL:")
			for _, name := range []string{"together", "huggingface"} {
				fmt.Fprintf(w, "  %-14s %s\n", name, embed.KnownProviders[name])
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Configure in sherpa.yaml or via environment:")
			fmt.Fprintln(w, "  SHERPA_EMBEDDER_PROVIDER=openai")
			fmt.Fprintln(w, "  SHERPA_EMBEDDER_API_KEY=sk-...")
			fmt.Fprintln(w, "  SHERPA_EMBEDDER_MODEL="+embed.DefaultOpenAIModel)
		},
	}
}

func newSubmitCmd() *cobra.Command {
	var (
		configPath string
		input      temporalmod.ScanInput
		wait       bool
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Start a durable scan on a Temporal worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			c, err := client.Dial(client.Options{
				HostPort:  cfg.Temporal.Host,
				Namespace: cfg.Temporal.Namespace,
			})
			if err != nil {
				return fmt.Errorf("temporal client: %w", err)
			}
			defer c.Close()

			run, err := temporalmod.Submit(cmd.Context(), c, cfg.Temporal.TaskQueue, input)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Started workflow %s (run %s) on %s\n", run.GetID(), run.GetRunID(), cfg.Temporal.TaskQueue)
			if !wait {
				return nil
			}
			var out temporalmod.ScanOutput
			if err := run.Get(cmd.Context(), &out); err != nil {
				return fmt.Errorf("workflow %s: %w", run.GetID(), err)
			}
			fmt.Fprintf(w, "Indexed %d chunks from %d files into %s/%s\n",
				out.ChunksProcessed, out.FilesScanned, out.Backend, out.Collection)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the workflow to finish")
	bindScanInput(cmd, &input)
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

// bindScanInput registers the per-run overrides a durable scan accepts.
// Empty values leave the worker's configuration in charge.
func bindScanInput(cmd *cobra.Command, in *temporalmod.ScanInput) {
	fl := cmd.Flags()
	fl.StringVar(&in.Path, "path", "", "Directory to scan, as seen by the worker")
	fl.StringVar(&in.Collection, "collection", "", "Collection name")
	fl.IntVar(&in.ChunkSizeLimit, "chunk-size-limit", 0, "Maximum chunk size in bytes")
	fl.StringVar(&in.Orphans, "orphans", "", "Text outside functions and classes: drop or attach")
	fl.StringSliceVar(&in.Extensions, "extensions", nil, "Only scan these extensions, e.g. go,py")
	fl.StringSliceVar(&in.Exclude, "exclude", nil, "Glob of paths to skip (repeatable)")
	fl.BoolVar(&in.Gitignore, "gitignore", false, "Honor .gitignore files")
	fl.BoolVar(&in.LenientParsing, "lenient", false, "Chunk files with syntax errors instead of skipping them")
	fl.Int32Var(&in.MaxAttempts, "max-attempts", 0, "Attempts before the workflow fails (default 3)")
}
