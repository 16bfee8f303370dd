// Package metrics renders the summary of a scan run.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/efebarandurmaz/sherpa/internal/scan"
)

// Report collects statistics for one run of the indexer.
type Report struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
	Duration   time.Duration   `json:"duration_ms,omitempty"`
	Root       string          `json:"root"`
	Embedder   string          `json:"embedder"`
	Store      string          `json:"store"`
	Collection string          `json:"collection,omitempty"`
	DryRun     bool            `json:"dry_run,omitempty"`
	Files      FileMetrics     `json:"files"`
	Chunks     int             `json:"chunks"`
	Embeddings int             `json:"embeddings"`
	Languages  []LanguageCount `json:"languages,omitempty"`
	Failures   []scan.Failure  `json:"failures,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type FileMetrics struct {
	Scanned int `json:"scanned"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type LanguageCount struct {
	Language string `json:"language"`
	Chunks   int    `json:"chunks"`
}

// New starts tracking a run.
func New(root, embedder, store string) *Report {
	return &Report{StartedAt: time.Now(), Root: root, Embedder: embedder, Store: store}
}

// Collect copies the counters of a finished scan.
func (r *Report) Collect(res *scan.Result) {
	r.Files = FileMetrics{Scanned: res.FilesScanned, Skipped: res.FilesSkipped, Failed: res.FilesFailed}
	r.Chunks = res.ChunksProcessed
	r.Embeddings = res.EmbeddingsGenerated
	r.Failures = res.Failures
	r.Languages = r.Languages[:0]
	for l, n := range res.Languages {
		r.Languages = append(r.Languages, LanguageCount{Language: string(l), Chunks: n})
	}
	sort.Slice(r.Languages, func(i, j int) bool {
		if r.Languages[i].Chunks != r.Languages[j].Chunks {
			return r.Languages[i].Chunks > r.Languages[j].Chunks
		}
		return r.Languages[i].Language < r.Languages[j].Language
	})
}

// Finish marks the run as complete. A non-nil err is kept in the report.
func (r *Report) Finish(err error) {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	if err != nil {
		r.Error = err.Error()
	}
}

// PrintSummary writes a human-readable summary.
func (r *Report) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║          SHERPA SCAN REPORT          ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-24s║\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Embedder:    %-24s║\n", r.Embedder)
	store := r.Store
	if r.DryRun {
		store += " (dry run)"
	}
	fmt.Fprintf(w, "║ Store:       %-24s║\n", store)
	if r.Collection != "" {
		fmt.Fprintf(w, "║ Collection:  %-24s║\n", r.Collection)
	}
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ FILES (%s)\n", r.Root)
	fmt.Fprintf(w, "║   Scanned:     %d\n", r.Files.Scanned)
	fmt.Fprintf(w, "║   Skipped:     %d\n", r.Files.Skipped)
	fmt.Fprintf(w, "║   Failed:      %d\n", r.Files.Failed)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ CHUNKS\n")
	fmt.Fprintf(w, "║   Processed:   %d\n", r.Chunks)
	fmt.Fprintf(w, "║   Embedded:    %d\n", r.Embeddings)
	for _, l := range r.Languages {
		fmt.Fprintf(w, "║   %-12s %d\n", l.Language+":", l.Chunks)
	}
	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ FAILED FILES\n")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "║   • %s [%s] %s\n", f.Path, f.Op, f.Error)
		}
	}
	if r.Error != "" {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERROR\n")
		fmt.Fprintf(w, "║   %s\n", r.Error)
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the report as formatted JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
