// internal/reporting/reporter.go
package reporting

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	manifestFile  = "manifest.json"
	snapshotsDir  = "snapshots"
	capturesStem  = "captures"
	compressedExt = ".br"
)

// Reporter writes finished runs to disk, one directory per run.
type Reporter struct {
	dir         string
	format      string
	compress    bool
	concurrency int
	logger      *zap.Logger
}

// New creates a reporter rooted at cfg.Dir. A leading "~" is expanded.
func New(cfg config.OutputConfig, logger *zap.Logger) (*Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid output configuration: %w", err)
	}
	dir, err := homedir.Expand(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand output directory %q: %w", cfg.Dir, err)
	}
	return &Reporter{
		dir:         dir,
		format:      cfg.Format,
		compress:    cfg.Compress,
		concurrency: cfg.Concurrency,
		logger:      logger.Named("reporter"),
	}, nil
}

// Manifest indexes everything written for one run.
type Manifest struct {
	RunID        string           `json:"run_id"`
	URL          string           `json:"url"`
	Script       string           `json:"script"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Error        string           `json:"error,omitempty"`
	CapturesFile string           `json:"captures_file"`
	Captures     []CaptureSummary `json:"captures"`
	Snapshots    []SnapshotEntry  `json:"snapshots"`
}

// CaptureSummary names a capture variable and how many values it holds.
type CaptureSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SnapshotEntry describes one written snapshot file.
type SnapshotEntry struct {
	Sequence  int       `json:"sequence"`
	File      string    `json:"file"`
	Path      string    `json:"path"`
	LoopValue string    `json:"loop_value,omitempty"`
	Title     string    `json:"title,omitempty"`
	Bytes     int       `json:"bytes"`
	TakenAt   time.Time `json:"taken_at"`
}

// Write stores run under <dir>/<run id>/ and returns that directory. A run
// without an ID is assigned one.
func (r *Reporter) Write(ctx context.Context, run *schemas.RunRecord) (string, error) {
	if run == nil {
		return "", fmt.Errorf("nil run record")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	result := run.Result
	if result == nil {
		result = &schemas.RunResult{}
	}

	runDir := filepath.Join(r.dir, run.ID)
	if err := os.MkdirAll(filepath.Join(runDir, snapshotsDir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	capturesFile := capturesStem + "." + r.format
	if err := r.writeFile(filepath.Join(runDir, capturesFile), func(w io.Writer) error {
		return encodeCaptures(w, r.format, run.ID, result.Captures)
	}); err != nil {
		return "", fmt.Errorf("failed to write captures: %w", err)
	}

	entries, err := r.writeSnapshots(ctx, runDir, result.Snapshots)
	if err != nil {
		return "", err
	}

	manifest := Manifest{
		RunID:        run.ID,
		URL:          run.URL,
		Script:       run.ScriptPath,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Error:        run.Error,
		CapturesFile: capturesFile,
		Captures:     make([]CaptureSummary, 0, len(result.Captures)),
		Snapshots:    entries,
	}
	for _, c := range result.Captures {
		manifest.Captures = append(manifest.Captures, CaptureSummary{Name: c.Name, Count: len(c.Values)})
	}
	if err := r.writeFile(filepath.Join(runDir, manifestFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)
	}); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	r.logger.Info("Run results written",
		zap.String("dir", runDir),
		zap.Int("captures", len(result.Captures)),
		zap.Int("snapshots", len(entries)))
	return runDir, nil
}

// writeSnapshots writes every snapshot concurrently, bounded by the
// configured concurrency. Entries keep log order.
func (r *Reporter) writeSnapshots(ctx context.Context, runDir string, snaps []schemas.Snapshot) ([]SnapshotEntry, error) {
	entries := make([]SnapshotEntry, len(snaps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, snap := range snaps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := fmt.Sprintf("snapshot_%04d.html", snap.Sequence)
			if r.compress {
				name += compressedExt
			}
			rel := filepath.Join(snapshotsDir, name)

			err := r.writeFile(filepath.Join(runDir, rel), func(w io.Writer) error {
				if !r.compress {
					_, err := io.WriteString(w, snap.Source)
					return err
				}
				bw := brotli.NewWriterLevel(w, brotli.DefaultCompression)
				if _, err := io.WriteString(bw, snap.Source); err != nil {
					bw.Close()
					return err
				}
				return bw.Close()
			})
			if err != nil {
				return fmt.Errorf("failed to write snapshot %d: %w", snap.Sequence, err)
			}

			entries[i] = SnapshotEntry{
				Sequence:  snap.Sequence,
				File:      filepath.ToSlash(rel),
				Path:      snap.Path,
				LoopValue: snap.LoopValue,
				Title:     PageTitle(snap.Source),
				Bytes:     len(snap.Source),
				TakenAt:   snap.TakenAt,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Reporter) writeFile(path string, fill func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fill(f)
}

// ReadSnapshot returns the HTML stored in a snapshot file, decompressing
// .br files.
func ReadSnapshot(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, compressedExt) {
		src = brotli.NewReader(f)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return string(data), nil
}

// ReadManifest loads the manifest of a written run directory.
func ReadManifest(runDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(runDir, manifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}
