// Package run manages per-run workspaces: a timestamped directory holding
// the dataset file, a configuration snapshot, a structured log, and any
// error reports.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nbirkbak/journalist/constants"
	"github.com/nbirkbak/journalist/internal/common"
	"github.com/nbirkbak/journalist/internal/schema"
)

const timestampLayout = "20060102_150405"

// Workspace is a run directory identified by its creation timestamp.
// Created once at run start and never reused.
type Workspace struct {
	Dir       string
	Timestamp string
	Logger    *slog.Logger

	logFile *os.File
}

// Metadata is the document written next to the dataset at run start.
type Metadata struct {
	CreatedAt     time.Time `json:"created_at"`
	SchemaVersion string    `json:"schema_version"`
	Model         string    `json:"model"`
	DataDir       string    `json:"data_dir"`
	OutputFormat  string    `json:"output_format"`
	Concurrency   int       `json:"concurrency"`
	FlushEvery    int       `json:"flush_every"`
}

// CreateRun allocates a directory named by the current timestamp at second
// granularity under root. Two runs starting within the same second collide
// and fail with ErrAlreadyExists; this is surfaced, not retried. A
// configuration snapshot and a metadata document are written as side
// effects.
func CreateRun(root string, cfg *common.Config) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, common.WrapError(err, "create output root")
	}
	ts := time.Now().Format(timestampLayout)
	dir := filepath.Join(root, ts)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, common.NewAppError("RUN_DIR", fmt.Sprintf("run directory %q already exists", dir), common.ErrAlreadyExists)
		}
		return nil, common.WrapError(err, "create run directory")
	}

	logFile, err := os.OpenFile(filepath.Join(dir, "run.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, common.WrapError(err, "open run log")
	}
	level := slog.LevelInfo
	if cfg.Run.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(io.MultiWriter(logFile, os.Stderr), &slog.HandlerOptions{Level: level}))

	ws := &Workspace{Dir: dir, Timestamp: ts, Logger: logger, logFile: logFile}

	meta := Metadata{
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: schema.Version,
		Model:         cfg.Extraction.Model,
		DataDir:       cfg.Run.DataDir,
		OutputFormat:  cfg.Run.OutputFormat,
		Concurrency:   cfg.Run.Concurrency,
		FlushEvery:    cfg.Run.FlushEvery,
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, common.WrapError(err, "marshal metadata")
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), raw, 0o644); err != nil {
		return nil, common.WrapError(err, "write metadata")
	}

	snap, err := cfg.Snapshot()
	if err != nil {
		return nil, common.WrapError(err, "snapshot config")
	}
	if err := os.WriteFile(filepath.Join(dir, "config_snapshot.yaml"), snap, 0o644); err != nil {
		return nil, common.WrapError(err, "write config snapshot")
	}

	logger.Info("run.workspace.created", "dir", dir)
	return ws, nil
}

// DatasetPath returns the dataset file path inside the workspace for the
// given base name and extension.
func (w *Workspace) DatasetPath(name, ext string) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s_%s.%s", w.Timestamp, name, ext))
}

// LogError logs a message with the error's full cause chain beneath it.
func (w *Workspace) LogError(msg string, err error) {
	w.Logger.Error(msg, "error", err, "chain", strings.Join(ErrorChain(err), " <- "))
}

// WriteError persists a timestamped standalone error report and returns its
// path. Used when a run aborts.
func (w *Workspace) WriteError(err error) (string, error) {
	ts := time.Now().Format(timestampLayout)
	path := filepath.Join(w.Dir, fmt.Sprintf("error_%s.txt", ts))
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] run aborted\n", time.Now().Format(time.RFC3339))
	for i, line := range ErrorChain(err) {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", i), line)
	}
	if werr := os.WriteFile(path, []byte(b.String()), 0o644); werr != nil {
		return "", common.WrapError(werr, "write error report")
	}
	return path, nil
}

// Close releases the workspace log file.
func (w *Workspace) Close() error {
	if w.logFile == nil {
		return nil
	}
	return w.logFile.Close()
}

// ErrorChain unwinds an error into its cause chain, outermost first.
func ErrorChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}

// LatestDataset locates the most recent run subdirectory under root that
// contains a dataset file and returns that dataset's path.
func LatestDataset(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", common.WrapError(err, "read output root")
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		files, err := os.ReadDir(filepath.Join(root, d))
		if err != nil {
			continue
		}
		for _, f := range files {
			ext := constants.NormalizeExt(filepath.Ext(f.Name()))
			if ext == constants.TableExt || ext == constants.LineDelimitedExt {
				return filepath.Join(root, d, f.Name()), nil
			}
		}
	}
	return "", common.NewAppError("RUN_DIR", fmt.Sprintf("no run with a dataset under %q", root), common.ErrNotFound)
}
