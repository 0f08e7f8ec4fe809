// Package batch converts every IMS file under a directory tree.
//
// A run moves through fixed phases: scan the tree for candidate files,
// convert each one in turn, then summarize. The file list is captured once
// at scan time, and no single file's failure ever aborts the run.
package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"ims2tif/pkg/export"
	"ims2tif/pkg/extract"
	"ims2tif/pkg/ims"
)

// imsExt is the container file extension candidates must carry.
const imsExt = ".ims"

// ErrDirectoryNotFound is returned when the scan root does not exist.
var ErrDirectoryNotFound = errors.New("directory not found")

// Config describes one batch run.
type Config struct {
	// Root is the directory to scan.
	Root string

	// Recursive scans subdirectories too.
	Recursive bool

	// Overwrite converts files even when their output already exists.
	Overwrite bool

	// Mode is the export mode applied to every file.
	Mode export.Mode

	// Selector picks the array inside each container.
	Selector ims.Selector

	// Extract controls empty-plane filtering.
	Extract extract.Options
}

// Stats accumulates the outcome of a run.
type Stats struct {
	TotalFound  int
	Successful  int
	Failed      int
	Skipped     int
	FailedFiles []string
}

// SuccessRate is successful conversions over files found, 0 for an empty run.
func (s *Stats) SuccessRate() float64 {
	if s.TotalFound == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.TotalFound)
}

// Orchestrator runs batch conversions.
type Orchestrator struct {
	cfg       Config
	extractor *extract.Extractor
	exporter  *export.Exporter
	log       zerolog.Logger
}

// New returns an Orchestrator for one run configuration.
func New(cfg Config, extractor *extract.Extractor, exporter *export.Exporter, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, extractor: extractor, exporter: exporter, log: log}
}

// Run scans, converts and summarizes. The returned error covers run-level
// failures only (a missing root directory); per-file failures are recorded
// in Stats.
func (o *Orchestrator) Run() (*Stats, error) {
	files, err := o.scan()
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalFound: len(files)}
	o.log.Info().
		Str("root", o.cfg.Root).
		Bool("recursive", o.cfg.Recursive).
		Int("found", len(files)).
		Msg("scan complete")
	if len(files) == 0 {
		return stats, nil
	}

	for i, file := range files {
		target := OutputPath(file)
		if !o.cfg.Overwrite && targetExists(target, o.cfg.Mode) {
			stats.Skipped++
			o.log.Info().
				Int("n", i+1).Int("of", len(files)).
				Str("file", filepath.Base(file)).
				Msg("skipped, output exists")
			continue
		}

		o.log.Info().
			Int("n", i+1).Int("of", len(files)).
			Str("file", filepath.Base(file)).
			Msg("converting")

		if err := o.convert(file, target); err != nil {
			stats.Failed++
			stats.FailedFiles = append(stats.FailedFiles, file)
			o.log.Error().Err(err).Str("file", file).Msg("conversion failed")
			continue
		}
		stats.Successful++
	}

	o.log.Info().
		Int("found", stats.TotalFound).
		Int("successful", stats.Successful).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Float64("successRate", stats.SuccessRate()).
		Msg("batch complete")
	for _, f := range stats.FailedFiles {
		o.log.Warn().Str("file", filepath.Base(f)).Msg("failed file")
	}

	return stats, nil
}

// convert runs extraction and export for one file, naming the failing stage
// in the returned error.
func (o *Orchestrator) convert(file, target string) error {
	res, err := o.extractor.Extract(file, o.cfg.Selector, o.cfg.Extract)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if _, err := o.exporter.Export(res.Image, target, o.cfg.Mode); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// scan enumerates candidate files. The list is captured once; files that
// appear afterwards are never seen by this run.
func (o *Orchestrator) scan() ([]string, error) {
	info, err := os.Stat(o.cfg.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, o.cfg.Root)
		}
		return nil, fmt.Errorf("scanning %s: %w", o.cfg.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, o.cfg.Root)
	}

	var files []string
	if o.cfg.Recursive {
		err = filepath.WalkDir(o.cfg.Root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isIMS(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", o.cfg.Root, err)
		}
		return files, nil
	}

	entries, err := os.ReadDir(o.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", o.cfg.Root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && isIMS(entry.Name()) {
			files = append(files, filepath.Join(o.cfg.Root, entry.Name()))
		}
	}
	return files, nil
}

func isIMS(path string) bool {
	return strings.EqualFold(filepath.Ext(path), imsExt)
}

// OutputPath is the conversion target for a container: the same location
// with a .tif extension.
func OutputPath(imsPath string) string {
	return strings.TrimSuffix(imsPath, filepath.Ext(imsPath)) + ".tif"
}

// targetExists reports whether the output of a previous run is present.
// Slices mode writes a directory of per-plane files rather than a single
// artifact.
func targetExists(target string, mode export.Mode) bool {
	path := target
	if mode == export.Slices {
		path = export.SliceDir(target)
	}
	_, err := os.Stat(path)
	return err == nil
}
