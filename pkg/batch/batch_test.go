package batch_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims2tif/internal/imstest"
	"ims2tif/pkg/batch"
	"ims2tif/pkg/export"
	"ims2tif/pkg/extract"
)

// writeFixtures populates dir with count valid containers named c0.ims,
// c1.ims, ... plus an unrelated file batch scanning must ignore.
func writeFixtures(t *testing.T, dir string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, "c"+string(rune('0'+i))+".ims")
		imstest.WriteStack(t, path, imstest.Stack(2, 3, 3, func(z int) uint16 {
			return uint16(50 * (z + 1))
		}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
}

func newOrchestrator(cfg batch.Config) *batch.Orchestrator {
	log := zerolog.Nop()
	return batch.New(cfg, extract.New(log), export.New(log), log)
}

func TestRunConvertsAll(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, 3)

	stats, err := newOrchestrator(batch.Config{Root: dir, Mode: export.Stack}).Run()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalFound)
	assert.Equal(t, 3, stats.Successful)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Skipped)
	assert.InDelta(t, 1.0, stats.SuccessRate(), 1e-9)

	for i := 0; i < 3; i++ {
		_, err := os.Stat(filepath.Join(dir, "c"+string(rune('0'+i))+".tif"))
		assert.NoError(t, err)
	}
}

func TestRunSkipsExistingOutputs(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, 2)
	cfg := batch.Config{Root: dir, Mode: export.Stack}

	_, err := newOrchestrator(cfg).Run()
	require.NoError(t, err)

	// Second run finds the same files but converts none of them.
	stats, err := newOrchestrator(cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFound)
	assert.Zero(t, stats.Successful)
	assert.Equal(t, 2, stats.Skipped)
}

func TestRunOverwrite(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, 1)
	cfg := batch.Config{Root: dir, Mode: export.Stack}

	_, err := newOrchestrator(cfg).Run()
	require.NoError(t, err)

	cfg.Overwrite = true
	stats, err := newOrchestrator(cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Successful)
	assert.Zero(t, stats.Skipped)
}

func TestRunRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "plate1")
	require.NoError(t, os.MkdirAll(sub, 0755))
	writeFixtures(t, dir, 1)
	writeFixtures(t, sub, 1)

	flat, err := newOrchestrator(batch.Config{Root: dir, Mode: export.Stack}).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, flat.TotalFound)

	deep, err := newOrchestrator(batch.Config{Root: dir, Recursive: true, Overwrite: true, Mode: export.Stack}).Run()
	require.NoError(t, err)
	assert.Equal(t, 2, deep.TotalFound)
	assert.Equal(t, 2, deep.Successful)
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, 2)
	// Not a real container; extraction of it must fail without aborting the run.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.ims"), []byte("not hdf5"), 0644))

	stats, err := newOrchestrator(batch.Config{Root: dir, Mode: export.Stack}).Run()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalFound)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.FailedFiles, 1)
	assert.Equal(t, "broken.ims", filepath.Base(stats.FailedFiles[0]))
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate(), 1e-9)
}

func TestRunMissingRoot(t *testing.T) {
	_, err := newOrchestrator(batch.Config{Root: filepath.Join(t.TempDir(), "nope")}).Run()
	assert.ErrorIs(t, err, batch.ErrDirectoryNotFound)
}

func TestRunEmptyDirectory(t *testing.T) {
	stats, err := newOrchestrator(batch.Config{Root: t.TempDir(), Mode: export.Stack}).Run()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalFound)
	assert.Zero(t, stats.SuccessRate())
}

func TestRunSlicesModeSkipDetection(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, 1)
	cfg := batch.Config{Root: dir, Mode: export.Slices}

	stats, err := newOrchestrator(cfg).Run()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Successful)

	// The slice directory, not a .tif file, marks the file as done.
	stats, err = newOrchestrator(cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "scan.tif"), batch.OutputPath(filepath.Join("a", "scan.ims")))
	assert.Equal(t, "scan.tif", batch.OutputPath("scan.IMS"))
}
