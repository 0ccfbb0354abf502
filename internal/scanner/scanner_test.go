package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/scanpipe/internal/config"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner/runnertest"
)

func TestPaperGeometry(t *testing.T) {
	tests := []struct {
		paper    config.PaperSize
		expected Geometry
	}{
		{config.PaperA4, Geometry{210, 297}},
		{config.PaperA5, Geometry{148, 210}},
		{config.PaperA6, Geometry{105, 148}},
		{config.PaperSize("letter"), Geometry{210, 297}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, PaperGeometry(tt.paper), "paper %s", tt.paper)
	}
}

func TestCommand_Args(t *testing.T) {
	c := Command{
		Device:     "fujitsu",
		Resolution: 400,
		Mode:       config.ModeDuplex,
		Color:      config.ColorGray,
		Paper:      config.PaperA5,
	}

	expected := []string{
		"-d", "fujitsu",
		"--resolution", "400",
		"--source", "ADF Duplex",
		"--mode", "Gray",
		"-x", "148",
		"-y", "210",
		"--page-width", "148",
		"--page-height", "210",
		"--format=tiff",
		"--batch=scan%d.tif",
		"--batch-start=1",
	}
	assert.Equal(t, expected, c.Args())
}

func TestCommand_ArgsColorVocabulary(t *testing.T) {
	tests := map[config.Color]string{
		config.ColorLineart: "Lineart",
		config.ColorGray:    "Gray",
		config.ColorColor:   "Color",
	}

	for color, expected := range tests {
		args := Command{Color: color, Mode: config.ModeSingle}.Args()
		assert.Equal(t, expected, args[7])
		assert.Equal(t, "ADF Front", args[5])
	}
}

// scanPages returns a handler that writes n pages the way scanimage does.
func scanPages(t *testing.T, n int, exitCode int) runnertest.Handler {
	return func(c runner.Cmd) (runner.Result, error) {
		for i := 1; i <= n; i++ {
			require.NoError(t, runnertest.WriteTIFF(filepath.Join(c.Dir, fmt.Sprintf(PagePattern, i))))
		}
		return runner.Result{ExitCode: exitCode}, nil
	}
}

func scanOptions() config.Options {
	return config.Options{
		Mode:       config.ModeSingle,
		Color:      config.ColorLineart,
		PaperSize:  config.PaperA4,
		Resolution: 300,
	}
}

func TestDriver_ScanTreatsFeederEmptyAsSuccess(t *testing.T) {
	dir := t.TempDir()
	fake := runnertest.New()
	fake.Handle("scanimage", scanPages(t, 3, 7))

	pages, err := NewDriver(fake, config.DefaultSettings()).Scan(context.Background(), scanOptions(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "scan1.tif"),
		filepath.Join(dir, "scan2.tif"),
		filepath.Join(dir, "scan3.tif"),
	}, pages)

	calls := fake.CallsTo("scanimage")
	require.Len(t, calls, 1)
	assert.Equal(t, dir, calls[0].Dir)
	assert.Equal(t, []int{7}, calls[0].Accept)
}

func TestDriver_ScanFailsOnOtherCodes(t *testing.T) {
	fake := runnertest.New()
	fake.Handle("scanimage", runnertest.Exit(9))

	_, err := NewDriver(fake, config.DefaultSettings()).Scan(context.Background(), scanOptions(), t.TempDir())

	var exitErr *runner.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 9, exitErr.Code)
}

func TestDriver_ScanWithoutPages(t *testing.T) {
	fake := runnertest.New()
	fake.Handle("scanimage", runnertest.Exit(7))

	_, err := NewDriver(fake, config.DefaultSettings()).Scan(context.Background(), scanOptions(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestPages_NaturalOrder(t *testing.T) {
	for _, n := range []int{1, 9, 10, 12, 105} {
		t.Run(fmt.Sprintf("%d pages", n), func(t *testing.T) {
			dir := t.TempDir()
			// Create in reverse to make sure ordering does not come from the filesystem.
			for i := n; i >= 1; i-- {
				require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf(PagePattern, i)), nil, 0644))
			}

			pages, err := Pages(dir)
			require.NoError(t, err)
			require.Len(t, pages, n)
			for i, p := range pages {
				assert.Equal(t, fmt.Sprintf("scan%d.tif", i+1), filepath.Base(p))
			}
		})
	}
}

func TestPages_DirectoryWithPatternCharacters(t *testing.T) {
	for _, name := range []string{"Scans [2024]", "tax*returns", "what?", "100% done"} {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.Mkdir(dir, 0755))
			for i := 3; i >= 1; i-- {
				require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf(PagePattern, i)), nil, 0644))
			}
			require.NoError(t, os.WriteFile(filepath.Join(dir, "compact-1.pdf"), nil, 0644))
			require.NoError(t, os.Mkdir(filepath.Join(dir, "scan9.tif"), 0755))

			pages, err := Pages(dir)
			require.NoError(t, err)
			assert.Equal(t, []string{
				filepath.Join(dir, "scan1.tif"),
				filepath.Join(dir, "scan2.tif"),
				filepath.Join(dir, "scan3.tif"),
			}, pages)
		})
	}
}

func TestDriver_ScanBatchPatternIsRelative(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "100% [scans]")
	require.NoError(t, os.Mkdir(dir, 0755))

	fake := runnertest.New()
	fake.Handle("scanimage", scanPages(t, 2, 7))

	pages, err := NewDriver(fake, config.DefaultSettings()).Scan(context.Background(), scanOptions(), dir)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	call := fake.CallsTo("scanimage")[0]
	assert.Equal(t, dir, call.Dir)
	assert.Contains(t, call.Args, "--batch=scan%d.tif")
}
