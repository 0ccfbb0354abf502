// Package config resolves command-line input and process settings into the
// immutable Options record that every pipeline stage receives.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ErrInvalidOption is returned for enumeration or range violations.
var ErrInvalidOption = errors.New("invalid option")

// Resolution bounds accepted by --resolution.
const (
	MinResolution = 50
	MaxResolution = 600
)

// Values forced by the text preset.
const (
	TextPresetResolution = 400
	TextPresetColor      = ColorGray
)

// DefaultOutput is used when no output path is given.
const DefaultOutput = "output.pdf"

type Mode string

const (
	ModeSingle Mode = "single"
	ModeDuplex Mode = "duplex"
)

type Color string

const (
	ColorLineart Color = "lineart"
	ColorGray    Color = "gray"
	ColorColor   Color = "color"
)

type PaperSize string

const (
	PaperA4 PaperSize = "a4"
	PaperA5 PaperSize = "a5"
	PaperA6 PaperSize = "a6"
)

type Preset string

const (
	PresetNone Preset = ""
	PresetText Preset = "text"
)

var (
	modes      = []Mode{ModeSingle, ModeDuplex}
	colors     = []Color{ColorLineart, ColorGray, ColorColor}
	paperSizes = []PaperSize{PaperA4, PaperA5, PaperA6}
	presets    = []Preset{PresetNone, PresetText}
)

// RawOptions holds flag values exactly as the user typed them.
type RawOptions struct {
	Output     string
	Mode       string
	Color      string
	Preset     string
	PaperSize  string
	Resolution int
	Tags       string
	NSParams   string
	// NSParamsSet distinguishes an explicit empty --nsparams from an absent one.
	NSParamsSet      bool
	Text             bool
	ScanOnly         bool
	KeepIntermediate bool
	SkipOCR          bool
	Overwrite        bool
	Verbose          int
}

// Options is the resolved configuration for one run.
type Options struct {
	Output           string
	WorkDir          string
	Mode             Mode
	Color            Color
	PaperSize        PaperSize
	Resolution       int
	Preset           Preset
	Tags             []string
	CompactArgs      []string
	ScanOnly         bool
	KeepIntermediate bool
	SkipOCR          bool
	Overwrite        bool
	Verbosity        int
}

// Resolve validates raw and applies preset expansion once.
// workDir must be absolute; relative output paths are resolved against it.
func Resolve(raw RawOptions, settings Settings, workDir string) (Options, error) {
	opts := Options{
		WorkDir:          workDir,
		Mode:             Mode(strings.ToLower(raw.Mode)),
		Color:            Color(strings.ToLower(raw.Color)),
		PaperSize:        PaperSize(strings.ToLower(raw.PaperSize)),
		Preset:           Preset(strings.ToLower(raw.Preset)),
		Resolution:       raw.Resolution,
		Tags:             SplitTags(raw.Tags),
		ScanOnly:         raw.ScanOnly,
		KeepIntermediate: raw.KeepIntermediate,
		SkipOCR:          raw.SkipOCR,
		Overwrite:        raw.Overwrite,
		Verbosity:        raw.Verbose,
	}

	if !slices.Contains(modes, opts.Mode) {
		return Options{}, invalid("mode", raw.Mode, modes)
	}
	if !slices.Contains(colors, opts.Color) {
		return Options{}, invalid("color", raw.Color, colors)
	}
	if !slices.Contains(paperSizes, opts.PaperSize) {
		return Options{}, invalid("paper-size", raw.PaperSize, paperSizes)
	}
	if !slices.Contains(presets, opts.Preset) {
		return Options{}, invalid("preset", raw.Preset, presets[1:])
	}
	if opts.Resolution < MinResolution || opts.Resolution > MaxResolution {
		return Options{}, fmt.Errorf("%w: --resolution %d is outside [%d,%d]",
			ErrInvalidOption, opts.Resolution, MinResolution, MaxResolution)
	}

	if raw.NSParamsSet {
		opts.CompactArgs = strings.Fields(raw.NSParams)
	} else {
		opts.CompactArgs = slices.Clone(settings.CompactArgs)
	}

	output, err := resolveOutput(raw.Output, workDir)
	if err != nil {
		return Options{}, err
	}
	opts.Output = output

	if raw.Text {
		opts.Preset = PresetText
	}
	if opts.Preset == PresetText {
		opts.Color = TextPresetColor
		opts.Resolution = TextPresetResolution
		opts.CompactArgs = slices.Clone(settings.TextPresetArgs)
	}

	if opts.ScanOnly {
		opts.KeepIntermediate = true
	}

	return opts, nil
}

// SplitTags splits a comma separated list, trimming blanks and dropping empties.
func SplitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func resolveOutput(path, workDir string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultOutput
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	path = filepath.Clean(path)
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		path += ".pdf"
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: output path %q is not absolute", ErrInvalidOption, path)
	}
	return path, nil
}

func invalid[T ~string](flag, value string, allowed []T) error {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return fmt.Errorf("%w: --%s %q (choose from %s)", ErrInvalidOption, flag, value, strings.Join(names, ", "))
}
