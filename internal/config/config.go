// Package config loads the generator settings: an embedded default file,
// optionally overlaid by a YAML file supplied by the operator.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/routingslipflow/internal/slip"
)

//go:embed defaults/settings.yaml
var defaultSettings []byte

// Paragraph splitting modes.
const (
	ModeMarker        = "marker"
	ModeLineSeparator = "line-separator"
)

// ColumnSettings binds a field to a register column letter.
type ColumnSettings struct {
	Field  string `yaml:"field"`
	Column string `yaml:"column"`
	Header string `yaml:"header"`
}

// MultilineSettings configures one long-text field.
type MultilineSettings struct {
	Field           string `yaml:"field"`
	Row             int    `yaml:"row"`
	Col             int    `yaml:"col"`
	Enabled         bool   `yaml:"enabled"`
	LastLineRight   bool   `yaml:"last_line_right"`
	FirstLineIndent bool   `yaml:"first_line_indent"`
}

// Settings is the YAML settings structure.
type Settings struct {
	Register struct {
		Sheet     string           `yaml:"sheet"`
		StartRow  int              `yaml:"start_row"`
		HeaderRow int              `yaml:"header_row"`
		Columns   []ColumnSettings `yaml:"columns"`
	} `yaml:"register"`
	Template struct {
		Path string `yaml:"path"`
	} `yaml:"template"`
	Output struct {
		Directory     string `yaml:"directory"`
		Label         string `yaml:"label"`
		Extension     string `yaml:"extension"`
		Untitled      string `yaml:"untitled"`
		TitleMaxChars int    `yaml:"title_max_chars"`
	} `yaml:"output"`
	Format struct {
		Font              string  `yaml:"font"`
		SizePt            float64 `yaml:"size_pt"`
		FirstLineIndentPt float64 `yaml:"first_line_indent_pt"`
		CenterRows        []int   `yaml:"center_rows"`
	} `yaml:"format"`
	Dates struct {
		UnknownMarker string `yaml:"unknown_marker"`
	} `yaml:"dates"`
	Paragraphs struct {
		Mode   string `yaml:"mode"`
		Marker string `yaml:"marker"`
	} `yaml:"paragraphs"`
	Multiline []MultilineSettings `yaml:"multiline"`
}

// Default returns the embedded settings.
func Default() (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(defaultSettings, &s); err != nil {
		return nil, fmt.Errorf("failed to parse embedded settings: %w", err)
	}
	return &s, nil
}

// DefaultBytes returns the embedded settings file.
func DefaultBytes() []byte {
	return append([]byte(nil), defaultSettings...)
}

// Load returns the embedded settings overlaid by the file at path. An empty
// path returns the defaults. Lists in the file replace the default lists.
func Load(path string) (*Settings, error) {
	s, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, s.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if s, err = Parse(data); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Parse returns the embedded settings overlaid by the YAML in data.
func Parse(data []byte) (*Settings, error) {
	s, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteDefault writes the embedded settings to path unless a file is already there.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, defaultSettings, 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// Validate checks the settings for values the generator cannot work with.
func (s *Settings) Validate() error {
	if s.Register.StartRow < 1 {
		return fmt.Errorf("register.start_row must be at least 1, got %d", s.Register.StartRow)
	}
	if s.Register.HeaderRow < 0 || (s.Register.HeaderRow > 0 && s.Register.HeaderRow >= s.Register.StartRow) {
		return fmt.Errorf("register.header_row must be 0 or above start_row, got %d", s.Register.HeaderRow)
	}
	if _, err := s.Columns(); err != nil {
		return err
	}
	if _, err := s.Splitter(); err != nil {
		return err
	}
	if _, err := s.Layout(); err != nil {
		return err
	}
	return nil
}

// Columns converts the column table to a slip.ColumnMap.
func (s *Settings) Columns() (slip.ColumnMap, error) {
	if len(s.Register.Columns) == 0 {
		return slip.DefaultColumns(slip.DefaultFirstColumn), nil
	}
	m := make(slip.ColumnMap, 0, len(s.Register.Columns))
	for _, c := range s.Register.Columns {
		idx, err := excelize.ColumnNameToNumber(strings.TrimSpace(c.Column))
		if err != nil {
			return nil, fmt.Errorf("register.columns: field %s: %w", c.Field, err)
		}
		m = append(m, slip.Column{Field: slip.Field(c.Field), Index: idx, Header: c.Header})
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("register.columns: %w", err)
	}
	return m, nil
}

// Extractor returns an extractor over the configured column table.
func (s *Settings) Extractor() (*slip.Extractor, error) {
	cols, err := s.Columns()
	if err != nil {
		return nil, err
	}
	return slip.NewExtractor(cols)
}

// Splitter returns the configured paragraph splitter.
func (s *Settings) Splitter() (slip.Splitter, error) {
	switch s.Paragraphs.Mode {
	case "", ModeMarker:
		marker := s.Paragraphs.Marker
		if marker == "" {
			marker = slip.DefaultParagraphMarker
		}
		return slip.MarkerSplitter{Marker: marker}, nil
	case ModeLineSeparator:
		return slip.LineSeparatorSplitter{}, nil
	}
	return nil, fmt.Errorf("paragraphs.mode: unknown mode %q", s.Paragraphs.Mode)
}

// Layout returns the grid layout with the configured long-text policies.
func (s *Settings) Layout() (slip.Layout, error) {
	layout := slip.DefaultLayout()
	for _, row := range s.Format.CenterRows {
		if row < 0 {
			return slip.Layout{}, fmt.Errorf("format.center_rows: negative row %d", row)
		}
	}
	if s.Format.CenterRows != nil {
		layout.CenterRows = append([]int(nil), s.Format.CenterRows...)
	}
	if s.Multiline == nil {
		return layout, nil
	}
	layout.Multiline = nil
	for _, m := range s.Multiline {
		f := slip.Field(m.Field)
		if !f.IsKnown() {
			return slip.Layout{}, fmt.Errorf("multiline: %w %q", slip.ErrUnknownField, m.Field)
		}
		if m.Row < 0 || m.Col < 0 {
			return slip.Layout{}, fmt.Errorf("multiline: field %s has a negative cell position", m.Field)
		}
		layout.Multiline = append(layout.Multiline, slip.MultilinePolicy{
			Field:           f,
			Row:             m.Row,
			Col:             m.Col,
			Enabled:         m.Enabled,
			LastLineRight:   m.LastLineRight,
			FirstLineIndent: m.FirstLineIndent,
		})
	}
	return layout, nil
}

// DateNormalizer returns the date normalizer with the configured marker.
func (s *Settings) DateNormalizer() slip.DateNormalizer {
	return slip.NewDateNormalizer(s.Dates.UnknownMarker)
}

// Filler returns a filler for the configured layout and formatting.
func (s *Settings) Filler() (*slip.Filler, error) {
	layout, err := s.Layout()
	if err != nil {
		return nil, err
	}
	splitter, err := s.Splitter()
	if err != nil {
		return nil, err
	}
	return slip.NewFiller(slip.FillerConfig{
		Layout:            &layout,
		Font:              slip.Font{Name: s.Format.Font, SizePt: s.Format.SizePt},
		FirstLineIndentPt: s.Format.FirstLineIndentPt,
		Dates:             s.DateNormalizer(),
		Splitter:          splitter,
	}), nil
}

// Namer returns the output namer.
func (s *Settings) Namer() slip.Namer {
	return slip.NewNamer(slip.NameConfig{
		Label:         s.Output.Label,
		Extension:     s.Output.Extension,
		Untitled:      s.Output.Untitled,
		TitleMaxChars: s.Output.TitleMaxChars,
	}, s.DateNormalizer())
}
