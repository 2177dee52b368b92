package slip

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultSlipLabel     = "党委组织部（党校）收文处理笺"
	DefaultExtension     = ".docx"
	DefaultUntitled      = "无标题"
	DefaultTitleMaxChars = 30

	ellipsis = "…"
)

// NameConfig configures output naming. Zero fields take the defaults.
type NameConfig struct {
	Label         string
	Extension     string
	Untitled      string
	TitleMaxChars int
}

// Namer derives output file names and selection labels from records.
type Namer struct {
	cfg   NameConfig
	dates DateNormalizer
}

// NewNamer returns a Namer; dates supplies the compact receipt date and the
// unknown-date marker.
func NewNamer(cfg NameConfig, dates DateNormalizer) Namer {
	if cfg.Label == "" {
		cfg.Label = DefaultSlipLabel
	}
	if cfg.Extension == "" {
		cfg.Extension = DefaultExtension
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}
	if cfg.Untitled == "" {
		cfg.Untitled = DefaultUntitled
	}
	if cfg.TitleMaxChars <= 0 {
		cfg.TitleMaxChars = DefaultTitleMaxChars
	}
	if dates.UnknownMarker == "" {
		dates = NewDateNormalizer("")
	}
	return Namer{cfg: cfg, dates: dates}
}

// DeriveName returns "<compact receipt date><label>（<title>）<extension>".
// The result is a single path segment.
func (n Namer) DeriveName(rec Record) string {
	var b strings.Builder
	b.WriteString(sanitizeSegment(n.receiptDate(rec)))
	b.WriteString(sanitizeSegment(n.cfg.Label))
	b.WriteString("（")
	b.WriteString(n.shortTitle(rec))
	b.WriteString("）")
	b.WriteString(sanitizeSegment(n.cfg.Extension))
	return b.String()
}

// Extension returns the output extension, dot included.
func (n Namer) Extension() string {
	return n.cfg.Extension
}

// Label returns "<compact receipt date> - <title>" for selection lists.
func (n Namer) Label(rec Record) string {
	return n.receiptDate(rec) + " - " + n.shortTitle(rec)
}

func (n Namer) receiptDate(rec Record) string {
	compact := n.dates.Normalize(rec.Value(FieldReceiptDate)).Compact
	if compact == "" {
		return n.dates.marker()
	}
	return compact
}

func (n Namer) shortTitle(rec Record) string {
	title := rec.Text(FieldTitle)
	if title == "" {
		title = n.cfg.Untitled
	}
	return sanitizeSegment(TruncateTitle(title, n.cfg.TitleMaxChars))
}

// TruncateTitle keeps the first max characters of title and appends an
// ellipsis when anything was cut.
func TruncateTitle(title string, max int) string {
	if utf8.RuneCountInString(title) <= max {
		return title
	}
	runes := []rune(title)
	return string(runes[:max]) + ellipsis
}

// sanitizeSegment substitutes characters that are not allowed in a file name
// on common filesystems. The substitution is one rune for one rune.
func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, s)
}
