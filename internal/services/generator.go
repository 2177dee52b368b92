package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/Lllllllleong/routingslipflow/internal/config"
	"github.com/Lllllllleong/routingslipflow/internal/docx"
	"github.com/Lllllllleong/routingslipflow/internal/gcp"
	"github.com/Lllllllleong/routingslipflow/internal/models"
	"github.com/Lllllllleong/routingslipflow/internal/register"
	"github.com/Lllllllleong/routingslipflow/internal/slip"
)

// SlipGenerator turns register rows into filled routing slips, one row at a time.
type SlipGenerator struct {
	extractor *slip.Extractor
	filler    *slip.Filler
	namer     slip.Namer
}

// NewSlipGenerator builds a generator from settings.
func NewSlipGenerator(s *config.Settings) (*SlipGenerator, error) {
	extractor, err := s.Extractor()
	if err != nil {
		return nil, err
	}
	filler, err := s.Filler()
	if err != nil {
		return nil, err
	}
	return &SlipGenerator{extractor: extractor, filler: filler, namer: s.Namer()}, nil
}

// Extractor returns the generator's column table extractor.
func (g *SlipGenerator) Extractor() *slip.Extractor { return g.extractor }

// Namer returns the generator's file namer.
func (g *SlipGenerator) Namer() slip.Namer { return g.namer }

// ObjectReader reads a whole object from a bucket.
type ObjectReader func(ctx context.Context, bucket, object string) ([]byte, error)

// LoadTemplate reads the configured template from a local path, or builds
// the blank routing slip when no path is set.
func LoadTemplate(s *config.Settings) (*docx.Template, error) {
	return LoadTemplateFrom(context.Background(), s, nil)
}

// LoadTemplateFrom is LoadTemplate that also accepts a gs:// template.path,
// fetched with read. The template is rejected unless every cell the layout
// writes exists in its first table.
func LoadTemplateFrom(ctx context.Context, s *config.Settings, read ObjectReader) (*docx.Template, error) {
	tpl, err := openTemplate(ctx, s, read)
	if err != nil {
		return nil, err
	}
	layout, err := s.Layout()
	if err != nil {
		return nil, err
	}
	doc, err := tpl.Instance()
	if err != nil {
		return nil, err
	}
	grid, err := doc.Grid()
	if err != nil {
		return nil, err
	}
	if err := layout.Check(grid); err != nil {
		return nil, fmt.Errorf("template does not fit the layout: %w", err)
	}
	return tpl, nil
}

func openTemplate(ctx context.Context, s *config.Settings, read ObjectReader) (*docx.Template, error) {
	path := s.Template.Path
	switch {
	case path == "":
		return docx.BlankTemplate(s.Output.Label)
	case strings.HasPrefix(path, "gs://"):
		if read == nil {
			return nil, fmt.Errorf("template %s: gs:// templates can only be read by the cloud functions", path)
		}
		bucket, object, err := gcp.ParseGCSURI(path)
		if err != nil {
			return nil, fmt.Errorf("template.path: %w", err)
		}
		data, err := read(ctx, bucket, object)
		if err != nil {
			return nil, err
		}
		tpl, err := docx.NewTemplate(data)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", path, err)
		}
		return tpl, nil
	}
	return docx.LoadTemplate(path)
}

// storageReader reads objects through a Storage client.
func storageReader(client *storage.Client) ObjectReader {
	return func(ctx context.Context, bucket, object string) ([]byte, error) {
		return gcp.ReadObject(ctx, client, bucket, object)
	}
}

// SelectRows verifies the register header when one is configured and
// returns rowIDs, or every admissible row from the start row on when rowIDs
// is empty.
func SelectRows(reg *register.Register, ex *slip.Extractor, s *config.Settings, rowIDs []int) ([]int, error) {
	if s.Register.HeaderRow > 0 {
		if err := reg.VerifyHeader(s.Register.HeaderRow, ex.Columns()); err != nil {
			return nil, err
		}
	}
	if len(rowIDs) > 0 {
		return rowIDs, nil
	}
	last, err := reg.LastRow()
	if err != nil {
		return nil, err
	}
	return ex.AdmissibleRows(reg, s.Register.StartRow, last)
}

// GenerateToDir runs Generate into a local output directory, creating it if needed.
func (g *SlipGenerator) GenerateToDir(ctx context.Context, rowIDs []int, src slip.RowSource, tpl *docx.Template, dir string) (*models.BatchSummary, error) {
	sink, err := NewDirSink(dir)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, rowIDs, src, tpl, sink)
}

// Generate writes one slip per admissible row in rowIDs, in order. Rows
// without a sender are skipped. A row that fails is recorded in the summary
// and the batch moves on; the returned error is reserved for failures that
// stop the batch (unusable template, cancelled context, failed flush).
func (g *SlipGenerator) Generate(ctx context.Context, rowIDs []int, src slip.RowSource, tpl *docx.Template, sink Sink) (*models.BatchSummary, error) {
	if tpl == nil {
		return nil, errors.New("no template supplied")
	}
	summary := &models.BatchSummary{
		RunID:          uuid.NewString(),
		Requested:      len(rowIDs),
		OutputLocation: sink.Location(),
	}
	logCtx := slog.With("runId", summary.RunID, "location", summary.OutputLocation)
	logCtx.Info("Starting slip generation.", "rowCount", len(rowIDs))

	for _, row := range rowIDs {
		if err := ctx.Err(); err != nil {
			logCtx.Warn("Generation cancelled between rows.", "nextRow", row, "error", err)
			return summary, err
		}
		rowLog := logCtx.With("row", row)

		name, err := g.generateRow(ctx, row, src, tpl, sink)
		switch {
		case errors.Is(err, errSkipped):
			rowLog.Debug("Row has no sender, skipping.")
			summary.Skipped = append(summary.Skipped, row)
		case errors.Is(err, errTemplate):
			rowLog.Error("Template could not be instantiated.", "error", err)
			return summary, err
		case err != nil:
			rowLog.Error("Failed to generate slip.", "error", err)
			summary.Failures = append(summary.Failures, models.RowFailure{Row: row, Error: err.Error()})
		default:
			rowLog.Debug("Slip generated.", "file", name)
			summary.Generated++
			summary.Outputs = append(summary.Outputs, name)
		}
	}

	if f, ok := sink.(flusher); ok {
		if err := f.Flush(ctx); err != nil {
			logCtx.Error("Failed to persist slips.", "error", err)
			return summary, err
		}
	}

	logCtx.Info("Slip generation complete.",
		"generated", summary.Generated,
		"skipped", len(summary.Skipped),
		"failed", len(summary.Failures))
	return summary, nil
}

var (
	errSkipped  = errors.New("row has no sender")
	errTemplate = errors.New("template instance")
)

// generateRow fills and persists one slip. Nothing reaches the sink unless
// every field was written.
func (g *SlipGenerator) generateRow(ctx context.Context, row int, src slip.RowSource, tpl *docx.Template, sink Sink) (name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row %d: panic: %v", row, r)
		}
	}()

	rec, err := g.extractor.Extract(src, row)
	if err != nil {
		return "", err
	}
	if !rec.Admissible() {
		return "", errSkipped
	}

	doc, err := tpl.Instance()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTemplate, err)
	}
	grid, err := doc.Grid()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTemplate, err)
	}
	if err := g.filler.Fill(grid, rec); err != nil {
		return "", fmt.Errorf("row %d: %w", row, err)
	}
	data, err := doc.Bytes()
	if err != nil {
		return "", fmt.Errorf("row %d: failed to render slip: %w", row, err)
	}

	name = g.namer.DeriveName(rec)
	if err := sink.Save(ctx, name, data); err != nil {
		return "", fmt.Errorf("row %d: failed to save %s: %w", row, name, err)
	}
	return name, nil
}
