package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/routingslipflow/internal/config"
	"github.com/Lllllllleong/routingslipflow/internal/gcp"
	"github.com/Lllllllleong/routingslipflow/internal/models"
	"github.com/Lllllllleong/routingslipflow/internal/register"
)

// ErrBadRequest marks requests the API rejects before doing any work.
var ErrBadRequest = errors.New("bad request")

// SlipAPIConfig holds configuration for the slip API service.
type SlipAPIConfig struct {
	OutputBucket   string
	SettingsObject string
}

// SlipAPIFunction generates slips on request for rows of a register held in GCS.
type SlipAPIFunction struct {
	storageClient *storage.Client
	settings      *config.Settings
	config        SlipAPIConfig
}

// NewSlipAPI creates a new SlipAPIFunction instance.
func NewSlipAPI(ctx context.Context) (*SlipAPIFunction, error) {
	cfg := SlipAPIConfig{
		OutputBucket:   gcp.GetEnv("OUTPUT_BUCKET", ""),
		SettingsObject: gcp.GetEnv("SETTINGS_OBJECT", ""),
	}
	if cfg.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET must be set")
	}

	storageClient, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := loadRemoteSettings(ctx, storageClient, cfg.SettingsObject)
	if err != nil {
		return nil, err
	}

	return &SlipAPIFunction{
		storageClient: storageClient,
		settings:      settings,
		config:        cfg,
	}, nil
}

// ValidateRequest checks a generate request and fills in the output prefix.
func ValidateRequest(req *models.GenerateSlipsRequest) error {
	if req.RegisterURI == "" {
		return fmt.Errorf("%w: registerUri is required", ErrBadRequest)
	}
	_, object, err := gcp.ParseGCSURI(req.RegisterURI)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	for _, row := range req.RowIDs {
		if row < 1 {
			return fmt.Errorf("%w: row ids are 1-based, got %d", ErrBadRequest, row)
		}
	}
	req.OutputPrefix = strings.Trim(req.OutputPrefix, "/")
	if strings.Contains(req.OutputPrefix, "..") {
		return fmt.Errorf("%w: outputPrefix must not contain \"..\"", ErrBadRequest)
	}
	if req.OutputPrefix == "" {
		req.OutputPrefix = strings.TrimSuffix(path.Base(object), path.Ext(object))
	}
	return nil
}

// Process generates slips for the requested rows and returns the run summary.
func (f *SlipAPIFunction) Process(ctx context.Context, req *models.GenerateSlipsRequest) (*models.GenerateSlipsResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	logCtx := slog.With("register", req.RegisterURI, "outputPrefix", req.OutputPrefix)
	logCtx.Info("Starting slip generation request.", "rowCount", len(req.RowIDs))

	bucket, object, _ := gcp.ParseGCSURI(req.RegisterURI)
	data, err := gcp.ReadObject(ctx, f.storageClient, bucket, object)
	if err != nil {
		logCtx.Error("Failed to download register", "error", err)
		return nil, err
	}
	reg, err := register.OpenReader(bytes.NewReader(data), register.Options{Sheet: f.settings.Register.Sheet})
	if err != nil {
		logCtx.Error("Failed to open register", "error", err)
		return nil, err
	}
	defer reg.Close()

	generator, err := NewSlipGenerator(f.settings)
	if err != nil {
		return nil, err
	}
	rows, err := SelectRows(reg, generator.Extractor(), f.settings, req.RowIDs)
	if err != nil {
		logCtx.Error("Failed to select register rows", "error", err)
		return nil, err
	}
	tpl, err := LoadTemplateFrom(ctx, f.settings, storageReader(f.storageClient))
	if err != nil {
		logCtx.Error("Failed to load template", "error", err)
		return nil, err
	}

	sink := NewGCSSink(f.storageClient, f.config.OutputBucket, req.OutputPrefix)
	summary, err := generator.Generate(ctx, rows, reg, tpl, sink)
	if err != nil {
		logCtx.Error("Slip generation failed", "error", err)
		return nil, err
	}

	status := "success"
	if len(summary.Failures) > 0 {
		status = "partial"
	}
	logCtx.Info("Slip generation request complete.", "status", status, "generated", summary.Generated)
	return &models.GenerateSlipsResponse{Status: status, Summary: summary}, nil
}

// List returns the slips already stored under prefix.
func (f *SlipAPIFunction) List(ctx context.Context, prefix string) (*models.ListSlipsResponse, error) {
	prefix = strings.Trim(prefix, "/")
	query := prefix
	if query != "" {
		query += "/"
	}
	names, err := gcp.ListObjects(ctx, f.storageClient, f.config.OutputBucket, query, f.settings.Namer().Extension())
	if err != nil {
		slog.Error("Failed to list slips", "error", err, "prefix", prefix)
		return nil, err
	}
	return &models.ListSlipsResponse{Prefix: prefix, Objects: names}, nil
}
