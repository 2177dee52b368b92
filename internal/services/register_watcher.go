package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/routingslipflow/internal/config"
	"github.com/Lllllllleong/routingslipflow/internal/gcp"
	"github.com/Lllllllleong/routingslipflow/internal/models"
	"github.com/Lllllllleong/routingslipflow/internal/register"
)

type RegisterWatcherConfig struct {
	ProjectID      string
	OutputBucket   string
	CollectionName string
	SettingsObject string
}

// RegisterWatcherFunction generates slips for every admissible row of a
// register uploaded to a bucket.
type RegisterWatcherFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	settings        *config.Settings
	config          RegisterWatcherConfig
}

func NewRegisterWatcher(ctx context.Context) (*RegisterWatcherFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	cfg := RegisterWatcherConfig{
		ProjectID:      projectID,
		OutputBucket:   gcp.GetEnv("OUTPUT_BUCKET", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "slipRuns"),
		SettingsObject: gcp.GetEnv("SETTINGS_OBJECT", ""),
	}
	if cfg.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := loadRemoteSettings(ctx, storageClient, cfg.SettingsObject)
	if err != nil {
		return nil, err
	}

	f := &RegisterWatcherFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		settings:        settings,
		config:          cfg,
	}
	slog.Info("Register watcher initialized.", "outputBucket", cfg.OutputBucket, "settingsObject", cfg.SettingsObject)
	return f, nil
}

// loadRemoteSettings reads settings from a gs:// URI, or returns the
// defaults when uri is empty.
func loadRemoteSettings(ctx context.Context, client *storage.Client, uri string) (*config.Settings, error) {
	if uri == "" {
		return config.Default()
	}
	bucket, object, err := gcp.ParseGCSURI(uri)
	if err != nil {
		return nil, fmt.Errorf("SETTINGS_OBJECT: %w", err)
	}
	data, err := gcp.ReadObject(ctx, client, bucket, object)
	if err != nil {
		return nil, err
	}
	s, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("settings %s: %w", uri, err)
	}
	return s, nil
}

// IsRegisterObject reports whether an uploaded object looks like a register workbook.
func IsRegisterObject(name string) bool {
	return strings.EqualFold(path.Ext(name), ".xlsx") && !strings.HasPrefix(path.Base(name), "~$")
}

func (f *RegisterWatcherFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !IsRegisterObject(e.Name) {
		logCtx.Info("Object is not a register workbook. Skipping.")
		return nil
	}
	logCtx.Info("Processing new register.")

	data, err := gcp.ReadObject(ctx, f.storageClient, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download register", "error", err)
		return err
	}

	fileHash := calculateHash(data)
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, runID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate register detected. Skipping.", "existingRunId", runID)
		return nil
	}

	docRef, err := f.createInitialRun(ctx, fileHash, e.Name)
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created batch run in Firestore.")

	reg, rows, err := f.validate(ctx, logCtx, docRef, data)
	if err != nil {
		return err
	}
	defer reg.Close()

	summary, err := f.generate(ctx, logCtx, docRef, reg, rows)
	if err != nil {
		return err
	}

	if err := f.complete(ctx, logCtx, docRef, summary); err != nil {
		return err
	}
	logCtx.Info("Register processed.", "generated", summary.Generated, "failed", len(summary.Failures))
	return nil
}

func (f *RegisterWatcherFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *RegisterWatcherFunction) createInitialRun(ctx context.Context, fileHash, filename string) (*firestore.DocumentRef, error) {
	run := models.BatchRun{
		FileHash:         fileHash,
		OriginalFilename: filename,
		Status:           models.StatusValidating,
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch run document: %w", err)
	}
	return docRef, nil
}

// validate opens the register and picks the rows to generate.
func (f *RegisterWatcherFunction) validate(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, data []byte) (*register.Register, []int, error) {
	reg, err := register.OpenReader(bytes.NewReader(data), register.Options{Sheet: f.settings.Register.Sheet})
	if err != nil {
		return nil, nil, f.handleError(ctx, logCtx, docRef, "failed to open register", err)
	}
	extractor, err := f.settings.Extractor()
	if err != nil {
		reg.Close()
		return nil, nil, f.handleError(ctx, logCtx, docRef, "invalid column table", err)
	}
	rows, err := SelectRows(reg, extractor, f.settings, nil)
	if err != nil {
		reg.Close()
		return nil, nil, f.handleError(ctx, logCtx, docRef, "failed to select register rows", err)
	}

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusGenerating},
		{Path: "rowCount", Value: len(rows)},
		{Path: "outputPrefix", Value: docRef.ID},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		reg.Close()
		return nil, nil, f.handleError(ctx, logCtx, docRef, "failed to update status to GENERATING", err)
	}
	logCtx.Info("Register validated.", "sheet", reg.Sheet(), "rowCount", len(rows))
	return reg, rows, nil
}

func (f *RegisterWatcherFunction) generate(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, reg *register.Register, rows []int) (*models.BatchSummary, error) {
	generator, err := NewSlipGenerator(f.settings)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "invalid generator settings", err)
	}
	tpl, err := LoadTemplateFrom(ctx, f.settings, storageReader(f.storageClient))
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to load template", err)
	}
	sink := NewGCSSink(f.storageClient, f.config.OutputBucket, docRef.ID)
	summary, err := generator.Generate(ctx, rows, reg, tpl, sink)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "slip generation failed", err)
	}
	return summary, nil
}

// complete stores the run summary beside the slips and marks the run COMPLETED.
func (f *RegisterWatcherFunction) complete(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, summary *models.BatchSummary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal run summary", err)
	}
	summaryObject := docRef.ID + "/summary.json"
	if err := gcp.SaveToGCSAtomically(ctx, f.storageClient.Bucket(f.config.OutputBucket), summaryObject, payload); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to save run summary", err)
	}

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusCompleted},
		{Path: "generatedCount", Value: summary.Generated},
	}
	if failed := summary.FailedRows(); len(failed) > 0 {
		updates = append(updates, firestore.Update{Path: "failedRows", Value: failed})
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETED", err)
	}
	return nil
}

func (f *RegisterWatcherFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *RegisterWatcherFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func calculateHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
