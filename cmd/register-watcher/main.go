package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/routingslipflow/internal/models"
	"github.com/Lllllllleong/routingslipflow/internal/services"
)

var (
	watcherInstance *services.RegisterWatcherFunction
	once            sync.Once
	initErr         error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("GenerateSlips", generateSlips)
}

// main is required by the Go Functions Framework.
func main() {}

// generateSlips is the Cloud Function entry point for register uploads.
func generateSlips(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		watcherInstance, initErr = services.NewRegisterWatcher(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs its own failures.
	return watcherInstance.Process(ctx, gcsEvent)
}
