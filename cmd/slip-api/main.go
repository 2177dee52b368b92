package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/routingslipflow/internal/models"
	"github.com/Lllllllleong/routingslipflow/internal/services"
)

var (
	apiInstance *services.SlipAPIFunction
	once        sync.Once
	initErr     error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleGenerateSlips", handleGenerateSlips)
}

// main is required by the Go Functions Framework.
func main() {}

// handleGenerateSlips generates slips on POST and lists stored slips on GET.
func handleGenerateSlips(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		apiInstance, initErr = services.NewSlipAPI(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: SlipAPI initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		res, err := apiInstance.List(r.Context(), r.URL.Query().Get("prefix"))
		if err != nil {
			http.Error(w, "Internal Server Error: listing failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, res)
	case http.MethodPost:
		var req models.GenerateSlipsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Could not decode request body", "error", err)
			http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
			return
		}
		res, err := apiInstance.Process(r.Context(), &req)
		if errors.Is(err, services.ErrBadRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, res)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
