package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/routingslipflow/internal/gcp"
)

// Sink persists finished slips. Names are single path segments; saving a
// name twice replaces the earlier content.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) error
	Location() string
}

// flusher is implemented by sinks that buffer writes until the batch ends.
type flusher interface {
	Flush(ctx context.Context) error
}

// DirSink writes slips into a local directory.
type DirSink struct {
	dir string
}

// NewDirSink creates dir, including parents, if it does not exist.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &DirSink{dir: dir}, nil
}

// Save writes to a temporary file beside the target and renames it into
// place, so a slip is never visible half written.
func (s *DirSink) Save(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".slip-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", s.dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set mode of %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

func (s *DirSink) Location() string { return s.dir }

// MemorySink keeps slips in memory.
type MemorySink struct {
	Files map[string][]byte
	// Names records every save in order, repeats included.
	Names []string
}

func NewMemorySink() *MemorySink {
	return &MemorySink{Files: make(map[string][]byte)}
}

func (s *MemorySink) Save(_ context.Context, name string, data []byte) error {
	s.Files[name] = append([]byte(nil), data...)
	s.Names = append(s.Names, name)
	return nil
}

func (s *MemorySink) Location() string { return "memory" }

// GCSSink buffers slips and uploads them to a bucket prefix on Flush. Repeated
// names are resolved in save order before anything is uploaded, so the
// concurrent upload never races two writers on one object.
type GCSSink struct {
	client  *storage.Client
	bucket  string
	prefix  string
	limit   int
	pending map[string][]byte
	order   []string
}

// NewGCSSink returns a sink writing under gs://bucket/prefix.
func NewGCSSink(client *storage.Client, bucket, prefix string) *GCSSink {
	return &GCSSink{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		limit:   10,
		pending: make(map[string][]byte),
	}
}

func (s *GCSSink) Save(_ context.Context, name string, data []byte) error {
	if _, ok := s.pending[name]; !ok {
		s.order = append(s.order, name)
	}
	s.pending[name] = data
	return nil
}

// Object returns the object name a slip is stored under.
func (s *GCSSink) Object(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *GCSSink) Location() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.prefix)
}

// Flush uploads every buffered slip.
func (s *GCSSink) Flush(ctx context.Context) error {
	slog.Info("Starting concurrent upload of slips.", "count", len(s.order), "location", s.Location())
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.limit)

	for _, name := range s.order {
		data := s.pending[name]
		object := s.Object(name)
		eg.Go(func() error {
			if err := gcp.UploadObject(gctx, s.client, s.bucket, object, data); err != nil {
				return fmt.Errorf("slip %s: %w", name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("one or more slips failed to upload: %w", err)
	}
	s.pending = make(map[string][]byte)
	s.order = nil
	return nil
}
