// Package archive stores daily reports and run artifacts in cold storage,
// keyed by calendar day.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
)

// Storage defines the interface for archive backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// New creates a Storage backend from configuration. An empty type disables
// archiving and returns nil.
func New(cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}

// RunArtifact is the JSON document archived for each pipeline run.
type RunArtifact struct {
	Date            string                     `json:"date"`
	Snapshot        core.PortfolioSnapshot     `json:"snapshot"`
	Market          core.MarketContext         `json:"market"`
	Recommendations []core.TradeRecommendation `json:"recommendations"`
	Metrics         core.PerformanceMetrics    `json:"metrics"`
}

// Archiver writes run output to a Storage backend.
type Archiver struct {
	storage Storage
}

// NewArchiver wraps a backend. A nil backend produces a no-op archiver.
func NewArchiver(storage Storage) *Archiver {
	return &Archiver{storage: storage}
}

// SaveReport stores the rendered markdown under reports/<date>.md.
func (a *Archiver) SaveReport(ctx context.Context, date, markdown string) error {
	if a.storage == nil {
		return nil
	}
	return a.storage.Write(ctx, "reports/"+date+".md", []byte(markdown))
}

// SaveRun stores the machine-readable artifact under runs/<date>.json.
func (a *Archiver) SaveRun(ctx context.Context, artifact RunArtifact) error {
	if a.storage == nil {
		return nil
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	return a.storage.Write(ctx, "runs/"+artifact.Date+".json", data)
}

// Report reads back an archived report by date.
func (a *Archiver) Report(ctx context.Context, date string) (string, error) {
	if a.storage == nil {
		return "", fmt.Errorf("archive disabled")
	}
	data, err := a.storage.Read(ctx, "reports/"+date+".md")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
