// Package app wires the collection store to the analysis proxy for the client.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/atinyakov/BagWardrobe/internal/analysis"
	"github.com/atinyakov/BagWardrobe/internal/collection"
	"github.com/atinyakov/BagWardrobe/internal/models"
)

var (
	ErrEmptyCollection    = errors.New("add at least one bag before analyzing")
	ErrMissingCredential  = errors.New("enter an API key before analyzing")
	ErrAnalysisInProgress = errors.New("an analysis is already running")
)

// Analyzer sends a collection to the proxy and returns the raw provider reply.
type Analyzer interface {
	Analyze(ctx context.Context, credential string, bags []models.BagRecord, prompt string) ([]byte, error)
}

// App runs the upload and analyze actions against a single store.
type App struct {
	Store    *collection.Store
	Analyzer Analyzer
	Logger   *zap.Logger

	analyzing atomic.Bool
}

// New returns an App. A nil logger is replaced by a no-op one.
func New(store *collection.Store, analyzer Analyzer, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{Store: store, Analyzer: analyzer, Logger: logger}
}

// Upload adds every file in paths to the collection. Files added before a
// failure stay in the collection.
func (a *App) Upload(ctx context.Context, paths []string) ([]models.BagRecord, error) {
	added, err := a.Store.AddFiles(ctx, paths)
	a.Logger.Debug("upload finished", zap.Int("requested", len(paths)), zap.Int("added", len(added)), zap.Error(err))
	return added, err
}

// Analyze sends the current collection for critique, stores the parsed result
// and returns it. Only one analysis may run at a time.
func (a *App) Analyze(ctx context.Context, prompt string) (*models.AnalysisResult, error) {
	records := a.Store.Records()
	if len(records) == 0 {
		return nil, ErrEmptyCollection
	}
	credential := a.Store.Credential()
	if credential == "" {
		return nil, ErrMissingCredential
	}
	if !a.analyzing.CompareAndSwap(false, true) {
		return nil, ErrAnalysisInProgress
	}
	defer a.analyzing.Store(false)

	a.Logger.Debug("analysis started", zap.Int("bags", len(records)))

	raw, err := a.Analyzer.Analyze(ctx, credential, records, prompt)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	result, err := analysis.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	a.Store.SetAnalysis(result)
	a.Logger.Debug("analysis stored",
		zap.Int("gaps", len(result.Gaps)),
		zap.Int("recommendations", len(result.Recommendations)))
	return result, nil
}

// InProgress reports whether an analysis is running.
func (a *App) InProgress() bool {
	return a.analyzing.Load()
}
