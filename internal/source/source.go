// Package source supplies downloaded BH03 report grids to the daily run.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"posrecon/internal/grid"
	"posrecon/internal/model"
)

// ErrReportNotFound no report file exists yet for the store and date.
var ErrReportNotFound = errors.New("report not found")

// ReportSource fetches one store's report for one date. Implementations must be safe for concurrent use.
type ReportSource interface {
	Fetch(ctx context.Context, store model.Store, date time.Time) (grid.Grid, error)
}

// reportExtensions tried in order.
var reportExtensions = []string{".xlsx", ".xml"}

// DirSource reads reports from <Root>/<yyyy-mm-dd>/<store code>.xlsx (or .xml).
type DirSource struct {
	Root string
}

// NewDirSource creates a directory-backed source.
func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

// Path returns the first existing report file for store and date.
func (s *DirSource) Path(store model.Store, date time.Time) (string, error) {
	dir := filepath.Join(s.Root, date.Format(model.DateLayout))
	for _, ext := range reportExtensions {
		p := filepath.Join(dir, store.Code+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s %s", ErrReportNotFound, store.Code, date.Format(model.DateLayout))
}

// Fetch implements ReportSource.
func (s *DirSource) Fetch(ctx context.Context, store model.Store, date time.Time) (grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(store, date)
	if err != nil {
		return nil, err
	}
	g, err := grid.DecodeFile(p)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
	}
	return g, nil
}
