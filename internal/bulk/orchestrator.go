// Package bulk syncs an epic and its children into one document.
package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/danielolaszy/jiradocs/pkg/models"
)

// DefaultMaxChildren caps child discovery when Options leaves it unset.
const DefaultMaxChildren = 100

// RecordBuilder builds one issue record.
type RecordBuilder interface {
	Build(ctx context.Context, key string) (*models.IssueRecord, error)
}

// ChildFinder discovers the children of a parent or epic issue.
type ChildFinder interface {
	SearchChildIssues(ctx context.Context, parentKey string, maxResults int) ([]string, error)
}

// Writer rewrites a document with records in order.
type Writer interface {
	SyncBulk(ctx context.Context, docID string, records []*models.IssueRecord) error
}

// Progress is reported after every fetch and once the document is written.
// Total is twice the number of keys; the second half covers the write.
type Progress struct {
	Current int
	Total   int
	Key     string
}

// Fraction returns the completed share between 0 and 1.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total)
}

// ProgressFunc receives progress updates.
type ProgressFunc func(Progress)

// Result summarizes a completed bulk sync.
type Result struct {
	Key   string
	Count int
}

// AbortError reports the key whose fetch stopped a bulk sync.
type AbortError struct {
	Key   string
	Index int
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("bulk sync aborted at %s (item %d): %v", e.Key, e.Index+1, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Options configures an Orchestrator.
type Options struct {
	// Delay is the pause between consecutive fetches
	Delay time.Duration

	// MaxChildren caps discovered children, DefaultMaxChildren when zero
	MaxChildren int

	Progress ProgressFunc
}

// Orchestrator fetches an epic and its children sequentially and writes
// them with one wipe-and-rewrite.
type Orchestrator struct {
	builder     RecordBuilder
	finder      ChildFinder
	writer      Writer
	delay       time.Duration
	maxChildren int
	progress    ProgressFunc
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(builder RecordBuilder, finder ChildFinder, writer Writer, opts Options) *Orchestrator {
	maxChildren := opts.MaxChildren
	if maxChildren <= 0 {
		maxChildren = DefaultMaxChildren
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(Progress) {}
	}
	return &Orchestrator{
		builder:     builder,
		finder:      finder,
		writer:      writer,
		delay:       opts.Delay,
		maxChildren: maxChildren,
		progress:    progress,
	}
}

// SyncEpicAndChildren rewrites docID with epicKey followed by its children
// in creation order. Any failed fetch aborts before the document is touched.
func (o *Orchestrator) SyncEpicAndChildren(ctx context.Context, docID, epicKey string) (Result, error) {
	children, err := o.finder.SearchChildIssues(ctx, epicKey, o.maxChildren)
	if err != nil {
		return Result{}, fmt.Errorf("failed to discover children of %s: %w", epicKey, err)
	}

	keys := uniqueKeys(epicKey, children)
	total := len(keys) * 2
	logging.Info("starting bulk sync", "epic", epicKey, "doc", docID, "issues", len(keys))

	records := make([]*models.IssueRecord, 0, len(keys))
	for i, key := range keys {
		if i > 0 {
			if err := sleep(ctx, o.delay); err != nil {
				return Result{}, &AbortError{Key: key, Index: i, Err: err}
			}
		}

		record, err := o.builder.Build(ctx, key)
		if err != nil {
			logging.Error("bulk fetch failed", "issue", key, "index", i, "error", err)
			return Result{}, &AbortError{Key: key, Index: i, Err: err}
		}
		records = append(records, record)
		o.progress(Progress{Current: i + 1, Total: total, Key: key})
	}

	if err := o.writer.SyncBulk(ctx, docID, records); err != nil {
		return Result{}, err
	}
	o.progress(Progress{Current: total, Total: total, Key: epicKey})

	logging.Info("bulk sync complete", "epic", epicKey, "doc", docID, "issues", len(records))
	return Result{Key: epicKey, Count: len(records)}, nil
}

// uniqueKeys puts the epic first and drops repeated keys.
func uniqueKeys(epicKey string, children []string) []string {
	seen := map[string]bool{epicKey: true}
	keys := []string{epicKey}
	for _, k := range children {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
