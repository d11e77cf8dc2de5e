package docsync

import (
	"context"
	"fmt"

	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/danielolaszy/jiradocs/pkg/models"
)

// Document reads and edits a destination document. ApplyEdits must apply a
// batch atomically.
type Document interface {
	GetStructure(ctx context.Context, docID string) (Structure, error)
	ApplyEdits(ctx context.Context, docID string, ops []Operation) error
}

// SyncError reports a failed document read or write.
type SyncError struct {
	Op    string
	DocID string
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to %s document %s: %v", e.Op, e.DocID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Synchronizer writes rendered records into documents.
type Synchronizer struct {
	docs     Document
	renderer *Renderer
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(docs Document, renderer *Renderer) *Synchronizer {
	return &Synchronizer{docs: docs, renderer: renderer}
}

// SyncSingle replaces the record's section in place, or appends it when the
// document has none.
func (s *Synchronizer) SyncSingle(ctx context.Context, docID string, record *models.IssueRecord) error {
	doc, err := s.docs.GetStructure(ctx, docID)
	if err != nil {
		return &SyncError{Op: "read", DocID: docID, Err: err}
	}

	section := s.renderer.Section(record, nil)
	ops := PlanSectionReplace(doc, section)

	logging.Info("syncing issue section",
		"issue", record.Key,
		"doc", docID,
		"operations", len(ops))

	if err := s.docs.ApplyEdits(ctx, docID, ops); err != nil {
		return &SyncError{Op: "update", DocID: docID, Err: err}
	}
	return nil
}

// SyncBulk wipes the document body and writes every record in order.
func (s *Synchronizer) SyncBulk(ctx context.Context, docID string, records []*models.IssueRecord) error {
	doc, err := s.docs.GetStructure(ctx, docID)
	if err != nil {
		return &SyncError{Op: "read", DocID: docID, Err: err}
	}

	coSynced := make(map[string]bool, len(records))
	for _, r := range records {
		coSynced[r.Key] = true
	}

	sections := make([]Section, 0, len(records))
	for _, r := range records {
		sections = append(sections, s.renderer.Section(r, coSynced))
	}
	ops := PlanWipeAndRewrite(doc, sections)

	logging.Info("rewriting document",
		"doc", docID,
		"issues", len(records),
		"operations", len(ops))

	if err := s.docs.ApplyEdits(ctx, docID, ops); err != nil {
		return &SyncError{Op: "update", DocID: docID, Err: err}
	}
	return nil
}
