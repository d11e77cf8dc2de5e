package linkstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	linkPrefix     = "link:"
	lastSyncPrefix = "lastsync:"
)

// DocLink is the document an issue syncs to.
type DocLink struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// storedLink accepts the legacy docId field alongside id.
type storedLink struct {
	ID    string `json:"id"`
	DocID string `json:"docId"`
	Name  string `json:"name"`
}

// Links records issue to document links and last sync times.
type Links struct {
	store Store
	now   func() time.Time
}

// NewLinks creates a Links on top of store.
func NewLinks(store Store) *Links {
	return &Links{store: store, now: time.Now}
}

// DocFor returns the document linked to issueKey.
func (l *Links) DocFor(ctx context.Context, issueKey string) (DocLink, bool, error) {
	raw, err := l.store.Get(ctx, linkPrefix+issueKey)
	if errors.Is(err, ErrNotFound) {
		return DocLink{}, false, nil
	}
	if err != nil {
		return DocLink{}, false, err
	}

	var stored storedLink
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return DocLink{}, false, fmt.Errorf("invalid link for %s: %w", issueKey, err)
	}

	link := DocLink{ID: stored.ID, Name: stored.Name}
	if link.ID == "" {
		link.ID = stored.DocID
	}
	if link.ID == "" {
		return DocLink{}, false, nil
	}
	return link, true, nil
}

// Link points issueKey at doc.
func (l *Links) Link(ctx context.Context, issueKey string, doc DocLink) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode link: %w", err)
	}
	return l.store.Set(ctx, linkPrefix+issueKey, string(data))
}

// Unlink forgets the document and last sync time of issueKey.
func (l *Links) Unlink(ctx context.Context, issueKey string) error {
	if err := l.store.Delete(ctx, linkPrefix+issueKey); err != nil {
		return err
	}
	return l.store.Delete(ctx, lastSyncPrefix+issueKey)
}

// RecordSync stores the current time as the last sync of issueKey.
func (l *Links) RecordSync(ctx context.Context, issueKey string) error {
	return l.store.Set(ctx, lastSyncPrefix+issueKey, l.now().UTC().Format(time.RFC3339))
}

// LastSync returns when issueKey was last synced.
func (l *Links) LastSync(ctx context.Context, issueKey string) (time.Time, bool, error) {
	raw, err := l.store.Get(ctx, lastSyncPrefix+issueKey)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid last sync time for %s: %w", issueKey, err)
	}
	return t, true, nil
}
