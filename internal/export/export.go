package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/clavrr/clavr/internal/store"
)

// Archive describes a finished export on disk.
type Archive struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// manifest is the index document written as the first zip entry.
type manifest struct {
	ExportID  string    `json:"export_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Files     []string  `json:"files"`
}

// subscriptionRecord is a webhook subscription stripped of its signing
// secret. Secrets never leave the server, not even in the owner's export.
type subscriptionRecord struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Events          []string   `json:"events"`
	Status          string     `json:"status"`
	FailureCount    int        `json:"failure_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Assemble writes the archive for one user and returns its location. The
// file lands in dir as clavr-export-<exportID>.zip.
func Assemble(ctx context.Context, st *store.Store, dir, exportID, userID string) (*Archive, error) {
	user, err := st.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	tasks, err := st.Tasks.List(ctx, userID, store.TaskFilter{})
	if err != nil {
		return nil, err
	}
	queries, err := st.Queries.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	subs, err := st.Webhooks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	redacted := make([]subscriptionRecord, 0, len(subs))
	for _, s := range subs {
		redacted = append(redacted, subscriptionRecord{
			ID:              s.ID,
			URL:             s.URL,
			Events:          s.Events,
			Status:          s.Status,
			FailureCount:    s.FailureCount,
			LastTriggeredAt: s.LastTriggeredAt,
			CreatedAt:       s.CreatedAt,
		})
	}

	now := time.Now().UTC()
	entries := []struct {
		name string
		data any
	}{
		{"profile.json", user},
		{"tasks.json", tasks},
		{"queries.json", queries},
		{"webhooks.json", redacted},
	}

	m := manifest{ExportID: exportID, UserID: userID, CreatedAt: now}
	for _, e := range entries {
		m.Files = append(m.Files, e.name)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, "clavr-export-"+exportID+".zip")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create export archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if err := writeEntry(zw, "manifest.json", m); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := writeEntry(zw, e.name, e.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize export archive: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat export archive: %w", err)
	}
	return &Archive{Path: path, Size: info.Size(), CreatedAt: now}, nil
}

func writeEntry(zw *zip.Writer, name string, data any) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return nil
}
