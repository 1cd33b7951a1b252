package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveTarget stores snapshots in a Google Drive folder using a service
// account. The folder must be shared with the service account.
type DriveTarget struct {
	svc      *drive.Service
	folderID string
	keep     int
}

var _ Target = (*DriveTarget)(nil)

// NewDriveTarget creates a Drive target from service-account credentials
// JSON. keep <= 0 means DefaultKeep.
func NewDriveTarget(ctx context.Context, credentialsJSON []byte, folderID string, keep int) (*DriveTarget, error) {
	if folderID == "" {
		return nil, fmt.Errorf("missing drive folder id")
	}
	if keep <= 0 {
		keep = DefaultKeep
	}

	svc, err := drive.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(drive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveTarget{svc: svc, folderID: folderID, keep: keep}, nil
}

// Upload stores the snapshot under a timestamped name and prunes entries
// beyond the retention count.
func (d *DriveTarget) Upload(ctx context.Context, snapshot []byte, now time.Time) (Entry, error) {
	name := snapshotName(now)
	meta := &drive.File{
		Name:     name,
		MimeType: "application/json",
		Parents:  []string{d.folderID},
	}

	f, err := d.svc.Files.Create(meta).
		Media(bytes.NewReader(snapshot)).
		Context(ctx).
		Do()
	if err != nil {
		return Entry{}, fmt.Errorf("upload snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Uploaded backup to Drive", "name", name, "file_id", f.Id, "size", len(snapshot))

	if err := d.prune(ctx); err != nil {
		// Retention is best effort; the upload already succeeded.
		slog.WarnContext(ctx, "Backup prune failed", "error", err)
	}
	return Entry{ID: f.Id, Name: name, Created: now.UTC()}, nil
}

// List returns the snapshots in the folder, newest first.
func (d *DriveTarget) List(ctx context.Context) ([]Entry, error) {
	query := fmt.Sprintf("'%s' in parents and name contains '%s' and trashed = false", d.folderID, namePrefix)
	res, err := d.svc.Files.List().
		Q(query).
		Fields("files(id, name)").
		PageSize(100).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list drive backups: %w", err)
	}

	entries := make([]Entry, 0, len(res.Files))
	for _, f := range res.Files {
		entries = append(entries, Entry{ID: f.Id, Name: f.Name, Created: timeFromName(f.Name)})
	}
	sortNewestFirst(entries)
	return entries, nil
}

// Download fetches one snapshot by file ID.
func (d *DriveTarget) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := d.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download snapshot %s: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	return data, nil
}

// prune deletes entries beyond the retention count, in parallel.
func (d *DriveTarget) prune(ctx context.Context) error {
	entries, err := d.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) <= d.keep {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, e := range entries[d.keep:] {
		g.Go(func() error {
			if err := d.svc.Files.Delete(e.ID).Context(ctx).Do(); err != nil {
				return fmt.Errorf("delete old backup %s: %w", e.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
