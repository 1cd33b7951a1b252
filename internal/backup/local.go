package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// LocalTarget stores snapshots as timestamped files in a directory. It is
// the offline counterpart of DriveTarget and shares its naming and
// retention behavior.
type LocalTarget struct {
	dir  string
	keep int
}

var _ Target = (*LocalTarget)(nil)

// NewLocalTarget creates the directory if needed. keep <= 0 means
// DefaultKeep.
func NewLocalTarget(dir string, keep int) (*LocalTarget, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &LocalTarget{dir: dir, keep: keep}, nil
}

func (l *LocalTarget) Upload(ctx context.Context, snapshot []byte, now time.Time) (Entry, error) {
	name := snapshotName(now)
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, snapshot, 0o644); err != nil {
		return Entry{}, fmt.Errorf("write backup: %w", err)
	}
	if err := l.prune(ctx); err != nil {
		return Entry{}, err
	}
	return Entry{ID: name, Name: name, Created: now.UTC()}, nil
}

func (l *LocalTarget) List(ctx context.Context) ([]Entry, error) {
	items, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var entries []Entry
	for _, it := range items {
		name := it.Name()
		if it.IsDir() || !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
			continue
		}
		entries = append(entries, Entry{ID: name, Name: name, Created: timeFromName(name)})
	}
	sortNewestFirst(entries)
	return entries, nil
}

func (l *LocalTarget) Download(ctx context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, filepath.Base(id)))
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", id, err)
	}
	return data, nil
}

func (l *LocalTarget) prune(ctx context.Context) error {
	entries, err := l.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) <= l.keep {
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, e := range entries[l.keep:] {
		g.Go(func() error {
			return os.Remove(filepath.Join(l.dir, e.Name))
		})
	}
	return g.Wait()
}
