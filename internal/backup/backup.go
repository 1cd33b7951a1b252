// Package backup moves whole-ledger JSON snapshots to and from a backup
// target. Backups are manual: nothing here runs on a schedule.
package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultKeep is how many snapshots a target retains before pruning.
const DefaultKeep = 10

const (
	namePrefix = "tally-"
	nameLayout = "20060102-150405"
	nameSuffix = ".json"
)

// ErrNoBackups is returned when a restore finds nothing to restore.
var ErrNoBackups = errors.New("no backups found")

type (
	// Entry describes one stored snapshot.
	Entry struct {
		ID      string
		Name    string
		Created time.Time
	}

	// Target stores and retrieves snapshots. Upload prunes old entries
	// down to the target's retention count.
	Target interface {
		Upload(ctx context.Context, snapshot []byte, now time.Time) (Entry, error)
		List(ctx context.Context) ([]Entry, error)
		Download(ctx context.Context, id string) ([]byte, error)
	}
)

// Latest downloads the most recent snapshot on the target.
func Latest(ctx context.Context, t Target) ([]byte, error) {
	entries, err := t.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoBackups
	}
	return t.Download(ctx, entries[0].ID)
}

func snapshotName(now time.Time) string {
	return namePrefix + now.UTC().Format(nameLayout) + nameSuffix
}

// timeFromName recovers the creation time encoded in a snapshot name.
// Names that do not follow the scheme sort oldest.
func timeFromName(name string) time.Time {
	s := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)
	ts, err := time.Parse(nameLayout, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Created.After(entries[j].Created)
	})
}
