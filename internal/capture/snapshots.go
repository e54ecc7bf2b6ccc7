package capture

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
)

// SnapshotLog is the append-only list of page captures taken during a run.
type SnapshotLog struct {
	entries []schemas.Snapshot
	mu      sync.RWMutex
	log     *zap.Logger
	now     func() time.Time
}

// NewSnapshotLog creates an empty snapshot log.
func NewSnapshotLog(logger *zap.Logger) *SnapshotLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotLog{
		log: logger.Named("snapshots"),
		now: time.Now,
	}
}

// Append records a page source and returns the stored entry. Sequence numbers
// start at zero and follow append order.
func (l *SnapshotLog) Append(source, path, loopValue string) schemas.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := schemas.Snapshot{
		Sequence:  len(l.entries),
		Path:      path,
		LoopValue: loopValue,
		TakenAt:   l.now().UTC(),
		Source:    source,
	}
	l.entries = append(l.entries, snap)
	l.log.Debug("Snapshot appended",
		zap.Int("sequence", snap.Sequence),
		zap.String("path", path),
		zap.Int("bytes", len(source)))
	return snap
}

// Entries returns a copy of the log in append order.
func (l *SnapshotLog) Entries() []schemas.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]schemas.Snapshot, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of snapshots taken so far.
func (l *SnapshotLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Result assembles the run result from a store and a snapshot log.
func Result(store *Store, snaps *SnapshotLog) *schemas.RunResult {
	res := &schemas.RunResult{
		Captures:  []schemas.Capture{},
		Snapshots: []schemas.Snapshot{},
	}
	if store != nil {
		res.Captures = store.Captures()
	}
	if snaps != nil {
		res.Snapshots = snaps.Entries()
	}
	return res
}
