package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/viewsync/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRuns  = []byte("runs")
	bucketViews = []byte("views")
)

// keyTimeLayout sorts lexically in time order
const keyTimeLayout = "20060102T150405.000000000Z"

// defaultLockTimeout bounds the wait for another process holding the file
const defaultLockTimeout = 5 * time.Second

// ErrNotFound is returned when a run is not in the journal
var ErrNotFound = errors.New("run not found")

// ViewRecord is the last repair known for a view
type ViewRecord struct {
	View       string      `json:"view" yaml:"view"`
	RunID      string      `json:"run_id" yaml:"run_id"`
	Days       []types.Day `json:"days" yaml:"days"`
	RepairedAt time.Time   `json:"repaired_at" yaml:"repaired_at"`
}

// Journal keeps run summaries in a BoltDB file
type Journal struct {
	db   *bolt.DB
	keep int
}

// Open opens or creates the journal at path. keep bounds how many runs are
// retained; zero keeps everything.
func Open(path string, keep int) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: defaultLockTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketViews} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db, keep: keep}, nil
}

// Close closes the journal
func (j *Journal) Close() error {
	return j.db.Close()
}

func runKey(s *types.ReconciliationSummary) []byte {
	return []byte(s.StartedAt.UTC().Format(keyTimeLayout) + "/" + s.RunID)
}

// Record stores a run summary, updates the per-view repair records and
// prunes runs beyond the retention limit
func (j *Journal) Record(s *types.ReconciliationSummary) error {
	if s.RunID == "" {
		return errors.New("summary has no run id")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put(runKey(s), data); err != nil {
			return err
		}

		views := tx.Bucket(bucketViews)
		for _, entry := range s.Entries {
			rec, err := json.Marshal(ViewRecord{
				View:       entry.View,
				RunID:      s.RunID,
				Days:       entry.Days,
				RepairedAt: s.FinishedAt.UTC(),
			})
			if err != nil {
				return err
			}
			if err := views.Put([]byte(entry.View), rec); err != nil {
				return err
			}
		}

		return j.prune(tx)
	})
}

// prune drops the oldest runs beyond the retention limit
func (j *Journal) prune(tx *bolt.Tx) error {
	if j.keep <= 0 {
		return nil
	}

	b := tx.Bucket(bucketRuns)
	c := b.Cursor()

	// walk newest to oldest and collect everything past the limit
	var stale [][]byte
	seen := 0
	for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
		seen++
		if seen > j.keep {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (j *Journal) List(limit int) ([]*types.ReconciliationSummary, error) {
	var runs []*types.ReconciliationSummary
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var s types.ReconciliationSummary
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("corrupt run %s: %w", k, err)
			}
			runs = append(runs, &s)
		}
		return nil
	})
	return runs, err
}

// Last returns the most recent run
func (j *Journal) Last() (*types.ReconciliationSummary, error) {
	runs, err := j.List(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return runs[0], nil
}

// Get returns the run with the given id
func (j *Journal) Get(runID string) (*types.ReconciliationSummary, error) {
	var run *types.ReconciliationSummary
	suffix := []byte("/" + runID)

	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			if !bytes.HasSuffix(k, suffix) {
				return nil
			}
			var s types.ReconciliationSummary
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			run = &s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, nil
}

// Views returns the last recorded repair of every view, ordered by view name
func (j *Journal) Views() ([]ViewRecord, error) {
	var records []ViewRecord
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketViews).ForEach(func(k, v []byte) error {
			var rec ViewRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}
