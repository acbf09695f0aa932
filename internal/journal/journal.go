// Package journal keeps a history of every download attempt, so repeated failures of the same file are visible
// across runs.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/alanbriolat/lesson-archiver/catalog"
)

var Buckets = struct {
	Metadata []byte
	Attempts []byte
}{
	Metadata: []byte("__metadata__"),
	Attempts: []byte("attempts"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

type Outcome string

const (
	Downloaded  Outcome = "downloaded"
	Failed      Outcome = "failed"
	ProbeFailed Outcome = "probe-failed"
	Cleaned     Outcome = "cleaned"
)

// Attempt is one operation on one file of one lesson.
type Attempt struct {
	RunID   string            `json:"runId"`
	Course  string            `json:"course"`
	Lesson  string            `json:"lesson"`
	Kind    catalog.MediaKind `json:"kind"`
	Outcome Outcome           `json:"outcome"`
	Error   string            `json:"error,omitempty"`
	Bytes   int64             `json:"bytes,omitempty"`
	Elapsed time.Duration     `json:"elapsed,omitempty"`
	At      time.Time         `json:"at"`
}

type Journal interface {
	Record(attempt Attempt) error
	// Failures counts failed attempts on an item since it was last downloaded or cleaned.
	Failures(course string, lesson string, kind catalog.MediaKind) (int, error)
	// List returns all attempts on an item, oldest first.
	List(course string, lesson string, kind catalog.MediaKind) ([]Attempt, error)
	Close() error
}

func NewRunID() string {
	return uuid.NewString()
}

func itemKey(course string, lesson string, kind catalog.MediaKind) []byte {
	return []byte(course + "/" + lesson + "/" + string(kind))
}

type database struct {
	*bbolt.DB
}

// Open opens (creating if necessary) a journal database file.
func Open(path string) (_ Journal, err error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Attempts); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes != nil {
			if err = json.Unmarshal(versionBytes, &version); err != nil {
				return err
			}
		}
		if version > currentVersion {
			return fmt.Errorf("journal version %d is newer than supported version %d", version, currentVersion)
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &database{db}, nil
}

func (d *database) Record(attempt Attempt) error {
	if attempt.At.IsZero() {
		attempt.At = time.Now()
	}
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	return d.Update(func(tx *bbolt.Tx) error {
		item, err := tx.Bucket(Buckets.Attempts).CreateBucketIfNotExists(itemKey(attempt.Course, attempt.Lesson, attempt.Kind))
		if err != nil {
			return err
		}
		seq, err := item.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return item.Put(key, data)
	})
}

func (d *database) List(course string, lesson string, kind catalog.MediaKind) (attempts []Attempt, err error) {
	err = d.View(func(tx *bbolt.Tx) error {
		item := tx.Bucket(Buckets.Attempts).Bucket(itemKey(course, lesson, kind))
		if item == nil {
			return nil
		}
		return item.ForEach(func(k, v []byte) error {
			var attempt Attempt
			if err := json.Unmarshal(v, &attempt); err != nil {
				return err
			}
			attempts = append(attempts, attempt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (d *database) Failures(course string, lesson string, kind catalog.MediaKind) (int, error) {
	attempts, err := d.List(course, lesson, kind)
	if err != nil {
		return 0, err
	}
	failures := 0
	for _, attempt := range attempts {
		switch attempt.Outcome {
		case Failed, ProbeFailed:
			failures++
		case Downloaded, Cleaned:
			failures = 0
		}
	}
	return failures, nil
}

// NilJournal records nothing.
type NilJournal struct{}

func (NilJournal) Record(Attempt) error { return nil }

func (NilJournal) Failures(string, string, catalog.MediaKind) (int, error) { return 0, nil }

func (NilJournal) List(string, string, catalog.MediaKind) ([]Attempt, error) { return nil, nil }

func (NilJournal) Close() error { return nil }
