// Package trace persists sample run records.
//
// Every sample run can be recorded: which sample ran, on which device, over
// how many elements, whether verification passed, and how long each kernel
// took. Records are stored in BadgerDB and listed by the CLI, giving the
// corpus a durable history of emulation runs.
//
// Usage:
//
//	store, err := trace.Open(cfg.TraceDir)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	store.Put(&trace.Record{
//		Sample:      "task-sequence",
//		Device:      dev.Name(),
//		Elements:    count,
//		Fingerprint: trace.Fingerprint(input),
//		Passed:      checker.AllPassed(),
//	})
package trace

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/rho180/offload/pkg/pool"
)

// Errors
var (
	ErrNotFound = errors.New("trace: record not found")
)

const keyPrefix = "run/"

// init registers value types appearing in Record for gob encoding.
func init() {
	gob.Register(time.Time{})
	gob.Register(map[string]time.Duration{})
}

// Record is one persisted sample run.
type Record struct {
	ID          string
	Sample      string
	Device      string
	Backend     string
	Elements    int
	Fingerprint string
	Passed      bool
	KernelTimes map[string]time.Duration
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Fingerprint returns a short BLAKE2b digest of the input data, so reruns
// over identical inputs are recognizable in the history.
func Fingerprint(data []float32) string {
	buf := pool.GetByteBuffer()
	defer func() { pool.PutByteBuffer(buf) }()

	for _, v := range data {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	sum := blake2b.Sum256(buf)
	return fmt.Sprintf("%x", sum[:8])
}

// Store is a BadgerDB-backed record store.
type Store struct {
	db *badger.DB
}

// Open creates or opens a trace store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening trace store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that keeps records only for the process
// lifetime. Used by tests and by runs with tracing directed nowhere.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory trace store: %w", err)
	}
	return &Store{db: db}, nil
}

// Put persists rec, assigning a fresh UUID when rec.ID is empty and stamping
// FinishedAt when unset.
func (s *Store) Put(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}

	data, err := serializeRecord(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+rec.ID), data)
	})
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = deserializeRecord(val)
			return err
		})
	})
	return rec, err
}

// List returns all records ordered by start time, oldest first.
func (s *Store) List() ([]*Record, error) {
	var records []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, err := deserializeRecord(val)
				if err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.Before(records[j].StartedAt)
	})
	return records, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// serializeRecord converts a Record to gob bytes. gob preserves Go types
// (time.Duration, time.Time) without lossy round-trips.
func serializeRecord(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return buf.Bytes(), nil
}

func deserializeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &rec, nil
}
