// Package persist stores engine snapshots in BadgerDB. Each save writes the
// full serialized state under a fresh version number and flips the current
// pointer in the same transaction, so a crash mid-save can never corrupt the
// previously good version.
package persist

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/graphein/graphein/pkg/graph"
	"github.com/graphein/graphein/pkg/index"
	"github.com/graphein/graphein/pkg/types"
)

// ErrNoSnapshot reports a load from a store that has never been saved to.
var ErrNoSnapshot = errors.New("no persisted snapshot")

const (
	currentKey      = "meta:current"
	snapKeyFormat   = "snap:%020d:%s"
	sectionIndex    = "index"
	sectionGraph    = "graph"
	sectionCorpus   = "corpus"
	keptGenerations = 2
)

// Snapshot bundles every serializable piece of engine state.
type Snapshot struct {
	Index *index.State `json:"index"`
	Graph *graph.State `json:"graph"`
	// Corpus carries documents and chunks so ingestion idempotency and
	// chunk text survive a restart.
	Documents []*types.Document `json:"documents"`
	Chunks    []*types.Chunk    `json:"chunks"`
}

// Store is a Badger-backed snapshot store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog to the badger.Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.logger.Error(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.logger.Warn(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.logger.Debug(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.logger.Debug(fmt.Sprintf(msg, items...)) }

// Open opens (or creates) a snapshot store at path. An empty path with
// inMemory set opens a throwaway in-memory store for tests.
func Open(path string, inMemory bool) (*Store, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLogger{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &Store{db: db, logger: slog.Default()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes a new snapshot generation and returns its version. The blob
// writes and the current-pointer flip commit atomically; older generations
// beyond a small retention window are pruned afterwards, best-effort.
func (s *Store) Save(snap *Snapshot) (uint64, error) {
	sections := map[string]any{
		sectionIndex: snap.Index,
		sectionGraph: snap.Graph,
		sectionCorpus: struct {
			Documents []*types.Document `json:"documents"`
			Chunks    []*types.Chunk    `json:"chunks"`
		}{snap.Documents, snap.Chunks},
	}

	var version uint64
	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := readCurrent(txn)
		if err != nil && !errors.Is(err, ErrNoSnapshot) {
			return err
		}
		version = current + 1

		for name, payload := range sections {
			blob, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("encode %s section: %w", name, err)
			}
			if err := txn.Set(sectionKey(version, name), blob); err != nil {
				return err
			}
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, version)
		return txn.Set([]byte(currentKey), buf)
	})
	if err != nil {
		return 0, err
	}

	s.prune(version)
	return version, nil
}

// Load reads the current snapshot generation.
func (s *Store) Load() (*Snapshot, uint64, error) {
	var snap Snapshot
	var version uint64

	err := s.db.View(func(txn *badger.Txn) error {
		current, err := readCurrent(txn)
		if err != nil {
			return err
		}
		version = current

		corpus := struct {
			Documents []*types.Document `json:"documents"`
			Chunks    []*types.Chunk    `json:"chunks"`
		}{}
		if err := readSection(txn, version, sectionIndex, &snap.Index); err != nil {
			return err
		}
		if err := readSection(txn, version, sectionGraph, &snap.Graph); err != nil {
			return err
		}
		if err := readSection(txn, version, sectionCorpus, &corpus); err != nil {
			return err
		}
		snap.Documents = corpus.Documents
		snap.Chunks = corpus.Chunks
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &snap, version, nil
}

// Version reports the current snapshot version, or ErrNoSnapshot.
func (s *Store) Version() (uint64, error) {
	var version uint64
	err := s.db.View(func(txn *badger.Txn) error {
		current, err := readCurrent(txn)
		if err != nil {
			return err
		}
		version = current
		return nil
	})
	return version, err
}

// prune drops snapshot generations older than the retention window. Failure
// only costs disk space, so it is logged and swallowed.
func (s *Store) prune(current uint64) {
	if current <= keptGenerations {
		return
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for v := uint64(1); v+keptGenerations <= current; v++ {
			for _, section := range []string{sectionIndex, sectionGraph, sectionCorpus} {
				if err := txn.Delete(sectionKey(v, section)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("pruning old snapshots failed", "current", current, "error", err)
	}
}

func sectionKey(version uint64, section string) []byte {
	return []byte(fmt.Sprintf(snapKeyFormat, version, section))
}

func readCurrent(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get([]byte(currentKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNoSnapshot
	}
	if err != nil {
		return 0, err
	}
	var version uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt current pointer: %d bytes", len(val))
		}
		version = binary.BigEndian.Uint64(val)
		return nil
	})
	return version, err
}

func readSection(txn *badger.Txn, version uint64, section string, out any) error {
	item, err := txn.Get(sectionKey(version, section))
	if err != nil {
		return fmt.Errorf("read %s section of snapshot %d: %w", section, version, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return fmt.Errorf("decode %s section: %w", section, err)
		}
		return nil
	})
}
