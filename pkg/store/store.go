/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store.go
Description: Persistent session store on BadgerDB. Keeps the latest knowledgebase,
observation table and statistics snapshot of each session, every conjecture by round
and a small metadata record, so interrupted sessions can resume from what the oracle
already answered.
*/

package store

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/table"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a session or snapshot does not exist
var ErrNotFound = errors.New("not found")

const (
	prefixKnowledge  = "kb/"
	prefixConjecture = "conj/"
	prefixMeta       = "meta/"
	prefixTable      = "table/"
	prefixStats      = "stats/"
)

// Config holds configuration for the store
type Config struct {
	Path       string         // database directory, ignored when InMemory
	InMemory   bool           // no disk persistence, for tests
	SyncWrites bool           // fsync every write
	Logger     *logrus.Logger // badger's internal logging, nil disables it
}

// DefaultConfig returns durable settings for a database at path
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns settings for an in-memory database
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// SessionMeta describes a stored session
type SessionMeta struct {
	ID        string    `json:"id"`
	Rounds    int       `json:"rounds"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists learning sessions
type Store struct {
	db *badger.DB
}

// Open creates and opens a store with the given configuration
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func checkID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

func conjectureKey(id string, round int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", prefixConjecture, id, round))
}

// touch updates the session metadata inside txn
func touch(txn *badger.Txn, id string, round int) error {
	key := []byte(prefixMeta + id)
	now := time.Now().UTC()
	meta := SessionMeta{ID: id, CreatedAt: now}

	item, err := txn.Get(key)
	switch {
	case err == nil:
		if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &meta) }); err != nil {
			return fmt.Errorf("decode session meta: %w", err)
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return err
	}

	meta.UpdatedAt = now
	if round > meta.Rounds {
		meta.Rounds = round
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// SaveKnowledgebase stores the latest knowledgebase of a session
func (s *Store) SaveKnowledgebase(id string, kb *knowledgebase.Knowledgebase) error {
	if err := checkID(id); err != nil {
		return err
	}
	data, err := kb.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode knowledgebase: %w", err)
	}
	return s.put(id, prefixKnowledge, data)
}

// LoadKnowledgebase restores the latest knowledgebase of a session
func (s *Store) LoadKnowledgebase(id string) (*knowledgebase.Knowledgebase, error) {
	data, err := s.get(id, prefixKnowledge, "knowledgebase")
	if err != nil {
		return nil, err
	}
	return knowledgebase.Unmarshal(data)
}

// put stores one snapshot value and touches the session metadata
func (s *Store) put(id, prefix string, data []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(prefix+id), data); err != nil {
			return err
		}
		return touch(txn, id, 0)
	})
}

// get loads one snapshot value
func (s *Store) get(id, prefix, what string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefix + id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s of session %s", ErrNotFound, what, id)
	}
	return data, err
}

// SaveTable stores the latest observation table of a session
func (s *Store) SaveTable(id string, t *table.Table) error {
	data, err := t.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode observation table: %w", err)
	}
	return s.put(id, prefixTable, data)
}

// LoadTable returns the stored table snapshot of a session, to be restored over
// the session knowledgebase with table.Restore
func (s *Store) LoadTable(id string) ([]byte, error) {
	return s.get(id, prefixTable, "observation table")
}

// SaveStats stores the session statistics
func (s *Store) SaveStats(id string, stats encoding.BinaryMarshaler) error {
	data, err := stats.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	return s.put(id, prefixStats, data)
}

// LoadStats decodes the stored session statistics into stats
func (s *Store) LoadStats(id string, stats encoding.BinaryUnmarshaler) error {
	data, err := s.get(id, prefixStats, "statistics")
	if err != nil {
		return err
	}
	return stats.UnmarshalBinary(data)
}

// SaveConjecture stores the conjecture of one round
func (s *Store) SaveConjecture(id string, round int, c *automaton.Conjecture) error {
	if err := checkID(id); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode conjecture: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(conjectureKey(id, round), data); err != nil {
			return err
		}
		return touch(txn, id, round)
	})
}

// LoadConjecture returns the conjecture of one round
func (s *Store) LoadConjecture(id string, round int) (*automaton.Conjecture, error) {
	var c automaton.Conjecture
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conjectureKey(id, round))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &c) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: conjecture %d of session %s", ErrNotFound, round, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LatestConjecture returns the conjecture with the highest round
func (s *Store) LatestConjecture(id string) (*automaton.Conjecture, int, error) {
	meta, err := s.Session(id)
	if err != nil {
		return nil, 0, err
	}
	if meta.Rounds == 0 {
		return nil, 0, fmt.Errorf("%w: no conjecture for session %s", ErrNotFound, id)
	}
	c, err := s.LoadConjecture(id, meta.Rounds)
	return c, meta.Rounds, err
}

// Session returns the metadata of one session
func (s *Store) Session(id string) (SessionMeta, error) {
	var meta SessionMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixMeta + id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &meta) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return meta, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return meta, err
}

// ListSessions returns every stored session in key order
func (s *Store) ListSessions() ([]SessionMeta, error) {
	var out []SessionMeta
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixMeta)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var meta SessionMeta
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &meta) }); err != nil {
				return fmt.Errorf("decode session meta: %w", err)
			}
			out = append(out, meta)
		}
		return nil
	})
	return out, err
}

// DeleteSession removes everything stored for a session
func (s *Store) DeleteSession(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte
		for _, prefix := range []string{prefixKnowledge, prefixTable, prefixStats, prefixMeta} {
			keys = append(keys, []byte(prefix+id))
		}

		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		prefix := []byte(prefixConjecture + id + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
