package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/verify"
)

var (
	ErrClosed   = errors.New("corpus: store is closed")
	ErrNotFound = errors.New("corpus: stimulus not found")
)

// Store persists mismatch reports keyed by the packed stimulus, so a corpus lists
// failures in key order and each failure is stored once.
type Store struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

var _ verify.FailureSink = (*Store)(nil)

// Open opens or creates a corpus directory.
func Open(dir string) (*Store, error) {
	return open(dir, &pebble.Options{})
}

// OpenMem opens a corpus that lives only as long as the store.
func OpenMem() (*Store, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

func open(dir string, opts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Record stores the mismatch, replacing any earlier report for the same stimulus.
func (s *Store) Record(m *verify.VerificationMismatch) error {
	return s.Put(m.Report())
}

func (s *Store) Put(r *verify.MismatchReport) error {
	if _, err := r.Stimulus(); err != nil {
		return err
	}
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode mismatch report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Set(r.Key, value, pebble.Sync)
}

func (s *Store) Get(key codec.Word) (*verify.MismatchReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	value, closer, err := s.db.Get(codec.KeyBytes(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decode(value)
}

func decode(value []byte) (*verify.MismatchReport, error) {
	var r verify.MismatchReport
	if err := json.Unmarshal(value, &r); err != nil {
		return nil, fmt.Errorf("corrupt mismatch report: %w", err)
	}
	return &r, nil
}

func (s *Store) Delete(key codec.Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Delete(codec.KeyBytes(key), pebble.Sync)
}

// Reports returns every stored report in key order.
func (s *Store) Reports() ([]*verify.MismatchReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create corpus iterator: %w", err)
	}
	var out []*verify.MismatchReport
	for valid := iter.First(); valid; valid = iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			_ = iter.Close()
			return nil, fmt.Errorf("failed to read corpus entry %x: %w", iter.Key(), err)
		}
		r, err := decode(value)
		if err != nil {
			_ = iter.Close()
			return nil, fmt.Errorf("corpus entry %x: %w", iter.Key(), err)
		}
		out = append(out, r)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stimuli returns the stored stimuli in key order, ready for replay.
func (s *Store) Stimuli() ([]codec.Stimulus, error) {
	reports, err := s.Reports()
	if err != nil {
		return nil, err
	}
	out := make([]codec.Stimulus, 0, len(reports))
	for _, r := range reports {
		st, err := r.Stimulus()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) Len() (int, error) {
	reports, err := s.Reports()
	return len(reports), err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
