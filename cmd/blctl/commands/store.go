package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// codeBucket holds learned codes, keyed by user-assigned name.
const codeBucket = "codes"

// ErrCodeNotFound indicates the named code is not in the store.
var ErrCodeNotFound = errors.New("code not found")

// CodeStore persists captured IR/RF packets in a bbolt database so they
// can be replayed by name.
type CodeStore struct {
	db *bbolt.DB
}

// CodeRecord is one stored capture.
type CodeRecord struct {
	Name       string    `json:"name"`
	Modality   string    `json:"modality"`
	Data       []byte    `json:"data"`
	CapturedAt time.Time `json:"captured_at"`
}

// OpenCodeStore opens (or creates) the code database at path.
func OpenCodeStore(path string) (*CodeStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open code store %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(codeBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open code store %s: %w", path, err)
	}

	return &CodeStore{db: db}, nil
}

// Close closes the underlying database.
func (s *CodeStore) Close() error {
	return s.db.Close()
}

// Put stores a capture under name, replacing any previous entry.
func (s *CodeStore) Put(rec CodeRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(codeBucket)).Put([]byte(rec.Name), data)
	})
}

// Get retrieves a capture by name.
func (s *CodeStore) Get(name string) (CodeRecord, error) {
	var rec CodeRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(codeBucket)).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%q: %w", name, ErrCodeNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// List returns every stored capture in key order.
func (s *CodeStore) List() ([]CodeRecord, error) {
	var records []CodeRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(codeBucket)).ForEach(func(_, v []byte) error {
			var rec CodeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// Delete removes a capture by name.
func (s *CodeStore) Delete(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(codeBucket)).Delete([]byte(name))
	})
}
