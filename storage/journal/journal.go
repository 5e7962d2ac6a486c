package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"otcmarket/core/events"
	"otcmarket/core/types"
)

var bucketEvents = []byte("events")

// StoredEvent is a journaled event together with its append sequence.
type StoredEvent struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Journal persists the market event stream in a bbolt file. Sales carry no
// tombstones in the ledger, so the journal is the only durable history of
// settlements and aborts.
type Journal struct {
	db *bolt.DB
}

// Open creates or reopens the journal at the given path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: init bucket: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying database file.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append journals a single event payload and returns its sequence.
func (j *Journal) Append(evt *types.Event) (uint64, error) {
	if j == nil || j.db == nil {
		return 0, fmt.Errorf("journal: not open")
	}
	if evt == nil {
		return 0, fmt.Errorf("journal: nil event")
	}
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		next, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		stored := StoredEvent{Sequence: next, Type: evt.Type, Attributes: evt.Attributes}
		payload, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], next)
		if err := bucket.Put(key[:], payload); err != nil {
			return err
		}
		seq = next
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}
	return seq, nil
}

// Emit implements events.Emitter for events that expose a structured
// payload. Events without a payload and append failures are dropped: the
// journal must never veto a settlement that already committed.
func (j *Journal) Emit(evt events.Event) {
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	_, _ = j.Append(carrier.Event())
}

// List returns up to limit journaled events in append order, starting after
// the given sequence. A limit of zero returns everything.
func (j *Journal) List(after uint64, limit int) ([]StoredEvent, error) {
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("journal: not open")
	}
	var out []StoredEvent
	err := j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketEvents).Cursor()
		var start [8]byte
		binary.BigEndian.PutUint64(start[:], after+1)
		for key, value := cursor.Seek(start[:]); key != nil; key, value = cursor.Next() {
			var stored StoredEvent
			if err := json.Unmarshal(value, &stored); err != nil {
				return err
			}
			out = append(out, stored)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return out, nil
}
