// Package stats keeps the history of finished online sessions in a bbolt
// file so lifetime online time survives restarts.
package stats

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/EgorLis/citybot/internal/session"
)

var bucketSessions = []byte("sessions")

// Record is one stored session.
type Record struct {
	ID            string
	Account       string
	Started       time.Time
	Ended         time.Time
	OnlineMinutes int
	Cause         string
}

// Totals summarises the stored history.
type Totals struct {
	Sessions      int
	OnlineMinutes int
	Causes        map[string]int
}

// Store implements session.Recorder.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates the history file.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("stats: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("stats: create bucket: %w", err)
	}
	return &Store{bolt: db}, nil
}

func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

func (s *Store) Path() string {
	return s.bolt.Path()
}

// RecordSession appends rec. Records are keyed by a bucket sequence so they
// iterate in insertion order.
func (s *Store) RecordSession(rec session.SessionRecord) error {
	data, err := encodeRecord(Record(rec))
	if err != nil {
		return fmt.Errorf("stats: encode session %s: %w", rec.ID, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqToKey(seq), data)
	})
}

// Totals sums all sessions of account; an empty account sums everything.
func (s *Store) Totals(account string) (Totals, error) {
	t := Totals{Causes: map[string]int{}}
	err := s.each(func(rec Record) error {
		if account != "" && rec.Account != account {
			return nil
		}
		t.Sessions++
		t.OnlineMinutes += rec.OnlineMinutes
		if rec.Cause != "" {
			t.Causes[rec.Cause]++
		}
		return nil
	})
	return t, err
}

// Recent returns up to n sessions, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	var out []Record
	if n <= 0 {
		return out, nil
	}
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSessions).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("stats: decode session %d: %w", keyToSeq(k), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *Store) each(fn func(Record) error) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("stats: decode session %d: %w", keyToSeq(k), err)
			}
			return fn(rec)
		})
	})
}

func encodeRecord(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec)
	return rec, err
}

func seqToKey(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func keyToSeq(k []byte) uint64 {
	if len(k) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(k)
}
