package alert

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

const journalBucket = "alerts"

// JournalSink appends every alert to a bbolt bucket keyed by sequence number.
type JournalSink struct {
	db *bbolt.DB
}

// OpenJournal opens or creates the journal file at path.
func OpenJournal(path string) (*JournalSink, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(journalBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &JournalSink{db: db}, nil
}

func (j *JournalSink) Notify(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(journalBucket))

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		return bucket.Put(sequenceKey(seq), data)
	})
}

// Recent returns up to limit alerts, newest first.
func (j *JournalSink) Recent(limit int) ([]Event, error) {
	events := []Event{}
	if limit <= 0 {
		return events, nil
	}

	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(journalBucket)).Cursor()

		for k, v := c.Last(); k != nil && len(events) < limit; k, v = c.Prev() {
			var event Event
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			events = append(events, event)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (j *JournalSink) Close() error {
	return j.db.Close()
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
