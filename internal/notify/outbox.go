package notify

import (
	"encoding/binary"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/zestcart/zestcart/pkg/common"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxSendAttempts = 5

var outboxBucket = []byte("outbox")

// Envelope is one queued email.
type Envelope struct {
	ID       int64     `json:"id,string"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Attempts int       `json:"attempts"`
	QueuedAt time.Time `json:"queued_at"`
}

// Outbox persists queued email in a local bolt file so pending
// notifications survive a restart. Delivery order follows the queue
// ids, which are time sorted.
type Outbox struct {
	db *bolt.DB
}

func OpenOutbox(path string) (*Outbox, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second * 3})
	if err != nil {
		return nil, errors.Wrap(err, "open outbox")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(outboxBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init outbox bucket")
	}
	return &Outbox{db: db}, nil
}

// Enqueue stores an email for delivery.
func (b *Outbox) Enqueue(to, subject, body string) error {
	env := Envelope{
		ID:       common.UUIDint64(),
		To:       to,
		Subject:  subject,
		Body:     body,
		QueuedAt: time.Now(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(outboxBucket).Put(itob(env.ID), data)
	})
}

// Pending returns up to limit queued envelopes, oldest first.
func (b *Outbox) Pending(limit int) ([]Envelope, error) {
	var envs []Envelope
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(outboxBucket).Cursor()
		for k, v := c.First(); k != nil && len(envs) < limit; k, v = c.Next() {
			var env Envelope
			if err := json.Unmarshal(v, &env); err != nil {
				continue
			}
			envs = append(envs, env)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}

// Ack removes a delivered envelope.
func (b *Outbox) Ack(id int64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(outboxBucket).Delete(itob(id))
	})
}

// Nack counts a failed attempt, the envelope is dropped once it has
// used up its attempts. Returns true when the envelope was dropped.
func (b *Outbox) Nack(id int64) (bool, error) {
	var dropped bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(outboxBucket)
		data := bucket.Get(itob(id))
		if data == nil {
			return nil
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			dropped = true
			return bucket.Delete(itob(id))
		}
		env.Attempts++
		if env.Attempts >= maxSendAttempts {
			dropped = true
			return bucket.Delete(itob(id))
		}
		next, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return bucket.Put(itob(id), next)
	})
	return dropped, err
}

// Size returns the number of queued envelopes.
func (b *Outbox) Size() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(outboxBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (b *Outbox) Close() error {
	return b.db.Close()
}

func itob(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}
