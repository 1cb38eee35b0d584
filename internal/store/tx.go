package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// ErrReadOnly is returned when writing inside View
var ErrReadOnly = errors.New("write in read-only transaction")

type hotUpdate struct {
	data    []byte
	deleted bool
}

// Tx is a scoped transaction handed to Perform and View.
// It must not be used after the callback returns.
type Tx struct {
	tx       *bolt.Tx
	readOnly bool
	pending  map[string]hotUpdate
}

// Get decodes the record at bucket/key into dest, seeing this transaction's own writes
func (t *Tx) Get(bucket []byte, key string, dest any) (bool, error) {
	b := t.tx.Bucket(bucket)
	if b == nil {
		return false, nil
	}
	v := b.Get([]byte(key))
	if v == nil {
		return false, nil
	}
	if err := json.Unmarshal(v, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", hotKey(bucket, key), err)
	}
	return true, nil
}

// Put replaces the record at bucket/key
func (t *Tx) Put(bucket []byte, key string, value any) error {
	if t.readOnly {
		return ErrReadOnly
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", hotKey(bucket, key), err)
	}
	b := t.tx.Bucket(bucket)
	if b == nil {
		return fmt.Errorf("bucket %q does not exist", bucket)
	}
	if err := b.Put([]byte(key), data); err != nil {
		return err
	}
	t.pending[hotKey(bucket, key)] = hotUpdate{data: data}
	return nil
}

// Delete removes the record at bucket/key
func (t *Tx) Delete(bucket []byte, key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	b := t.tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	if err := b.Delete([]byte(key)); err != nil {
		return err
	}
	t.pending[hotKey(bucket, key)] = hotUpdate{deleted: true}
	return nil
}

// ForEach calls fn for every record in bucket. fn must not modify the bucket;
// collect keys and delete after iteration instead.
func (t *Tx) ForEach(bucket []byte, fn func(key string, raw []byte) error) error {
	b := t.tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		return fn(string(k), v)
	})
}

// ForEachPrefix calls fn for every record in bucket whose key starts with prefix
func (t *Tx) ForEachPrefix(bucket []byte, prefix string, fn func(key string, raw []byte) error) error {
	b := t.tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	c := b.Cursor()
	p := []byte(prefix)
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		if err := fn(string(k), v); err != nil {
			return err
		}
	}
	return nil
}
