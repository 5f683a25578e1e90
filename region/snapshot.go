/*
Copyright 2026 The J2Cache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package region

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// headerLen is the size of the fixed record header:
// createdAt, accessedAt, timeToIdle, timeToLive as big endian uint64.
const headerLen = 32

// snapshot stores the entries of one region in a bbolt bucket named after
// the region. Each record is the fixed header followed by the JSON encoded
// value.
type snapshot struct {
	mu     sync.Mutex
	db     *bolt.DB
	bucket []byte
}

func openSnapshot(path, bucket string) (*snapshot, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return &snapshot{db: db, bucket: []byte(bucket)}, nil
}

// write replaces the content of the bucket with the given records.
func (s *snapshot) write(records map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(s.bucket)
		if err != nil {
			return err
		}
		for k, v := range records {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *snapshot) read(fn func(k, v []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(fn)
	})
}

func (s *snapshot) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Persist writes the live entries of the region to its snapshot, replacing
// the previous content. It returns an error if the region has no snapshot
// path configured.
func (r *Region[V]) Persist() error {
	if r.snapshot == nil {
		return &Error{Region: r.name, Reason: ErrSnapshot, Err: errors.New("no snapshot path configured")}
	}
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return ErrRegionDisposed
	}
	records, err := r.encodeLocked(time.Now())
	r.mu.Unlock()
	if err != nil {
		return &Error{Region: r.name, Reason: ErrSnapshot, Err: err}
	}
	if err := r.snapshot.write(records); err != nil {
		return &Error{Region: r.name, Reason: ErrSnapshot, Err: err}
	}
	return nil
}

// encodeLocked encodes the live entries of the region.
func (r *Region[V]) encodeLocked(now time.Time) (map[string][]byte, error) {
	records := make(map[string][]byte, len(r.index))
	for e := r.head.next; e != r.tail; e = e.next {
		if e.expired(now) {
			continue
		}
		data, err := encodeEntry(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key '%s': %w", e.key, err)
		}
		records[e.key] = data
	}
	return records, nil
}

// load reads the snapshot into the region. Entries that expired while the
// region was down are skipped, and at most maxEntries of the most recently
// accessed entries are kept. It must be called before the region is used.
func (r *Region[V]) load() (int, error) {
	var entries []*entry[V]
	err := r.snapshot.read(func(k, v []byte) error {
		e, err := decodeEntry[V](string(k), v)
		if err != nil {
			return fmt.Errorf("failed to decode key '%s': %w", string(k), err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return 0, err
	}

	now := time.Now()
	entries = slices.DeleteFunc(entries, func(e *entry[V]) bool {
		return e.expired(now)
	})
	slices.SortFunc(entries, func(a, b *entry[V]) int {
		return a.accessedAt.Compare(b.accessedAt)
	})
	if r.maxEntries > 0 && len(entries) > r.maxEntries {
		entries = entries[len(entries)-r.maxEntries:]
	}
	for _, e := range entries {
		r.index[e.key] = e
		r.pushBack(e)
	}
	recordItems(r.metrics, len(entries))
	return len(entries), nil
}

func encodeEntry[V any](e *entry[V]) ([]byte, error) {
	data, err := json.Marshal(e.value)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerLen+len(data))
	binary.BigEndian.PutUint64(buf[0:8], uint64(e.createdAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(e.accessedAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[16:24], uint64(e.timeToIdle))
	binary.BigEndian.PutUint64(buf[24:32], uint64(e.timeToLive))
	copy(buf[headerLen:], data)
	return buf, nil
}

func decodeEntry[V any](key string, buf []byte) (*entry[V], error) {
	if len(buf) < headerLen {
		return nil, fmt.Errorf("record too short: %d bytes", len(buf))
	}
	e := &entry[V]{
		key:        key,
		createdAt:  time.Unix(0, int64(binary.BigEndian.Uint64(buf[0:8]))),
		accessedAt: time.Unix(0, int64(binary.BigEndian.Uint64(buf[8:16]))),
		timeToIdle: time.Duration(binary.BigEndian.Uint64(buf[16:24])),
		timeToLive: time.Duration(binary.BigEndian.Uint64(buf[24:32])),
	}
	if err := json.Unmarshal(buf[headerLen:], &e.value); err != nil {
		return nil, err
	}
	return e, nil
}
