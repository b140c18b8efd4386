// Package memory keeps blobs in process memory. Used by tests and ephemeral runs.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
	"yardops/internal/blob"
)

var _ blob.Store = (*Store)(nil)

type entry struct {
	info blob.Info
	data []byte
}

// Store implements blob.Store over a map.
type Store struct {
	mu   sync.RWMutex
	objs map[string]entry
}

// New returns an empty in-memory store.
func New() *Store { return &Store{objs: make(map[string]entry)} }

func (s *Store) Driver() blob.Driver { return blob.DriverMemory }

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return blob.Info{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return blob.Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrExists)
	}
	sum := md5.Sum(b)
	info := blob.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     blob.CloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = entry{info: info, data: b}
	return copyInfo(info), nil
}

func (s *Store) Get(_ context.Context, key string) (blob.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return blob.Info{}, nil, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}
	data := append([]byte(nil), obj.data...)
	return copyInfo(obj.info), io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Head(_ context.Context, key string) (blob.Info, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}
	return copyInfo(obj.info), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]blob.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]blob.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, copyInfo(v.info))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func copyInfo(in blob.Info) blob.Info {
	in.Metadata = blob.CloneMetadata(in.Metadata)
	return in
}
