// Package fs stores blobs as files under a root directory, with a JSON sidecar
// per blob holding content type and metadata.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"yardops/internal/blob"
)

var _ blob.Store = (*Store)(nil)

const metaSuffix = ".meta"

// Store implements blob.Store on the local filesystem.
type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() blob.Driver { return blob.DriverFilesystem }

// Root returns the directory blobs are written under.
func (s *Store) Root() string { return s.root }

func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) paths(key string) (data, meta string, err error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	data = filepath.Join(s.root, filepath.FromSlash(k))
	return data, data + metaSuffix, nil
}

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	ModifiedAt  time.Time         `json:"modified_at"`
}

func (m sidecar) info(key string) blob.Info {
	return blob.Info{
		Key:          key,
		Size:         m.Size,
		ContentType:  m.ContentType,
		ETag:         m.ETag,
		Metadata:     blob.CloneMetadata(m.Metadata),
		LastModified: m.ModifiedAt,
	}
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return blob.Info{}, err
	}
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return blob.Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return blob.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return blob.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return blob.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return blob.Info{}, err
	}
	meta := sidecar{
		ContentType: opts.ContentType,
		Metadata:    blob.CloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		ModifiedAt:  time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return blob.Info{}, err
	}
	if err := os.WriteFile(metaPath, raw, 0o644); err != nil {
		return blob.Info{}, err
	}
	return meta.info(key), nil
}

func (s *Store) Get(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	info, err := s.Head(ctx, key)
	if err != nil {
		return blob.Info{}, nil, err
	}
	dataPath, _, _ := s.paths(key)
	f, err := os.Open(dataPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return blob.Info{}, nil, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}
	if err != nil {
		return blob.Info{}, nil, err
	}
	return info, f, nil
}

func (s *Store) Head(_ context.Context, key string) (blob.Info, error) {
	_, metaPath, err := s.paths(key)
	if err != nil {
		return blob.Info{}, err
	}
	meta, err := readSidecar(metaPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
	}
	if err != nil {
		return blob.Info{}, err
	}
	return meta.info(key), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]blob.Info, error) {
	var infos []blob.Info
	err := filepath.WalkDir(s.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		meta, err := readSidecar(path)
		if err != nil {
			return err
		}
		infos = append(infos, meta.info(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func readSidecar(path string) (sidecar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sidecar{}, err
	}
	var meta sidecar
	if err := json.Unmarshal(raw, &meta); err != nil {
		return sidecar{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return meta, nil
}
