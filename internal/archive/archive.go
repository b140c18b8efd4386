// Package archive exports yard reports as JSON documents into blob storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"yardops/internal/blob"
	"yardops/internal/core"
	"yardops/internal/infra/blob/fs"
	"yardops/internal/infra/blob/memory"
	"yardops/internal/infra/blob/s3"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config selects the blob backend reports are written to.
type Config struct {
	Driver blob.Driver
	FSRoot string
	S3     s3.Config
	// URLExpiry bounds presigned download links. Zero means 15 minutes.
	URLExpiry time.Duration
}

// Open builds the configured blob store. An empty driver selects the filesystem.
func Open(ctx context.Context, cfg Config) (blob.Store, error) {
	switch cfg.Driver {
	case "", blob.DriverFilesystem:
		root := cfg.FSRoot
		if root == "" {
			root = "./data/reports"
		}
		return fs.New(root)
	case blob.DriverMemory:
		return memory.New(), nil
	case blob.DriverS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported blob driver: %s", cfg.Driver)
	}
}

// Archiver writes reports under reports/<yyyy-mm-dd>/<uuid>.json.
type Archiver struct {
	store  blob.Store
	expiry time.Duration
	log    *zap.Logger
}

// New returns an archiver over store.
func New(store blob.Store, expiry time.Duration, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{store: store, expiry: expiry, log: log}
}

// Store returns the backing blob store.
func (a *Archiver) Store() blob.Store { return a.store }

// Export stores report and returns its blob info. When the store can presign,
// Info.URL carries a time-limited download link.
func (a *Archiver) Export(ctx context.Context, report core.Report) (blob.Info, error) {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode report: %w", err)
	}
	at := report.GeneratedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	key := fmt.Sprintf("reports/%s/%s.json", at.Format("2006-01-02"), uuid.NewString())
	md := map[string]string{"generated-at": at.Format(time.RFC3339)}
	if report.Filter.Driver != "" {
		md["driver"] = report.Filter.Driver
	}
	info, err := a.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    md,
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store report: %w", err)
	}
	if p, ok := a.store.(blob.Presigner); ok {
		url, err := p.PresignGet(ctx, key, a.expiry)
		if err != nil {
			a.log.Warn("presign report", zap.String("key", key), zap.Error(err))
		} else {
			info.URL = url
		}
	}
	a.log.Info("report archived", zap.String("key", key), zap.Int64("bytes", info.Size),
		zap.String("driver", string(a.store.Driver())))
	return info, nil
}

// List returns archived reports, newest day first. An empty day lists all.
func (a *Archiver) List(ctx context.Context, day string) ([]blob.Info, error) {
	prefix := "reports/"
	if day = strings.TrimSpace(day); day != "" {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return nil, fmt.Errorf("invalid day %q: %w", day, err)
		}
		prefix += day + "/"
	}
	infos, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(infos)-1; i < j; i, j = i+1, j-1 {
		infos[i], infos[j] = infos[j], infos[i]
	}
	return infos, nil
}

// Load decodes one archived report.
func (a *Archiver) Load(ctx context.Context, key string) (core.Report, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return core.Report{}, err
	}
	defer rc.Close()
	var r core.Report
	if err := json.NewDecoder(rc).Decode(&r); err != nil {
		return core.Report{}, fmt.Errorf("decode report %s: %w", key, err)
	}
	return r, nil
}
