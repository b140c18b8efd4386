package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"yardops/internal/blob"
	"yardops/internal/core"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: blob.DriverMemory})
	if err != nil || mem.Driver() != blob.DriverMemory {
		t.Fatalf("memory: %v", err)
	}
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || fsStore.Driver() != blob.DriverFilesystem {
		t.Fatalf("fs default: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := Open(ctx, Config{Driver: blob.DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestExportListLoad(t *testing.T) {
	ctx := context.Background()
	store, _ := Open(ctx, Config{Driver: blob.DriverMemory})
	a := New(store, 0, nil)
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	report := core.Report{
		GeneratedAt:     at,
		Filter:          core.ReportFilter{Driver: "Thabo"},
		TotalContainers: 3,
		Logistics:       core.LogisticsKPIs{OpenBookings: 2, TotalQtyRequired: 5},
	}
	info, err := a.Export(ctx, report)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(info.Key, "reports/2026-05-04/") || !strings.HasSuffix(info.Key, ".json") {
		t.Fatalf("unexpected key %s", info.Key)
	}
	if info.ContentType != "application/json" || info.Metadata["driver"] != "Thabo" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.URL != "" {
		t.Fatalf("memory store cannot presign, got %s", info.URL)
	}
	if _, err := a.Export(ctx, report); err != nil {
		t.Fatalf("second export: %v", err)
	}
	list, err := a.List(ctx, "2026-05-04")
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if _, err := a.List(ctx, "yesterday"); err == nil {
		t.Fatalf("expected invalid day error")
	}
	loaded, err := a.Load(ctx, info.Key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.TotalContainers != 3 || loaded.Logistics.TotalQtyRequired != 5 || !loaded.GeneratedAt.Equal(at) {
		t.Fatalf("unexpected report %+v", loaded)
	}
	if _, err := a.Load(ctx, "reports/missing.json"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
