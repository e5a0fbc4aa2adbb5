package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/skipgrid/blobstore"
	"github.com/hupe1980/skipgrid/model"
)

const (
	// MarkerName is the completion-marker blob written after the records
	// blob. Resume only considers snapshots that carry it.
	MarkerName = "_SUCCESS"

	recordsName     = "records.bin"
	manifestVersion = 1
)

var (
	// ErrNoCheckpoint is returned by Load when the snapshot is missing
	// or incomplete.
	ErrNoCheckpoint = errors.New("checkpoint: no complete checkpoint")
	// ErrChecksumMismatch is returned when the records blob does not
	// match the checksum recorded in the marker.
	ErrChecksumMismatch = errors.New("checkpoint: checksum mismatch")
	// ErrDuplicateRecord is returned when a snapshot contains the same
	// (side, id) twice.
	ErrDuplicateRecord = errors.New("checkpoint: duplicate record")
)

// manifest is the JSON payload of a completion marker.
type manifest struct {
	Version  int    `json:"version"`
	Step     string `json:"step"`
	Records  uint64 `json:"records"`
	Checksum uint32 `json:"checksum"`
}

// Manager reads and writes checkpoints in a blob store.
type Manager struct {
	store  blobstore.BlobStore
	comp   Compression
	logger *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCompression sets the codec for newly written snapshots. Existing
// snapshots declare their codec in the file header and load regardless.
func WithCompression(c Compression) ManagerOption {
	return func(m *Manager) { m.comp = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a checkpoint manager on top of store.
func NewManager(store blobstore.BlobStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		comp:   CompressionZstd,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func recordsKey(key model.StepKey) string { return key.String() + "/" + recordsName }
func markerKey(key model.StepKey) string  { return key.String() + "/" + MarkerName }

// Save writes a snapshot for the given step. The records blob is written
// first; the marker commits it. A crash between the two leaves an
// incomplete snapshot that ResolveLatest ignores.
func (m *Manager) Save(ctx context.Context, key model.StepKey, records []model.ItemRecord) error {
	wb, err := m.store.Create(ctx, recordsKey(key))
	if err != nil {
		return fmt.Errorf("create records blob: %w", err)
	}

	checksum, err := WriteRecords(wb, records, m.comp)
	if err != nil {
		wb.Close()
		return fmt.Errorf("encode records: %w", err)
	}
	if err := wb.Close(); err != nil {
		return fmt.Errorf("close records blob: %w", err)
	}

	data, err := json.Marshal(manifest{
		Version:  manifestVersion,
		Step:     key.String(),
		Records:  uint64(len(records)),
		Checksum: checksum,
	})
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := m.store.Put(ctx, markerKey(key), data); err != nil {
		return fmt.Errorf("commit marker: %w", err)
	}

	m.logger.Info("checkpoint committed",
		slog.String("step", key.String()),
		slog.Int("records", len(records)),
		slog.String("compression", m.comp.String()),
	)
	return nil
}

// ResolveLatest returns the newest step with a well-formed completion
// marker. Keys that do not parse as "{epoch}_{iteration}" and markers
// that do not parse as manifests are skipped, not errors; foreign blobs
// may share the store.
func (m *Manager) ResolveLatest(ctx context.Context) (model.StepKey, bool, error) {
	keys, err := m.store.List(ctx, "")
	if err != nil {
		return model.StepKey{}, false, fmt.Errorf("list checkpoints: %w", err)
	}

	var (
		latest model.StepKey
		found  bool
	)
	for _, k := range keys {
		dir, file, ok := strings.Cut(k, "/")
		if !ok || file != MarkerName {
			continue
		}
		step, ok := model.ParseStepKey(dir)
		if !ok {
			continue
		}
		if _, err := m.readManifest(ctx, step); err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				continue
			}
			if errors.Is(err, errMalformedManifest) {
				m.logger.Warn("skipping malformed checkpoint marker",
					slog.String("key", k),
					slog.Any("error", err),
				)
				continue
			}
			return model.StepKey{}, false, err
		}
		if !found || latest.Less(step) {
			latest = step
			found = true
		}
	}
	return latest, found, nil
}

var errMalformedManifest = errors.New("checkpoint: malformed manifest")

func (m *Manager) readManifest(ctx context.Context, key model.StepKey) (manifest, error) {
	data, err := blobstore.ReadAll(ctx, m.store, markerKey(key))
	if err != nil {
		return manifest{}, err
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return manifest{}, fmt.Errorf("%w: %v", errMalformedManifest, err)
	}
	if man.Step != key.String() {
		return manifest{}, fmt.Errorf("%w: step %q does not match key", errMalformedManifest, man.Step)
	}
	return man, nil
}

// Load reads the snapshot for the given step, verifying the marker
// checksum and rejecting duplicate (side, id) records.
func (m *Manager) Load(ctx context.Context, key model.StepKey) ([]model.ItemRecord, error) {
	man, err := m.readManifest(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: step %s", ErrNoCheckpoint, key)
		}
		return nil, err
	}

	data, err := blobstore.ReadAll(ctx, m.store, recordsKey(key))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: step %s has marker but no records", ErrNoCheckpoint, key)
		}
		return nil, fmt.Errorf("read records blob: %w", err)
	}

	records, checksum, err := ReadRecords(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if checksum != man.Checksum {
		return nil, fmt.Errorf("%w: step %s: got 0x%08x, want 0x%08x",
			ErrChecksumMismatch, key, checksum, man.Checksum)
	}
	if uint64(len(records)) != man.Records {
		return nil, fmt.Errorf("%w: step %s: got %d records, want %d",
			ErrChecksumMismatch, key, len(records), man.Records)
	}

	var left, right roaring64.Bitmap
	for _, rec := range records {
		seen := &left
		if rec.Side == model.SideRight {
			seen = &right
		}
		if !seen.CheckedAdd(uint64(rec.ID)) {
			return nil, fmt.Errorf("%w: %s/%d", ErrDuplicateRecord, rec.Side, rec.ID)
		}
	}

	m.logger.Info("checkpoint loaded",
		slog.String("step", key.String()),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// Remove deletes a snapshot. The marker goes first so a crash mid-remove
// never leaves a committed marker pointing at missing data.
func (m *Manager) Remove(ctx context.Context, key model.StepKey) error {
	if err := m.store.Delete(ctx, markerKey(key)); err != nil {
		return fmt.Errorf("delete marker: %w", err)
	}
	if err := m.store.Delete(ctx, recordsKey(key)); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}
