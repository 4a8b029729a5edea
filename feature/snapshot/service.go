package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"account-sync/core/reconcile"
	"account-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ErrInvalidName is returned for snapshot names that do not look like ours.
var ErrInvalidName = errors.New("invalid snapshot name")

// Snapshot is the pre-sync copy of both inventories. Records carry no
// protected fields.
type Snapshot struct {
	RunID   string             `json:"run_id"`
	Company string             `json:"company,omitempty"`
	TakenAt time.Time          `json:"taken_at"`
	Source  []reconcile.Record `json:"source"`
	Target  []reconcile.Record `json:"target"`
}

// Info describes a stored snapshot.
type Info struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Service reads and writes snapshots in object storage.
type Service struct {
	client    storage.Client
	bucket    string
	region    string
	prefix    string
	retention int
	logger    *zap.Logger
}

// NewService creates a snapshot service for the configured bucket and prefix.
func NewService(client storage.Client, cfg storage.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		retention: cfg.Retention,
		logger:    logger,
	}
}

// Name returns the object base name for snap. Names sort by capture time.
func Name(snap *Snapshot) string {
	return snap.TakenAt.UTC().Format("20060102T150405Z") + "-" + snap.RunID + ".json"
}

func (s *Service) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && strings.HasSuffix(name, ".json")
}

// Save uploads snap and prunes old snapshots when a retention is configured.
func (s *Service) Save(ctx context.Context, snap *Snapshot) (string, error) {
	if err := storage.EnsureBucket(ctx, s.client, s.bucket, s.region); err != nil {
		return "", err
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := Name(snap)
	_, err = s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", name, err)
	}

	s.logger.Info("Saved inventory snapshot",
		zap.String("bucket", s.bucket),
		zap.String("object", s.key(name)),
		zap.Int("source", len(snap.Source)),
		zap.Int("target", len(snap.Target)),
	)

	if s.retention > 0 {
		if _, err := s.Prune(ctx, s.retention); err != nil {
			s.logger.Warn("Failed to prune snapshots", zap.Error(err))
		}
	}
	return name, nil
}

// Load reads the snapshot stored under name.
func (s *Service) Load(ctx context.Context, name string) (*Snapshot, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot %s: %w", name, err)
	}
	defer func() { _ = obj.Close() }()

	var snap Snapshot
	if err := json.NewDecoder(obj).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return &snap, nil
}

// List returns the stored snapshots, oldest first.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	opts := minio.ListObjectsOptions{Recursive: true}
	if s.prefix != "" {
		opts.Prefix = s.prefix + "/"
	}

	var out []Info
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", obj.Err)
		}
		name := path.Base(obj.Key)
		if !validName(name) {
			continue
		}
		out = append(out, Info{Name: name, Size: obj.Size, LastModified: obj.LastModified})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Prune deletes the oldest snapshots so that at most keep remain.
func (s *Service) Prune(ctx context.Context, keep int) (int, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if keep < 0 || len(infos) <= keep {
		return 0, nil
	}

	removed := 0
	for _, info := range infos[:len(infos)-keep] {
		if err := s.client.RemoveObject(ctx, s.bucket, s.key(info.Name), minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("failed to remove snapshot %s: %w", info.Name, err)
		}
		removed++
	}

	s.logger.Info("Pruned snapshots", zap.Int("removed", removed), zap.Int("kept", keep))
	return removed, nil
}
