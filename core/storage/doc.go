// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface so the snapshot
// feature can be tested against core/storage/mocks. Both AWS S3 and self-hosted
// MinIO endpoints work.
//
// # Operations
//
//   - BucketExists / MakeBucket: used by EnsureBucket before the first upload.
//   - PutObject: writes an inventory snapshot.
//   - GetObject: reads a snapshot back.
//   - ListObjects: lists snapshots under the configured prefix.
//   - RemoveObject: prunes snapshots beyond the retention count.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
