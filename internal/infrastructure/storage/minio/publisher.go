package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// Artifact is a local file to upload.
type Artifact struct {
	Path string
	Kind string
}

// PublishedObject describes one uploaded artifact.
type PublishedObject struct {
	Kind      string
	ObjectKey string
	ETag      string
	Size      int64
	URL       string
}

// Publisher uploads run artifacts under <prefix>/<run id>/.
type Publisher struct {
	client *MinIOClient
	logger logging.Logger
}

func NewPublisher(client *MinIOClient, log logging.Logger) *Publisher {
	return &Publisher{client: client, logger: log.Named("publisher")}
}

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
	".png":  "image/png",
	".prom": "text/plain; version=0.0.4",
}

func contentType(p string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(p))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ObjectKey joins prefix, run id and the file's base name.
func (p *Publisher) ObjectKey(runID, localPath string) string {
	return path.Join(p.client.config.Prefix, runID, filepath.Base(localPath))
}

// Publish uploads every artifact in order and stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, runID string, artifacts []Artifact) ([]PublishedObject, error) {
	api, err := p.client.api()
	if err != nil {
		return nil, err
	}
	bucket := p.client.Bucket()
	out := make([]PublishedObject, 0, len(artifacts))
	for _, a := range artifacts {
		obj, err := p.upload(ctx, api, bucket, runID, a)
		if err != nil {
			return out, err
		}
		out = append(out, obj)
	}
	p.logger.Info("artifacts published",
		logging.String("bucket", bucket),
		logging.String("run_id", runID),
		logging.Int("count", len(out)))
	return out, nil
}

func (p *Publisher) upload(ctx context.Context, api MinIOAPI, bucket, runID string, a Artifact) (PublishedObject, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return PublishedObject{}, errors.Wrap(err, errors.ErrCodeIO, "open artifact").WithDetail(a.Path)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return PublishedObject{}, errors.Wrap(err, errors.ErrCodeIO, "stat artifact").WithDetail(a.Path)
	}

	key := p.ObjectKey(runID, a.Path)
	info, err := api.PutObject(ctx, bucket, key, f, st.Size(), minio.PutObjectOptions{
		ContentType:  contentType(a.Path),
		UserMetadata: map[string]string{"run-id": runID, "kind": a.Kind},
	})
	if err != nil {
		return PublishedObject{}, errors.Wrap(err, errors.CodePublishFailed, "upload failed").WithDetail(key)
	}

	obj := PublishedObject{Kind: a.Kind, ObjectKey: key, ETag: info.ETag, Size: info.Size}
	u, err := api.PresignedGetObject(ctx, bucket, key, p.client.config.PresignExpiry, nil)
	if err != nil {
		p.logger.Warn("presign failed", logging.String("key", key), logging.Err(err))
	} else {
		obj.URL = u.String()
	}
	p.logger.Debug("artifact uploaded", logging.String("key", key), logging.Int64("size", info.Size))
	return obj, nil
}

// PresignExpiry reports how long published URLs stay valid.
func (p *Publisher) PresignExpiry() time.Duration { return p.client.config.PresignExpiry }
