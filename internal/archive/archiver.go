package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

const contentTypeJSON = "application/json"

// ObjectPutter is the subset of the S3 API the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver preserves the rows of an upload before normalization and the
// annotated executions after processing. Objects live under
// history/{userId}/ so per-user data stays partitioned.
type Archiver struct {
	api    ObjectPutter
	bucket string
	logger *zap.Logger
	now    func() time.Time
}

// NewArchiver creates an Archiver writing to the client's bucket.
func NewArchiver(client *Client, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		api:    client.S3(),
		bucket: client.Bucket(),
		logger: logger,
		now:    time.Now,
	}
}

// ArchiveOriginal stores the raw rows as uploaded. Returns the object key.
func (a *Archiver) ArchiveOriginal(ctx context.Context, userID, sourceKey string, rows []domain.RawRow) (string, error) {
	key := a.objectKey(userID, sourceKey, "original")
	if err := a.put(ctx, key, rows); err != nil {
		return "", err
	}
	a.logger.Info("archived original rows",
		zap.String("key", key),
		zap.Int("rows", len(rows)))
	return key, nil
}

// ArchiveProcessed stores the annotated executions. Returns the object key.
func (a *Archiver) ArchiveProcessed(ctx context.Context, userID, sourceKey string, execs []*domain.Execution) (string, error) {
	key := a.objectKey(userID, sourceKey, "processed")
	if err := a.put(ctx, key, execs); err != nil {
		return "", err
	}
	a.logger.Info("archived processed executions",
		zap.String("key", key),
		zap.Int("executions", len(execs)))
	return key, nil
}

func (a *Archiver) put(ctx context.Context, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("archive: marshal %s: %w", key, err)
	}

	_, err = a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeJSON),
	})
	if err != nil {
		return fmt.Errorf("archive: put object %s: %w", key, err)
	}
	return nil
}

// objectKey builds history/{userId}/{stage}/{source}-{timestamp}.json.
func (a *Archiver) objectKey(userID, sourceKey, stage string) string {
	source := strings.TrimSuffix(path.Base(sourceKey), path.Ext(sourceKey))
	if source == "" || source == "." {
		source = "upload"
	}
	stamp := a.now().UTC().Format("20060102T150405Z")
	return path.Join("history", userID, stage, fmt.Sprintf("%s-%s.json", source, stamp))
}
