package archive

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
	"tradeledger/internal/pipeline"
)

var _ pipeline.Archiver = (*Archiver)(nil)

type capturedPut struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

type fakePutter struct {
	puts []capturedPut
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, capturedPut{
		bucket:      *params.Bucket,
		key:         *params.Key,
		contentType: *params.ContentType,
		body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

func newTestArchiver(putter *fakePutter) *Archiver {
	return &Archiver{
		api:    putter,
		bucket: "trades-archive",
		logger: zap.NewNop(),
		now: func() time.Time {
			return time.Date(2025, 8, 15, 14, 30, 0, 0, time.UTC)
		},
	}
}

func TestArchiver_ArchiveOriginal(t *testing.T) {
	putter := &fakePutter{}
	archiver := newTestArchiver(putter)

	rows := []domain.RawRow{
		{TransactionID: "101", Symbol: "F.US.EP", Side: "Buy", Quantity: "2"},
	}

	key, err := archiver.ArchiveOriginal(context.Background(), "user-1", "uploads/orders-aug.xlsx", rows)
	if err != nil {
		t.Fatalf("ArchiveOriginal() error = %v", err)
	}

	want := "history/user-1/original/orders-aug-20250815T143000Z.json"
	if key != want {
		t.Errorf("key = %q, want %q", key, want)
	}

	if len(putter.puts) != 1 {
		t.Fatalf("expected 1 put, got %d", len(putter.puts))
	}
	put := putter.puts[0]
	if put.bucket != "trades-archive" {
		t.Errorf("bucket = %q", put.bucket)
	}
	if put.contentType != "application/json" {
		t.Errorf("content type = %q", put.contentType)
	}

	var decoded []domain.RawRow
	if err := json.Unmarshal(put.body, &decoded); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].TransactionID != "101" {
		t.Errorf("decoded rows = %+v", decoded)
	}
}

func TestArchiver_ArchiveProcessed(t *testing.T) {
	putter := &fakePutter{}
	archiver := newTestArchiver(putter)

	execs := []*domain.Execution{
		{
			TransactionID:   101,
			UserID:          "user-1",
			CanonicalTicker: "ES",
			Quantity:        decimal.NewFromInt(2),
			LifecycleStatus: domain.StatusOpen,
		},
	}

	key, err := archiver.ArchiveProcessed(context.Background(), "user-1", "uploads/orders-aug.xlsx", execs)
	if err != nil {
		t.Fatalf("ArchiveProcessed() error = %v", err)
	}
	if !strings.HasPrefix(key, "history/user-1/processed/") {
		t.Errorf("key = %q, want history/user-1/processed/ prefix", key)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(putter.puts[0].body, &decoded); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if len(decoded) != 1 {
		t.Errorf("decoded %d executions, want 1", len(decoded))
	}
}

func TestArchiver_EmptySourceKeyFallsBack(t *testing.T) {
	putter := &fakePutter{}
	archiver := newTestArchiver(putter)

	key, err := archiver.ArchiveOriginal(context.Background(), "user-1", "", nil)
	if err != nil {
		t.Fatalf("ArchiveOriginal() error = %v", err)
	}
	if !strings.Contains(key, "/original/upload-") {
		t.Errorf("key = %q, want upload fallback name", key)
	}
}
