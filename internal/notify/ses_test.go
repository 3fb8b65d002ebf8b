package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
	"tradeledger/internal/pipeline"
)

var _ pipeline.Notifier = (*SESNotifier)(nil)

type fakeSender struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSender) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{}, nil
}

func testResult() *domain.BatchResult {
	return &domain.BatchResult{
		RunID:        "run-1",
		UserID:       "user-1",
		Executions:   []*domain.Execution{{TransactionID: 101}},
		RowErrors:    []domain.RowError{{Row: 7, Reason: "missing transaction id"}},
		RowsRead:     10,
		RowsFiltered: 2,
		Write:        domain.WriteResult{Written: 1},
	}
}

func TestSESNotifier_NotifyBatchProcessed(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewSESNotifier(sender, "reports@example.com", []string{"ops@example.com"}, zap.NewNop())

	if err := notifier.NotifyBatchProcessed(context.Background(), testResult()); err != nil {
		t.Fatalf("NotifyBatchProcessed() error = %v", err)
	}

	if len(sender.inputs) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.inputs))
	}
	input := sender.inputs[0]
	if *input.FromEmailAddress != "reports@example.com" {
		t.Errorf("from = %q", *input.FromEmailAddress)
	}
	if len(input.Destination.ToAddresses) != 1 || input.Destination.ToAddresses[0] != "ops@example.com" {
		t.Errorf("to = %v", input.Destination.ToAddresses)
	}

	subject := *input.Content.Simple.Subject.Data
	if !strings.Contains(subject, "user-1") {
		t.Errorf("subject = %q, want user id", subject)
	}

	body := *input.Content.Simple.Body.Text.Data
	for _, want := range []string{"run-1", "Rows read:        10", "row 7: missing transaction id"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSESNotifier_NoRecipientsIsNoop(t *testing.T) {
	sender := &fakeSender{err: errors.New("should not be called")}
	notifier := NewSESNotifier(sender, "reports@example.com", nil, zap.NewNop())

	if err := notifier.NotifyBatchProcessed(context.Background(), testResult()); err != nil {
		t.Fatalf("NotifyBatchProcessed() error = %v", err)
	}
}

func TestSESNotifier_SendFailureWrapped(t *testing.T) {
	sendErr := errors.New("throttled")
	sender := &fakeSender{err: sendErr}
	notifier := NewSESNotifier(sender, "reports@example.com", []string{"ops@example.com"}, zap.NewNop())

	err := notifier.NotifyBatchProcessed(context.Background(), testResult())
	if !errors.Is(err, sendErr) {
		t.Errorf("error = %v, want wrapped send error", err)
	}
}
