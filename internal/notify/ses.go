// Package notify delivers batch processing summaries to operators over
// email via AWS SES.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// EmailSender is the subset of the SES API the notifier uses.
type EmailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier emails a per-batch summary after processing completes.
type SESNotifier struct {
	api    EmailSender
	from   string
	to     []string
	logger *zap.Logger
}

// NewSESNotifier creates a notifier sending from the given verified address.
func NewSESNotifier(api EmailSender, from string, to []string, logger *zap.Logger) *SESNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SESNotifier{api: api, from: from, to: to, logger: logger}
}

// NotifyBatchProcessed sends the batch summary email. A batch with no
// recipients configured is a no-op.
func (n *SESNotifier) NotifyBatchProcessed(ctx context.Context, result *domain.BatchResult) error {
	if len(n.to) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Trade batch processed for %s (%d executions)",
		result.UserID, len(result.Executions))
	body := formatSummary(result)

	_, err := n.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: n.to,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: send batch summary: %w", err)
	}

	n.logger.Info("sent batch summary email",
		zap.String("run_id", result.RunID),
		zap.String("user_id", result.UserID),
		zap.Int("recipients", len(n.to)))
	return nil
}

// formatSummary renders the plain-text body of the summary email.
func formatSummary(result *domain.BatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:              %s\n", result.RunID)
	fmt.Fprintf(&b, "User:             %s\n", result.UserID)
	fmt.Fprintf(&b, "Rows read:        %d\n", result.RowsRead)
	fmt.Fprintf(&b, "Rows filtered:    %d\n", result.RowsFiltered)
	fmt.Fprintf(&b, "Executions:       %d\n", len(result.Executions))
	fmt.Fprintf(&b, "Written:          %d\n", result.Write.Written)
	fmt.Fprintf(&b, "Write failures:   %d\n", result.Write.Failed)
	fmt.Fprintf(&b, "Row errors:       %d\n", len(result.RowErrors))

	if len(result.RowErrors) > 0 {
		b.WriteString("\nRow errors:\n")
		for _, re := range result.RowErrors {
			fmt.Fprintf(&b, "  row %d: %s\n", re.Row, re.Reason)
		}
	}
	return b.String()
}
