package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

// Mailer sends digest emails through AWS SES.
type Mailer struct {
	client   *sesv2.Client
	renderer *Renderer
	from     string
	logger   *slog.Logger
}

// MailerConfig holds SES credentials and the sender address.
type MailerConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

func NewMailer(ctx context.Context, cfg MailerConfig, renderer *Renderer, logger *slog.Logger) (*Mailer, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Mailer{
		client:   sesv2.NewFromConfig(awsCfg),
		renderer: renderer,
		from:     cfg.From,
		logger:   logger,
	}, nil
}

// SendDigest renders and sends one subscriber's digest.
func (m *Mailer) SendDigest(ctx context.Context, email string, byCountry map[string][]domain.Scholarship) error {
	digest, err := m.renderer.Render(byCountry)
	if err != nil {
		return err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: []string{email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(digest.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(digest.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(digest.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("sending digest to %s: %w", email, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	m.logger.Info("digest sent", "email", email, "message_id", messageID)
	return nil
}
