package mailer

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

const charset = "UTF-8"

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newSESClient = func(cfg aws.Config, optFns ...func(*sesv2.Options)) sesAPI {
		return sesv2.NewFromConfig(cfg, optFns...)
	}
)

// SESConfig configures the SES dispatcher. Static credentials are used when
// AccessKeyID is set; otherwise the default AWS credential chain applies.
type SESConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	FromAddress     string
	FromName        string
}

// SESDispatcher sends mail through Amazon SES v2.
type SESDispatcher struct {
	client sesAPI
	from   string
	logger logging.Logger
}

func NewSESDispatcher(ctx context.Context, cfg SESConfig, logger logging.Logger) (*SESDispatcher, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("ses: from address is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}

	client := newSESClient(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = (&mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}).String()
	}

	return &SESDispatcher{
		client: client,
		from:   from,
		logger: logger.With("module", "mailer"),
	}, nil
}

func (d *SESDispatcher) Send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return ErrEmptyRecipient
	}

	out, err := d.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(d.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String(charset)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html), Charset: aws.String(charset)},
				},
			},
		},
	})
	if err != nil {
		d.logger.Error(ctx, "ses send failed", "to", to, "error", err)
		return fmt.Errorf("ses: send email: %w", err)
	}

	d.logger.Info(ctx, "email sent", "to", to, "message_id", aws.ToString(out.MessageId))
	return nil
}
