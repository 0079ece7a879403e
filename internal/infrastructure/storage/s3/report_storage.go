package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dreschagin/monitoring-core/internal/application/dto"
)

// RecipientScheme marks report recipients archived in S3
const RecipientScheme = "s3://"

const contentTypeJSON = "application/json"

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// PutObjectAPI is the subset of the S3 client used by ReportStorage.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportStorage archives report payloads as JSON objects.
// Recipient "s3://daily/ops" stores objects under the "daily/ops/" prefix of the configured bucket.
type ReportStorage struct {
	client PutObjectAPI
	bucket string
}

func NewReportStorage(ctx context.Context, cfg Config) (*ReportStorage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if strings.TrimSpace(cfg.AccessKeyID) != "" && strings.TrimSpace(cfg.SecretAccessKey) != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
		options.UsePathStyle = cfg.UsePathStyle
	})

	return NewReportStorageWithClient(client, cfg.Bucket), nil
}

// NewReportStorageWithClient wraps an existing client
func NewReportStorageWithClient(client PutObjectAPI, bucket string) *ReportStorage {
	return &ReportStorage{
		client: client,
		bucket: strings.TrimSpace(bucket),
	}
}

func (s *ReportStorage) Supports(recipient string) bool {
	return strings.HasPrefix(recipient, RecipientScheme)
}

func (s *ReportStorage) Deliver(ctx context.Context, recipient string, payload *dto.ReportPayload) error {
	key := ObjectKey(recipient, payload)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	contentType := contentTypeJSON
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("put object failed: %w", err)
	}
	return nil
}

// ObjectKey builds "<prefix>/<job id>/<generated at>-<payload id>.json"
func ObjectKey(recipient string, payload *dto.ReportPayload) string {
	prefix := strings.Trim(strings.TrimPrefix(recipient, RecipientScheme), "/")
	name := fmt.Sprintf("%s-%s.json", payload.GeneratedAt.UTC().Format(time.RFC3339), payload.ID)
	return path.Join(prefix, payload.JobID, name)
}
