package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

const (
	reportJobPKPrefix = "REPORT_JOB#"
	reportJobSK       = "META"

	attrPK              = "PK"
	attrSK              = "SK"
	attrName            = "name"
	attrCadenceSeconds  = "cadence_seconds"
	attrRecipients      = "recipients"
	attrSections        = "sections"
	attrMetricKeys      = "metric_keys"
	attrEnabled         = "enabled"
	attrLastRunAt       = "last_run_at"
	attrLastManualRunAt = "last_manual_run_at"
	attrCreatedAt       = "created_at"
	attrUpdatedAt       = "updated_at"
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

// API is the subset of the DynamoDB client used by the repository.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// ReportJobRepository stores report jobs in a single DynamoDB table.
// Run claims are conditional updates on last_run_at, so concurrent
// schedulers sharing the table fire each due run once.
type ReportJobRepository struct {
	client      API
	tableName   string
	strongReads bool
}

func NewReportJobRepository(ctx context.Context, cfg Config) (*ReportJobRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return NewReportJobRepositoryWithClient(client, cfg.TableName, cfg.StrongReads), nil
}

// NewReportJobRepositoryWithClient wraps an existing client.
func NewReportJobRepositoryWithClient(client API, tableName string, strongReads bool) *ReportJobRepository {
	return &ReportJobRepository{
		client:      client,
		tableName:   strings.TrimSpace(tableName),
		strongReads: strongReads,
	}
}

// SaveReportJob upserts job parameters. Run timestamps of an existing item are kept.
func (r *ReportJobRepository) SaveReportJob(ctx context.Context, job *entity.ReportJob) error {
	expression := strings.Join([]string{
		"SET #name = :name",
		"#cadence = :cadence",
		"#recipients = :recipients",
		"#sections = :sections",
		"#metric_keys = :metric_keys",
		"#enabled = :enabled",
		"#updated_at = :updated_at",
		"#created_at = if_not_exists(#created_at, :created_at)",
		"#last_run_at = if_not_exists(#last_run_at, :zero)",
		"#last_manual_run_at = if_not_exists(#last_manual_run_at, :zero)",
	}, ", ")

	sections := make([]string, 0, len(job.Sections()))
	for _, s := range job.Sections() {
		sections = append(sections, string(s))
	}
	metricKeys := make([]string, 0, len(job.MetricKeys()))
	for _, k := range job.MetricKeys() {
		metricKeys = append(metricKeys, k.String())
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &r.tableName,
		Key:              jobKey(job.ID()),
		UpdateExpression: &expression,
		ExpressionAttributeNames: map[string]string{
			"#name":               attrName,
			"#cadence":            attrCadenceSeconds,
			"#recipients":         attrRecipients,
			"#sections":           attrSections,
			"#metric_keys":        attrMetricKeys,
			"#enabled":            attrEnabled,
			"#updated_at":         attrUpdatedAt,
			"#created_at":         attrCreatedAt,
			"#last_run_at":        attrLastRunAt,
			"#last_manual_run_at": attrLastManualRunAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":        &types.AttributeValueMemberS{Value: job.Name()},
			":cadence":     numberValue(int64(job.Cadence() / time.Second)),
			":recipients":  stringList(job.Recipients()),
			":sections":    stringList(sections),
			":metric_keys": stringList(metricKeys),
			":enabled":     &types.AttributeValueMemberBOOL{Value: job.Enabled()},
			":updated_at":  timeValue(job.UpdatedAt()),
			":created_at":  timeValue(job.CreatedAt()),
			":zero":        timeValue(time.Time{}),
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb update report job failed: %w", err)
	}
	return nil
}

func (r *ReportJobRepository) FindReportJob(ctx context.Context, id string) (*entity.ReportJob, error) {
	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.tableName,
		Key:            jobKey(id),
		ConsistentRead: &r.strongReads,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get report job failed: %w", err)
	}
	if len(output.Item) == 0 {
		return nil, errs.ErrNotFound
	}
	return fromItem(output.Item)
}

func (r *ReportJobRepository) ListReportJobs(ctx context.Context) ([]*entity.ReportJob, error) {
	filter := "begins_with(#pk, :prefix)"
	input := &dynamodb.ScanInput{
		TableName:                &r.tableName,
		FilterExpression:         &filter,
		ExpressionAttributeNames: map[string]string{"#pk": attrPK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: reportJobPKPrefix},
		},
		ConsistentRead: &r.strongReads,
	}

	var jobs []*entity.ReportJob
	for {
		output, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan report jobs failed: %w", err)
		}
		for _, item := range output.Items {
			job, err := fromItem(item)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		}
		if len(output.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt().Before(jobs[j].CreatedAt()) })
	return jobs, nil
}

// ClaimRun moves last_run_at from expected to runAt if nobody did it first.
func (r *ReportJobRepository) ClaimRun(ctx context.Context, id string, expected, runAt time.Time) (bool, error) {
	update := "SET #last_run_at = :run_at"
	condition := "attribute_exists(#pk) AND #last_run_at = :expected"

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.tableName,
		Key:                 jobKey(id),
		UpdateExpression:    &update,
		ConditionExpression: &condition,
		ExpressionAttributeNames: map[string]string{
			"#pk":          attrPK,
			"#last_run_at": attrLastRunAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":run_at":   timeValue(runAt),
			":expected": timeValue(expected),
		},
	})
	if err == nil {
		return true, nil
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if !errors.As(err, &conditionFailed) {
		return false, fmt.Errorf("dynamodb claim report run failed: %w", err)
	}
	if _, err := r.FindReportJob(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *ReportJobRepository) RecordManualRun(ctx context.Context, id string, at time.Time) error {
	update := "SET #last_manual_run_at = :at"
	condition := "attribute_exists(#pk)"

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.tableName,
		Key:                 jobKey(id),
		UpdateExpression:    &update,
		ConditionExpression: &condition,
		ExpressionAttributeNames: map[string]string{
			"#pk":                attrPK,
			"#last_manual_run_at": attrLastManualRunAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at": timeValue(at),
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("dynamodb record manual run failed: %w", err)
	}
	return nil
}

func fromItem(item map[string]types.AttributeValue) (*entity.ReportJob, error) {
	pk, err := attrString(item, attrPK)
	if err != nil {
		return nil, err
	}
	name, err := attrString(item, attrName)
	if err != nil {
		return nil, err
	}
	cadence, err := attrInt64(item, attrCadenceSeconds)
	if err != nil {
		return nil, err
	}

	p := entity.ReportJobParams{
		Name:       name,
		Cadence:    time.Duration(cadence) * time.Second,
		Recipients: optionalStrings(item, attrRecipients),
		Enabled:    optionalBool(item, attrEnabled),
	}
	for _, s := range optionalStrings(item, attrSections) {
		p.Sections = append(p.Sections, entity.ReportSection(s))
	}
	for _, k := range optionalStrings(item, attrMetricKeys) {
		p.MetricKeys = append(p.MetricKeys, valueobject.MetricKey(k))
	}

	return entity.ReconstructReportJob(
		strings.TrimPrefix(pk, reportJobPKPrefix),
		p,
		optionalTime(item, attrLastRunAt),
		optionalTime(item, attrLastManualRunAt),
		optionalTime(item, attrCreatedAt),
		optionalTime(item, attrUpdatedAt),
	), nil
}

func jobKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: reportJobPKPrefix + id},
		attrSK: &types.AttributeValueMemberS{Value: reportJobSK},
	}
}

// timeValue stores nanoseconds since epoch; zero time is stored as 0.
func timeValue(t time.Time) types.AttributeValue {
	if t.IsZero() {
		return numberValue(0)
	}
	return numberValue(t.UnixNano())
}

func numberValue(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func stringList(values []string) types.AttributeValue {
	list := make([]types.AttributeValue, len(values))
	for i, v := range values {
		list[i] = &types.AttributeValueMemberS{Value: v}
	}
	return &types.AttributeValueMemberL{Value: list}
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func optionalTime(item map[string]types.AttributeValue, name string) time.Time {
	ns, err := attrInt64(item, name)
	if err != nil || ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func optionalBool(item map[string]types.AttributeValue, name string) bool {
	value, ok := item[name].(*types.AttributeValueMemberBOOL)
	return ok && value.Value
}

func optionalStrings(item map[string]types.AttributeValue, name string) []string {
	list, ok := item[name].(*types.AttributeValueMemberL)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(list.Value))
	for _, raw := range list.Value {
		if s, ok := raw.(*types.AttributeValueMemberS); ok {
			result = append(result, s.Value)
		}
	}
	return result
}
