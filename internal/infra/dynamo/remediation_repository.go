package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/remedyops/findings-api/internal/config"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
)

// remediationItem is the DynamoDB representation of a remediation event.
type remediationItem struct {
	FindingType     string `dynamodbav:"findingType"`
	EventID         string `dynamodbav:"eventId"`
	FindingID       string `dynamodbav:"findingId"`
	ExecutionID     string `dynamodbav:"executionId"`
	AccountID       string `dynamodbav:"accountId"`
	ResourceID      string `dynamodbav:"resourceId,omitempty"`
	Action          string `dynamodbav:"action"`
	ExecutionStatus string `dynamodbav:"executionStatus"`
	Message         string `dynamodbav:"message,omitempty"`
	TicketRequested bool   `dynamodbav:"ticketRequested"`
	RecordType      string `dynamodbav:"recordType"`
	SortTimestamp   string `dynamodbav:"sortTimestamp"`
	StartedAt       string `dynamodbav:"startedAt"`
	UpdatedAt       string `dynamodbav:"updatedAt"`
	LastUpdatedBy   string `dynamodbav:"lastUpdatedBy,omitempty"`
	ExpiresAt       int64  `dynamodbav:"expiresAt,omitempty"`
}

func remediationToItem(e *remediation.Event) remediationItem {
	it := remediationItem{
		FindingType:     e.FindingType(),
		EventID:         e.ID(),
		FindingID:       e.FindingID(),
		ExecutionID:     e.ExecutionID(),
		AccountID:       e.AccountID(),
		ResourceID:      e.ResourceID(),
		Action:          e.Action(),
		ExecutionStatus: e.Status().String(),
		Message:         e.Message(),
		TicketRequested: e.TicketRequested(),
		RecordType:      recordTypeRemediation,
		SortTimestamp:   e.SortKey(),
		StartedAt:       search.FormatTime(e.StartedAt()),
		UpdatedAt:       search.FormatTime(e.UpdatedAt()),
		LastUpdatedBy:   e.LastUpdatedBy(),
	}
	if e.ExpiresAt() != nil {
		it.ExpiresAt = e.ExpiresAt().Unix()
	}
	return it
}

func remediationFromItem(it remediationItem) (*remediation.Event, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, it.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("parse startedAt: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updatedAt: %w", err)
	}
	var expiresAt *time.Time
	if it.ExpiresAt > 0 {
		t := time.Unix(it.ExpiresAt, 0).UTC()
		expiresAt = &t
	}
	return remediation.Reconstitute(
		it.FindingID, it.ExecutionID,
		it.AccountID, it.ResourceID, it.Action,
		remediation.ExecutionStatus(it.ExecutionStatus),
		it.Message,
		it.TicketRequested,
		startedAt, updatedAt,
		it.LastUpdatedBy,
		expiresAt,
	)
}

func decodeRemediationItem(raw map[string]ddbtypes.AttributeValue) (*remediation.Event, error) {
	var it remediationItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return nil, fmt.Errorf("unmarshal remediation item: %w", err)
	}
	return remediationFromItem(it)
}

// remediationKey derives the compound primary key from a composite
// "<findingId>#<executionId>" identifier.
func remediationKey(id string) (map[string]ddbtypes.AttributeValue, bool) {
	findingID, _, ok := remediation.SplitID(id)
	if !ok {
		return nil, false
	}
	findingType, ok := finding.ParseID(findingID)
	if !ok {
		return nil, false
	}
	return map[string]ddbtypes.AttributeValue{
		attrFindingType: &ddbtypes.AttributeValueMemberS{Value: findingType},
		attrEventID:     &ddbtypes.AttributeValueMemberS{Value: id},
	}, true
}

// RemediationRepository implements remediation.Repository on DynamoDB.
type RemediationRepository struct {
	api  API
	spec tableSpec
	exec *searchExecutor[*remediation.Event]
	log  *logger.Logger
}

// NewRemediationRepository creates a new RemediationRepository.
func NewRemediationRepository(api API, cfg config.DynamoConfig, inMemorySortLimit int, log *logger.Logger) *RemediationRepository {
	spec := remediationSpec(cfg)
	repoLog := log.With("repository", "remediation")
	return &RemediationRepository{
		api:  api,
		spec: spec,
		exec: &searchExecutor[*remediation.Event]{
			api:               api,
			spec:              spec,
			decode:            decodeRemediationItem,
			keyForID:          remediationKey,
			inMemorySortLimit: inMemorySortLimit,
			log:               repoLog,
		},
		log: repoLog,
	}
}

var _ remediation.Repository = (*RemediationRepository)(nil)

// Create persists a new execution event.
func (r *RemediationRepository) Create(ctx context.Context, e *remediation.Event) error {
	item, err := attributevalue.MarshalMap(remediationToItem(e))
	if err != nil {
		return fmt.Errorf("marshal remediation event: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.spec.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(eventId)"),
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", remediation.ErrEventExists, e.ID())
		}
		return fmt.Errorf("%w: put remediation event: %v", shared.ErrDependency, err)
	}
	return nil
}

// Update overwrites an existing execution event.
func (r *RemediationRepository) Update(ctx context.Context, e *remediation.Event) error {
	item, err := attributevalue.MarshalMap(remediationToItem(e))
	if err != nil {
		return fmt.Errorf("marshal remediation event: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.spec.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(eventId)"),
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return remediation.NewEventNotFoundError(e.ID())
		}
		return fmt.Errorf("%w: put remediation event: %v", shared.ErrDependency, err)
	}
	return nil
}

// GetByID retrieves an event by its composite identifier.
func (r *RemediationRepository) GetByID(ctx context.Context, id string) (*remediation.Event, error) {
	key, ok := remediationKey(id)
	if !ok {
		return nil, remediation.NewEventNotFoundError(id)
	}
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.spec.table),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get remediation event: %v", shared.ErrDependency, err)
	}
	if out.Item == nil {
		return nil, remediation.NewEventNotFoundError(id)
	}
	return decodeRemediationItem(out.Item)
}

// Search executes a planned filter/sort/pagination request over the history.
func (r *RemediationRepository) Search(ctx context.Context, criteria search.Criteria, scope search.Scope) (search.Result[*remediation.Event], error) {
	return r.exec.execute(ctx, criteria, scope)
}
