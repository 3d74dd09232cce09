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
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
)

// findingItem is the DynamoDB representation of a finding.
type findingItem struct {
	FindingType   string `dynamodbav:"findingType"`
	FindingID     string `dynamodbav:"findingId"`
	AccountID     string `dynamodbav:"accountId"`
	ResourceID    string `dynamodbav:"resourceId"`
	ResourceType  string `dynamodbav:"resourceType,omitempty"`
	Severity      string `dynamodbav:"severity"`
	Status        string `dynamodbav:"remediationStatus"`
	Title         string `dynamodbav:"title"`
	Description   string `dynamodbav:"description,omitempty"`
	RecordType    string `dynamodbav:"recordType"`
	SortTimestamp string `dynamodbav:"sortTimestamp"`
	CreatedAt     string `dynamodbav:"createdAt"`
	UpdatedAt     string `dynamodbav:"updatedAt"`
	LastUpdatedBy string `dynamodbav:"lastUpdatedBy,omitempty"`
	ExpiresAt     int64  `dynamodbav:"expiresAt,omitempty"`
}

func findingToItem(f *finding.Finding) findingItem {
	it := findingItem{
		FindingType:   f.FindingType(),
		FindingID:     f.ID(),
		AccountID:     f.AccountID(),
		ResourceID:    f.ResourceID(),
		ResourceType:  f.ResourceType(),
		Severity:      f.Severity().String(),
		Status:        f.Status().String(),
		Title:         f.Title(),
		Description:   f.Description(),
		RecordType:    recordTypeFinding,
		SortTimestamp: f.SortKey(),
		CreatedAt:     search.FormatTime(f.CreatedAt()),
		UpdatedAt:     search.FormatTime(f.UpdatedAt()),
		LastUpdatedBy: f.LastUpdatedBy(),
	}
	if f.ExpiresAt() != nil {
		it.ExpiresAt = f.ExpiresAt().Unix()
	}
	return it
}

func findingFromItem(it findingItem) (*finding.Finding, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse createdAt: %w", err)
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
	return finding.Reconstitute(
		it.FindingID,
		it.AccountID, it.ResourceID, it.ResourceType,
		finding.Severity(it.Severity),
		finding.RemediationStatus(it.Status),
		it.Title, it.Description,
		createdAt, updatedAt,
		it.LastUpdatedBy,
		expiresAt,
	)
}

func decodeFindingItem(raw map[string]ddbtypes.AttributeValue) (*finding.Finding, error) {
	var it findingItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return nil, fmt.Errorf("unmarshal finding item: %w", err)
	}
	return findingFromItem(it)
}

// findingKey derives the compound primary key from a finding identifier.
func findingKey(id string) (map[string]ddbtypes.AttributeValue, bool) {
	findingType, ok := finding.ParseID(id)
	if !ok {
		return nil, false
	}
	return map[string]ddbtypes.AttributeValue{
		attrFindingType: &ddbtypes.AttributeValueMemberS{Value: findingType},
		attrFindingID:   &ddbtypes.AttributeValueMemberS{Value: id},
	}, true
}

// FindingRepository implements finding.Repository on DynamoDB.
type FindingRepository struct {
	api  API
	spec tableSpec
	exec *searchExecutor[*finding.Finding]
	log  *logger.Logger
}

// NewFindingRepository creates a new FindingRepository.
func NewFindingRepository(api API, cfg config.DynamoConfig, inMemorySortLimit int, log *logger.Logger) *FindingRepository {
	spec := findingSpec(cfg)
	repoLog := log.With("repository", "finding")
	return &FindingRepository{
		api:  api,
		spec: spec,
		exec: &searchExecutor[*finding.Finding]{
			api:               api,
			spec:              spec,
			decode:            decodeFindingItem,
			keyForID:          findingKey,
			inMemorySortLimit: inMemorySortLimit,
			log:               repoLog,
		},
		log: repoLog,
	}
}

var _ finding.Repository = (*FindingRepository)(nil)

// Create persists a new finding, failing when the identifier already exists.
// The existence check and the write are one atomic conditional put.
func (r *FindingRepository) Create(ctx context.Context, f *finding.Finding) error {
	item, err := attributevalue.MarshalMap(findingToItem(f))
	if err != nil {
		return fmt.Errorf("marshal finding: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.spec.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(findingId)"),
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return finding.NewFindingExistsError(f.ID())
		}
		return fmt.Errorf("%w: put finding: %v", shared.ErrDependency, err)
	}
	return nil
}

// Update overwrites the stored finding only when the incoming record is
// strictly newer. The comparison and the write are one atomic conditional
// put, never read-then-write.
func (r *FindingRepository) Update(ctx context.Context, f *finding.Finding) error {
	item, err := attributevalue.MarshalMap(findingToItem(f))
	if err != nil {
		return fmt.Errorf("marshal finding: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.spec.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(findingId) AND updatedAt < :ts"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":ts": &ddbtypes.AttributeValueMemberS{Value: search.FormatTime(f.UpdatedAt())},
		},
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			// Disambiguate: the condition fails for both an absent record
			// and a stale write.
			if _, getErr := r.GetByID(ctx, f.ID()); getErr != nil {
				if finding.IsFindingNotFound(getErr) {
					return finding.NewFindingNotFoundError(f.ID())
				}
				return getErr
			}
			return fmt.Errorf("%w: finding %s has a newer stored version", shared.ErrStaleWrite, f.ID())
		}
		return fmt.Errorf("%w: put finding: %v", shared.ErrDependency, err)
	}
	return nil
}

// Delete removes a finding. Deleting an absent record is a no-op.
func (r *FindingRepository) Delete(ctx context.Context, id string) error {
	key, ok := findingKey(id)
	if !ok {
		// An identifier without a derivable key cannot name a stored record.
		return nil
	}
	_, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.spec.table),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("%w: delete finding: %v", shared.ErrDependency, err)
	}
	return nil
}

// GetByID retrieves a finding by its full identifier.
func (r *FindingRepository) GetByID(ctx context.Context, id string) (*finding.Finding, error) {
	key, ok := findingKey(id)
	if !ok {
		return nil, finding.NewFindingNotFoundError(id)
	}
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.spec.table),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get finding: %v", shared.ErrDependency, err)
	}
	if out.Item == nil {
		return nil, finding.NewFindingNotFoundError(id)
	}
	return decodeFindingItem(out.Item)
}

// Search executes a planned filter/sort/pagination request.
func (r *FindingRepository) Search(ctx context.Context, criteria search.Criteria, scope search.Scope) (search.Result[*finding.Finding], error) {
	return r.exec.execute(ctx, criteria, scope)
}
