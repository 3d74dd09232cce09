package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/logger"
)

// grantItem is the DynamoDB representation of an account grant.
type grantItem struct {
	Principal string   `dynamodbav:"principal"`
	Accounts  []string `dynamodbav:"accounts"`
}

// GrantRepository implements accesscontrol.GrantRepository on DynamoDB.
type GrantRepository struct {
	api   API
	table string
	log   *logger.Logger
}

// NewGrantRepository creates a new GrantRepository.
func NewGrantRepository(api API, table string, log *logger.Logger) *GrantRepository {
	return &GrantRepository{
		api:   api,
		table: table,
		log:   log.With("repository", "grant"),
	}
}

var _ accesscontrol.GrantRepository = (*GrantRepository)(nil)

// GetAuthorizedAccounts returns the accounts granted to the principal.
func (r *GrantRepository) GetAuthorizedAccounts(ctx context.Context, principal string) ([]string, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]ddbtypes.AttributeValue{
			attrPrincipal: &ddbtypes.AttributeValueMemberS{Value: principal},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get account grant: %v", shared.ErrDependency, err)
	}
	if out.Item == nil {
		return nil, accesscontrol.ErrGrantNotFound
	}

	var it grantItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal account grant: %w", err)
	}
	return it.Accounts, nil
}
