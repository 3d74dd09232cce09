package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/remedyops/findings-api/internal/metrics"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/pagination"
	"github.com/remedyops/findings-api/pkg/search"
)

// directLookupConcurrency bounds the point-lookup fan-out.
const directLookupConcurrency = 10

type decoder[T search.Record] func(map[string]ddbtypes.AttributeValue) (T, error)

type keyFunc func(id string) (map[string]ddbtypes.AttributeValue, bool)

// searchExecutor runs planned strategies against one record table.
type searchExecutor[T search.Record] struct {
	api               API
	spec              tableSpec
	decode            decoder[T]
	keyForID          keyFunc
	inMemorySortLimit int
	log               *logger.Logger
}

func (e *searchExecutor[T]) execute(ctx context.Context, criteria search.Criteria, scope search.Scope) (search.Result[T], error) {
	strategy := search.Plan(criteria, e.spec.schema)
	pageSize := pagination.ClampPageSize(criteria.PageSize)

	if strategy.Kind == search.StrategyDirectKey {
		metrics.SearchesTotal.WithLabelValues(e.spec.resource, "direct_key").Inc()
		e.log.Debug("search planned",
			"resource", e.spec.resource,
			"strategy", "direct_key",
			"ids", len(strategy.IDs),
			"post_groups", len(strategy.Post),
		)
		return e.executeDirect(ctx, strategy, criteria, scope)
	}

	metrics.SearchesTotal.WithLabelValues(e.spec.resource, "indexed_query").Inc()
	if strategy.Index == e.spec.schema.AllIndex && len(strategy.Post) > 0 {
		metrics.FallbackScansTotal.WithLabelValues(e.spec.resource).Inc()
	}
	e.log.Debug("search planned",
		"resource", e.spec.resource,
		"strategy", "indexed_query",
		"index", strategy.Index,
		"partition_field", strategy.PartitionField,
		"sort_native", strategy.SortNative,
		"post_groups", len(strategy.Post),
	)

	if strategy.SortNative {
		return e.executeIndexed(ctx, strategy, criteria, scope, pageSize)
	}
	metrics.InMemorySortsTotal.WithLabelValues(e.spec.resource).Inc()
	return e.executeResorted(ctx, strategy, criteria, scope, pageSize)
}

// executeDirect fans point lookups out in parallel. Individual misses and
// lookup failures are normal, not request failures; the merged set is
// deduplicated, post-filtered, scoped and sorted in memory. The caller
// controls the bound via the number of identifiers, so no cursor is emitted.
func (e *searchExecutor[T]) executeDirect(ctx context.Context, strategy search.Strategy, criteria search.Criteria, scope search.Scope) (search.Result[T], error) {
	results := make([]T, len(strategy.IDs))
	found := make([]bool, len(strategy.IDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(directLookupConcurrency)
	for i, id := range strategy.IDs {
		i, id := i, id
		g.Go(func() error {
			key, ok := e.keyForID(id)
			if !ok {
				e.log.Warn("identifier has no derivable key, treated as miss", "id", id)
				return nil
			}
			out, err := e.api.GetItem(gctx, &dynamodb.GetItemInput{
				TableName: aws.String(e.spec.table),
				Key:       key,
			})
			if err != nil {
				e.log.Warn("point lookup failed, treated as miss", "id", id, "error", err)
				return nil
			}
			if out.Item == nil {
				return nil
			}
			rec, err := e.decode(out.Item)
			if err != nil {
				e.log.Warn("undecodable item skipped", "id", id, "error", err)
				return nil
			}
			results[i] = rec
			found[i] = true
			return nil
		})
	}
	_ = g.Wait()

	items := make([]T, 0, len(results))
	for i, rec := range results {
		if found[i] {
			items = append(items, rec)
		}
	}
	items = search.Dedupe(items)
	items = search.ApplyGroups(items, strategy.Post)
	items = search.ApplyScope(items, scope, search.FieldAccount)
	search.SortItems(items, e.effectiveSortField(criteria), strategy.Descending)

	return search.Result[T]{Items: items}, nil
}

// executeIndexed issues one indexed query per page with the caller's page
// size, then applies post-filter predicates. Predicates run after the
// store-level page boundary, so a page may legitimately hold fewer than
// pageSize surviving items while a token is still returned; callers follow
// the token until it is absent.
func (e *searchExecutor[T]) executeIndexed(ctx context.Context, strategy search.Strategy, criteria search.Criteria, scope search.Scope, pageSize int) (search.Result[T], error) {
	shape := criteria.ShapeHash()
	input := e.queryInput(strategy, int32(pageSize))
	if cursor := pagination.Decode(criteria.NextToken, shape); cursor != nil {
		input.ExclusiveStartKey = decodeKey(cursor.Key)
	}

	out, err := e.api.Query(ctx, input)
	if err != nil {
		return search.Result[T]{}, fmt.Errorf("%w: query %s/%s: %v", shared.ErrDependency, e.spec.table, strategy.Index, err)
	}

	items := e.decodeItems(out.Items)
	items = search.ApplyGroups(items, strategy.Post)
	if !e.accountPartitionScoped(strategy, scope) {
		items = search.ApplyScope(items, scope, search.FieldAccount)
	}

	var token string
	if len(out.LastEvaluatedKey) > 0 {
		token = pagination.Encode(pagination.Cursor{Key: encodeKey(out.LastEvaluatedKey), Shape: shape})
	}
	return search.Result[T]{Items: items, NextToken: token}, nil
}

// executeResorted serves sorts the store cannot push down: it drains the
// filtered set (up to the configured bound), sorts in memory and pages by
// offset. Only safe while the filtered set fits the bound; beyond it the
// tail is dropped and a warning logged.
func (e *searchExecutor[T]) executeResorted(ctx context.Context, strategy search.Strategy, criteria search.Criteria, scope search.Scope, pageSize int) (search.Result[T], error) {
	shape := criteria.ShapeHash()

	var collected []T
	var startKey map[string]ddbtypes.AttributeValue
	truncated := false
	for {
		input := e.queryInput(strategy, int32(e.inMemorySortLimit))
		input.ExclusiveStartKey = startKey

		out, err := e.api.Query(ctx, input)
		if err != nil {
			return search.Result[T]{}, fmt.Errorf("%w: query %s/%s: %v", shared.ErrDependency, e.spec.table, strategy.Index, err)
		}
		collected = append(collected, e.decodeItems(out.Items)...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		if len(collected) >= e.inMemorySortLimit {
			truncated = true
			break
		}
		startKey = out.LastEvaluatedKey
	}
	if truncated {
		e.log.Warn("in-memory sort hit the drain cap, tail dropped",
			"resource", e.spec.resource,
			"limit", e.inMemorySortLimit,
			"sort_field", criteria.Sort.Field,
		)
	}

	items := search.ApplyGroups(collected, strategy.Post)
	if !e.accountPartitionScoped(strategy, scope) {
		items = search.ApplyScope(items, scope, search.FieldAccount)
	}
	search.SortItems(items, e.effectiveSortField(criteria), strategy.Descending)

	offset := 0
	if cursor := pagination.Decode(criteria.NextToken, shape); cursor != nil {
		offset = cursor.Offset
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}

	var token string
	if end < len(items) {
		token = pagination.Encode(pagination.Cursor{Offset: end, Shape: shape})
	}
	return search.Result[T]{Items: items[offset:end], NextToken: token}, nil
}

func (e *searchExecutor[T]) queryInput(strategy search.Strategy, limit int32) *dynamodb.QueryInput {
	partitionAttr := e.spec.indexPartitionAttr[strategy.Index]
	partitionValue := strategy.PartitionValue
	if strategy.Index == e.spec.schema.AllIndex {
		partitionValue = e.spec.allIndexValue
	}

	return &dynamodb.QueryInput{
		TableName:              aws.String(e.spec.table),
		IndexName:              aws.String(strategy.Index),
		KeyConditionExpression: aws.String("#p = :pv"),
		ExpressionAttributeNames: map[string]string{
			"#p": partitionAttr,
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pv": &ddbtypes.AttributeValueMemberS{Value: partitionValue},
		},
		ScanIndexForward: aws.Bool(!strategy.Descending),
		Limit:            aws.Int32(limit),
	}
}

func (e *searchExecutor[T]) decodeItems(raw []map[string]ddbtypes.AttributeValue) []T {
	items := make([]T, 0, len(raw))
	for _, it := range raw {
		rec, err := e.decode(it)
		if err != nil {
			e.log.Warn("undecodable item skipped", "table", e.spec.table, "error", err)
			continue
		}
		items = append(items, rec)
	}
	return items
}

// accountPartitionScoped reports whether the queried partition already
// enforces the caller's scope. Only the account index qualifies, and only
// when the scope itself allows the queried account; an empty restricted
// scope allows no partition, so the membership predicate must still run.
func (e *searchExecutor[T]) accountPartitionScoped(strategy search.Strategy, scope search.Scope) bool {
	return strategy.Index == e.spec.schema.AccountIndexName() && scope.Allows(strategy.PartitionValue)
}

func (e *searchExecutor[T]) effectiveSortField(criteria search.Criteria) string {
	if criteria.Sort.Field != "" {
		return criteria.Sort.Field
	}
	return e.spec.schema.SortField
}
