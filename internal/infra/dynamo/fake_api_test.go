package dynamo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory single-table stand-in for the DynamoDB client. It
// honors the conditional expressions and query shapes the repositories use.
type fakeAPI struct {
	mu       sync.Mutex
	keyAttrs []string
	items    []map[string]ddbtypes.AttributeValue

	queries   []*dynamodb.QueryInput
	failGets  map[string]bool
	queryErr  error
	idKeyAttr string
}

func newFakeFindingAPI() *fakeAPI {
	return &fakeAPI{
		keyAttrs:  []string{attrFindingType, attrFindingID},
		idKeyAttr: attrFindingID,
		failGets:  make(map[string]bool),
	}
}

func newFakeRemediationAPI() *fakeAPI {
	return &fakeAPI{
		keyAttrs:  []string{attrFindingType, attrEventID},
		idKeyAttr: attrEventID,
		failGets:  make(map[string]bool),
	}
}

func strVal(av ddbtypes.AttributeValue) string {
	if s, ok := av.(*ddbtypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeAPI) keyMatches(item, key map[string]ddbtypes.AttributeValue) bool {
	for _, attr := range f.keyAttrs {
		if strVal(item[attr]) != strVal(key[attr]) {
			return false
		}
	}
	return true
}

func (f *fakeAPI) find(key map[string]ddbtypes.AttributeValue) int {
	for i, item := range f.items {
		if f.keyMatches(item, key) {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failGets[strVal(in.Key[f.idKeyAttr])] {
		return nil, errors.New("simulated read failure")
	}
	if i := f.find(in.Key); i >= 0 {
		return &dynamodb.GetItemOutput{Item: f.items[i]}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing := f.find(in.Item)

	if in.ConditionExpression != nil {
		cond := *in.ConditionExpression
		switch {
		case cond == "attribute_not_exists("+f.idKeyAttr+")":
			if existing >= 0 {
				return nil, &ddbtypes.ConditionalCheckFailedException{}
			}
		case cond == "attribute_exists("+f.idKeyAttr+")":
			if existing < 0 {
				return nil, &ddbtypes.ConditionalCheckFailedException{}
			}
		case cond == "attribute_exists("+f.idKeyAttr+") AND updatedAt < :ts":
			if existing < 0 {
				return nil, &ddbtypes.ConditionalCheckFailedException{}
			}
			stored := strVal(f.items[existing]["updatedAt"])
			incoming := strVal(in.ExpressionAttributeValues[":ts"])
			if !(stored < incoming) {
				return nil, &ddbtypes.ConditionalCheckFailedException{}
			}
		default:
			return nil, errors.New("unsupported condition: " + cond)
		}
	}

	if existing >= 0 {
		f.items[existing] = in.Item
	} else {
		f.items = append(f.items, in.Item)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if i := f.find(in.Key); i >= 0 {
		f.items = append(f.items[:i], f.items[i+1:]...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.queries = append(f.queries, in)

	partitionAttr := in.ExpressionAttributeNames["#p"]
	partitionValue := strVal(in.ExpressionAttributeValues[":pv"])

	var matched []map[string]ddbtypes.AttributeValue
	for _, item := range f.items {
		if strVal(item[partitionAttr]) == partitionValue {
			matched = append(matched, item)
		}
	}

	asc := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.SliceStable(matched, func(i, j int) bool {
		si, sj := strVal(matched[i][attrSortKey]), strVal(matched[j][attrSortKey])
		if asc {
			return si < sj
		}
		return si > sj
	})

	start := 0
	if len(in.ExclusiveStartKey) > 0 {
		resume := strVal(in.ExclusiveStartKey[attrSortKey])
		for i, item := range matched {
			if strVal(item[attrSortKey]) == resume {
				start = i + 1
				break
			}
		}
	}

	end := len(matched)
	if in.Limit != nil && start+int(*in.Limit) < end {
		end = start + int(*in.Limit)
	}
	page := matched[start:end]

	out := &dynamodb.QueryOutput{Items: page}
	if end < len(matched) && len(page) > 0 {
		last := page[len(page)-1]
		out.LastEvaluatedKey = map[string]ddbtypes.AttributeValue{
			attrSortKey:     last[attrSortKey],
			f.idKeyAttr:     last[f.idKeyAttr],
			attrFindingType: last[attrFindingType],
		}
	}
	return out, nil
}
