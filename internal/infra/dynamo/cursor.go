package dynamo

import (
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// encodeKey flattens a continuation key into plain strings for the token
// codec. All key attributes in this schema are strings.
func encodeKey(key map[string]ddbtypes.AttributeValue) map[string]string {
	if len(key) == 0 {
		return nil
	}
	out := make(map[string]string, len(key))
	for name, av := range key {
		if s, ok := av.(*ddbtypes.AttributeValueMemberS); ok {
			out[name] = s.Value
		}
	}
	return out
}

// decodeKey rebuilds a continuation key from its flattened form.
func decodeKey(key map[string]string) map[string]ddbtypes.AttributeValue {
	if len(key) == 0 {
		return nil
	}
	out := make(map[string]ddbtypes.AttributeValue, len(key))
	for name, v := range key {
		out[name] = &ddbtypes.AttributeValueMemberS{Value: v}
	}
	return out
}
