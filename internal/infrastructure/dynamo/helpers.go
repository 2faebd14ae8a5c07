package dynamo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-auth/internal/domain"
)

// updateExpr is a prepared DynamoDB SET expression.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are processed in sorted order so the expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (updateExpr, error) {
	if len(updates) == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := updateExpr{
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return updateExpr{}, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		parts = append(parts, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	ue.Expr = "SET " + strings.Join(parts, ", ")
	return ue, nil
}

// buildRecordFilter turns the code/invalidated fields of a RecordFilter into a
// DynamoDB FilterExpression. Time bounds are NOT included: issued_at is stored
// as an RFC3339Nano string whose variable-length fraction breaks lexicographic
// range comparisons, so callers apply RecordFilter.Matches after unmarshalling.
func buildRecordFilter(f domain.RecordFilter) (expr string, names map[string]string, values map[string]types.AttributeValue) {
	var parts []string
	names = make(map[string]string)
	values = make(map[string]types.AttributeValue)

	if f.Code != nil {
		names["#code"] = "code"
		values[":code"] = &types.AttributeValueMemberS{Value: *f.Code}
		parts = append(parts, "#code = :code")
	}
	if f.Invalidated != nil {
		names["#invalidated"] = "invalidated"
		values[":invalidated"] = &types.AttributeValueMemberBOOL{Value: *f.Invalidated}
		parts = append(parts, "#invalidated = :invalidated")
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	return strings.Join(parts, " AND "), names, values
}

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// storageErr tags an infrastructure failure with the domain storage sentinel
// while keeping the underlying cause in the message for operator diagnosis.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorage)
}
