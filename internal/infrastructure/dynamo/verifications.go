package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-auth/internal/domain"
	"github.com/go-email-auth/internal/pkg/id"
	"github.com/google/uuid"
)

// dynamoAPI is the slice of the DynamoDB client the repo calls. Satisfied by
// *dynamodb.Client; tests substitute a fake.
type dynamoAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// VerificationRepo is the durable store of emailed authentication codes.
// PK: record_id (ULID). GSI: email-index for per-recipient lookups.
type VerificationRepo struct {
	client    dynamoAPI
	tableName string
}

func NewVerificationRepo(client dynamoAPI, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Find returns every record matching the filter. When the filter carries an
// email the email-index GSI is queried; otherwise the table is scanned.
func (r *VerificationRepo) Find(ctx context.Context, f domain.RecordFilter) ([]domain.VerificationRecord, error) {
	filter, names, values := buildRecordFilter(f)

	var items []map[string]types.AttributeValue
	if f.Email != nil {
		if values == nil {
			values = make(map[string]types.AttributeValue)
		}
		values[":email"] = &types.AttributeValueMemberS{Value: *f.Email}
		in := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String("email-index"),
			KeyConditionExpression:    aws.String("email = :email"),
			ExpressionAttributeValues: values,
		}
		if filter != "" {
			in.FilterExpression = aws.String(filter)
			in.ExpressionAttributeNames = names
		}
		out, err := r.client.Query(ctx, in)
		if err != nil {
			return nil, storageErr("query verifications", err)
		}
		items = out.Items
	} else {
		in := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
		if filter != "" {
			in.FilterExpression = aws.String(filter)
			in.ExpressionAttributeNames = names
			in.ExpressionAttributeValues = values
		}
		out, err := r.client.Scan(ctx, in)
		if err != nil {
			return nil, storageErr("scan verifications", err)
		}
		items = out.Items
	}

	recs := make([]domain.VerificationRecord, 0, len(items))
	for _, item := range items {
		var rec domain.VerificationRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal verification: %w", err)
		}
		// issued_at bounds are applied here, not in the FilterExpression
		// (see buildRecordFilter).
		if f.Matches(&rec) {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// Remove deletes every record matching the filter and returns the count.
// The matched set is deleted through TransactWriteItems so a single call
// either removes all matches or none of them.
func (r *VerificationRepo) Remove(ctx context.Context, f domain.RecordFilter) (int, error) {
	recs, err := r.Find(ctx, f)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	// TransactWriteItems caps at 100 actions; matches per recipient stay in
	// the single digits so chunking only matters for unfiltered sweeps.
	const chunk = 100
	for start := 0; start < len(recs); start += chunk {
		end := min(start+chunk, len(recs))
		actions := make([]types.TransactWriteItem, 0, end-start)
		for _, rec := range recs[start:end] {
			actions = append(actions, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(r.tableName),
					Key:       strKey("record_id", rec.RecordID),
				},
			})
		}
		if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: actions,
		}); err != nil {
			return 0, storageErr("remove verifications", err)
		}
	}
	return len(recs), nil
}

// Insert creates a record with a fresh unguessable code for the recipient.
// The code is a random 128-bit UUID; the record id is a ULID. On failure no
// partial record exists.
func (r *VerificationRepo) Insert(ctx context.Context, email string) (*domain.VerificationRecord, error) {
	rec := &domain.VerificationRecord{
		RecordID:    id.New(),
		Email:       email,
		Code:        uuid.NewString(),
		IssuedAt:    time.Now().UTC(),
		Invalidated: false,
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(record_id)"),
	})
	if err != nil {
		return nil, storageErr("insert verification", err)
	}
	return rec, nil
}

// Get fetches a single record by its id.
func (r *VerificationRepo) Get(ctx context.Context, recordID string) (*domain.VerificationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("record_id", recordID),
	})
	if err != nil {
		return nil, storageErr("get verification", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification %s: %w", recordID, domain.ErrNotFound)
	}
	var rec domain.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal verification: %w", err)
	}
	return &rec, nil
}

// Update applies the non-nil fields of upd to the record in place and returns
// the stored record after the merge.
func (r *VerificationRepo) Update(ctx context.Context, recordID string, upd domain.RecordUpdate) (*domain.VerificationRecord, error) {
	updates := make(map[string]interface{})
	if upd.Email != nil {
		updates["email"] = *upd.Email
	}
	if upd.Code != nil {
		updates["code"] = *upd.Code
	}
	if upd.IssuedAt != nil {
		updates["issued_at"] = *upd.IssuedAt
	}
	if upd.Invalidated != nil {
		updates["invalidated"] = *upd.Invalidated
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, fmt.Errorf("update verification %s: %w", recordID, domain.ErrBadRequest)
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("record_id", recordID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(record_id)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil, fmt.Errorf("verification %s: %w", recordID, domain.ErrNotFound)
		}
		return nil, storageErr("update verification", err)
	}
	var rec domain.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal verification: %w", err)
	}
	return &rec, nil
}
