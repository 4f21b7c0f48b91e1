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
	"github.com/go-verify-nosql/internal/domain"
)

// verificationItem is the stored shape of a domain.VerificationRecord.
// PK: email, SK: purpose. Instants are Unix milliseconds; ttl is Unix seconds
// and drives DynamoDB's background expiry.
type verificationItem struct {
	Email       string                 `dynamodbav:"email"`
	Purpose     string                 `dynamodbav:"purpose"`
	RecordID    string                 `dynamodbav:"record_id"`
	UserID      *string                `dynamodbav:"user_id,omitempty"`
	Code        string                 `dynamodbav:"code"`
	ExpiresAt   int64                  `dynamodbav:"expires_at"`
	TTL         int64                  `dynamodbav:"ttl"`
	Meta        map[string]interface{} `dynamodbav:"meta,omitempty"`
	LastSentAt  *int64                 `dynamodbav:"last_sent_at,omitempty"`
	ResendCount int                    `dynamodbav:"resend_count"`
	CreatedAt   int64                  `dynamodbav:"created_at"`
}

// VerificationRepo manages verification codes keyed by (email, purpose).
// The composite primary key makes the pair unique; conditional writes keep
// resend and consumption free of check-then-act races.
type VerificationRepo struct {
	client    API
	tableName string
}

func NewVerificationRepo(client API, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

func (r *VerificationRepo) Find(ctx context.Context, email string, purpose domain.Purpose) (*domain.VerificationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            verificationKey(email, purpose),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var item verificationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal verification: %w", err)
	}
	return item.toDomain(), nil
}

// Replace writes rec with PutItem, which atomically overwrites any item with the same key.
func (r *VerificationRepo) Replace(ctx context.Context, rec *domain.VerificationRecord) error {
	item, err := attributevalue.MarshalMap(fromDomain(rec))
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Refresh rotates the code on the existing item. The write only applies if the
// item still has the same record_id and the last_sent_at the caller observed.
func (r *VerificationRepo) Refresh(ctx context.Context, rec *domain.VerificationRecord, prevLastSentAt *time.Time) error {
	set := map[string]interface{}{
		fieldCode:      rec.Code,
		fieldExpiresAt: rec.ExpiresAt.UnixMilli(),
		fieldTTL:       rec.ExpiresAt.Unix(),
	}
	if rec.LastSentAt != nil {
		set[fieldLastSentAt] = rec.LastSentAt.UnixMilli()
	}
	ue, err := buildUpdateExpr(set)
	if err != nil {
		return err
	}
	ue.Expr += " ADD #rc :one"
	ue.Names["#rc"] = fieldResendCount
	ue.Values[":one"] = numberValue(1)

	ue.Names["#rid"] = fieldRecordID
	ue.Names["#ls"] = fieldLastSentAt
	ue.Values[":rid"] = &types.AttributeValueMemberS{Value: rec.RecordID}
	cond := "#rid = :rid AND attribute_not_exists(#ls)"
	if prevLastSentAt != nil {
		cond = "#rid = :rid AND #ls = :prev"
		ue.Values[":prev"] = numberValue(prevLastSentAt.UnixMilli())
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       verificationKey(rec.Email, rec.Purpose),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("verification changed concurrently: %w", domain.ErrConflict)
	}
	return err
}

// DeleteMatching removes the item only while it still holds code.
func (r *VerificationRepo) DeleteMatching(ctx context.Context, email string, purpose domain.Purpose, code string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      verificationKey(email, purpose),
		ConditionExpression:      aws.String("#c = :code"),
		ExpressionAttributeNames: map[string]string{"#c": fieldCode},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":code": &types.AttributeValueMemberS{Value: code},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("verification no longer holds code: %w", domain.ErrConflict)
	}
	return err
}

func (r *VerificationRepo) Delete(ctx context.Context, email string, purpose domain.Purpose) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       verificationKey(email, purpose),
	})
	return err
}

func verificationKey(email string, purpose domain.Purpose) map[string]types.AttributeValue {
	return compositeKey(fieldEmail, email, fieldPurpose, string(purpose))
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return err != nil && errors.As(err, &ccf)
}

func fromDomain(rec *domain.VerificationRecord) verificationItem {
	item := verificationItem{
		Email:       rec.Email,
		Purpose:     string(rec.Purpose),
		RecordID:    rec.RecordID,
		UserID:      rec.UserID,
		Code:        rec.Code,
		ExpiresAt:   rec.ExpiresAt.UnixMilli(),
		TTL:         rec.ExpiresAt.Unix(),
		Meta:        rec.Meta,
		ResendCount: rec.ResendCount,
		CreatedAt:   rec.CreatedAt.UnixMilli(),
	}
	if rec.LastSentAt != nil {
		ms := rec.LastSentAt.UnixMilli()
		item.LastSentAt = &ms
	}
	return item
}

func (i verificationItem) toDomain() *domain.VerificationRecord {
	rec := &domain.VerificationRecord{
		RecordID:    i.RecordID,
		Email:       i.Email,
		Purpose:     domain.Purpose(i.Purpose),
		UserID:      i.UserID,
		Code:        i.Code,
		ExpiresAt:   time.UnixMilli(i.ExpiresAt).UTC(),
		Meta:        i.Meta,
		ResendCount: i.ResendCount,
		CreatedAt:   time.UnixMilli(i.CreatedAt).UTC(),
	}
	if i.LastSentAt != nil {
		t := time.UnixMilli(*i.LastSentAt).UTC()
		rec.LastSentAt = &t
	}
	return rec
}
