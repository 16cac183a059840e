package repository

import (
	"context"
	"fmt"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const (
	defaultPaymentsTableName = "payments"
	paymentsJobIndex         = "jobId-index"
)

type paymentItem struct {
	ID                 string                 `dynamodbav:"id"`
	JobID              string                 `dynamodbav:"jobId"`
	Date               string                 `dynamodbav:"date"`
	Status             string                 `dynamodbav:"status"`
	Amount             float64                `dynamodbav:"amount"`
	Method             string                 `dynamodbav:"method,omitempty"`
	ProviderPayload    map[string]interface{} `dynamodbav:"providerPayload,omitempty"`
	ProviderPayloadRaw string                 `dynamodbav:"providerPayloadRaw,omitempty"`
}

// PaymentDynamoRepository persists final payments.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: jobId-index (PK: jobId)
type PaymentDynamoRepository struct {
	ddb       DynamoAPI
	tableName string
}

var _ interfaces.IPaymentRepository = (*PaymentDynamoRepository)(nil)

func NewPaymentDynamoRepository(ddb DynamoAPI, tableName string) *PaymentDynamoRepository {
	return &PaymentDynamoRepository{
		ddb:       ddb,
		tableName: tableOrDefault(tableName, defaultPaymentsTableName),
	}
}

func (r *PaymentDynamoRepository) Create(ctx context.Context, p entities.Payment) (entities.Payment, error) {
	av, err := attributevalue.MarshalMap(toPaymentItem(p))
	if err != nil {
		return entities.Payment{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return entities.Payment{}, fmt.Errorf("payment %s: %w", p.ID, ErrAlreadyExists)
		}
		return entities.Payment{}, err
	}
	return p, nil
}

func (r *PaymentDynamoRepository) ListByJobID(ctx context.Context, jobID string) ([]entities.Payment, error) {
	raw, err := queryIndex(ctx, r.ddb, r.tableName, paymentsJobIndex, "jobId", jobID)
	if err != nil {
		return nil, err
	}

	items := make([]entities.Payment, 0, len(raw))
	for _, item := range raw {
		var it paymentItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, err
		}
		p, err := fromPaymentItem(it)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

func toPaymentItem(p entities.Payment) paymentItem {
	return paymentItem{
		ID:                 p.ID,
		JobID:              p.JobID,
		Date:               formatTime(p.Date),
		Status:             string(p.Status),
		Amount:             p.Amount,
		Method:             p.Method,
		ProviderPayload:    p.ProviderPayload,
		ProviderPayloadRaw: string(p.ProviderPayloadRaw),
	}
}

func fromPaymentItem(it paymentItem) (entities.Payment, error) {
	date, err := parseTime("date", it.Date)
	if err != nil {
		return entities.Payment{}, fmt.Errorf("payment %s: %w", it.ID, err)
	}
	return entities.Payment{
		ID:                 it.ID,
		JobID:              it.JobID,
		Date:               date,
		Status:             entities.PaymentStatus(it.Status),
		Amount:             it.Amount,
		Method:             it.Method,
		ProviderPayload:    it.ProviderPayload,
		ProviderPayloadRaw: []byte(it.ProviderPayloadRaw),
	}, nil
}
