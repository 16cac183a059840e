package repository

import (
	"context"
	"fmt"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultActivitiesTableName = "activities"
	activitiesJobIndex         = "jobId-index"
	activitiesCustomerIndex    = "customerId-index"
)

type activityItem struct {
	ID         string                          `dynamodbav:"id"`
	Type       string                          `dynamodbav:"type"`
	JobID      string                          `dynamodbav:"jobId,omitempty"`
	CustomerID string                          `dynamodbav:"customerId"`
	Changes    map[string]entities.FieldChange `dynamodbav:"changes,omitempty"`
	FromStage  string                          `dynamodbav:"fromStage,omitempty"`
	ToStage    string                          `dynamodbav:"toStage,omitempty"`
	Note       string                          `dynamodbav:"note"`
	CreatedBy  string                          `dynamodbav:"createdBy"`
	CreatedAt  string                          `dynamodbav:"createdAt"`
}

// ActivityDynamoRepository is the append-only audit log table.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: jobId-index (PK: jobId)
//   - GSI: customerId-index (PK: customerId)
type ActivityDynamoRepository struct {
	ddb       DynamoAPI
	tableName string
}

var _ interfaces.IActivityRepository = (*ActivityDynamoRepository)(nil)

func NewActivityDynamoRepository(ddb DynamoAPI, tableName string) *ActivityDynamoRepository {
	return &ActivityDynamoRepository{
		ddb:       ddb,
		tableName: tableOrDefault(tableName, defaultActivitiesTableName),
	}
}

func (r *ActivityDynamoRepository) Create(ctx context.Context, a entities.Activity) (entities.Activity, error) {
	av, err := attributevalue.MarshalMap(toActivityItem(a))
	if err != nil {
		return entities.Activity{}, err
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
			return entities.Activity{}, fmt.Errorf("activity %s: %w", a.ID, ErrAlreadyExists)
		}
		return entities.Activity{}, err
	}
	return a, nil
}

func (r *ActivityDynamoRepository) List(ctx context.Context, filter interfaces.ActivityFilter) ([]entities.Activity, error) {
	var (
		raw []map[string]types.AttributeValue
		err error
	)
	switch {
	case filter.JobID != "":
		raw, err = queryIndex(ctx, r.ddb, r.tableName, activitiesJobIndex, "jobId", filter.JobID)
	case filter.CustomerID != "":
		raw, err = queryIndex(ctx, r.ddb, r.tableName, activitiesCustomerIndex, "customerId", filter.CustomerID)
	default:
		return []entities.Activity{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]entities.Activity, 0, len(raw))
	for _, item := range raw {
		var it activityItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, err
		}
		a, err := fromActivityItem(it)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func toActivityItem(a entities.Activity) activityItem {
	return activityItem{
		ID:         a.ID,
		Type:       string(a.Type),
		JobID:      a.JobID,
		CustomerID: a.CustomerID,
		Changes:    a.Changes,
		FromStage:  string(a.FromStage),
		ToStage:    string(a.ToStage),
		Note:       a.Note,
		CreatedBy:  a.CreatedBy,
		CreatedAt:  formatTime(a.CreatedAt),
	}
}

func fromActivityItem(it activityItem) (entities.Activity, error) {
	createdAt, err := parseTime("createdAt", it.CreatedAt)
	if err != nil {
		return entities.Activity{}, fmt.Errorf("activity %s: %w", it.ID, err)
	}
	return entities.Activity{
		ID:         it.ID,
		Type:       entities.ActivityType(it.Type),
		JobID:      it.JobID,
		CustomerID: it.CustomerID,
		Changes:    it.Changes,
		FromStage:  entities.Stage(it.FromStage),
		ToStage:    entities.Stage(it.ToStage),
		Note:       it.Note,
		CreatedBy:  it.CreatedBy,
		CreatedAt:  createdAt,
	}, nil
}
