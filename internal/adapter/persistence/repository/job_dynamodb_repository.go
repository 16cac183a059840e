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
	defaultJobsTableName = "jobs"
	jobsStageIndex       = "stage-index"
	jobsCustomerIndex    = "customerId-index"
)

type jobItem struct {
	ID         string `dynamodbav:"id"`
	CustomerID string `dynamodbav:"customerId"`
	Stage      string `dynamodbav:"stage"`

	ValueEstimated  float64 `dynamodbav:"valueEstimated"`
	ValueContracted float64 `dynamodbav:"valueContracted"`

	Appointment  *entities.Appointment  `dynamodbav:"appointment,omitempty"`
	Estimate     *entities.Estimate     `dynamodbav:"estimate,omitempty"`
	Contract     *entities.Contract     `dynamodbav:"contract,omitempty"`
	Takeoff      *entities.Takeoff      `dynamodbav:"takeoff,omitempty"`
	Schedule     *entities.Schedule     `dynamodbav:"schedule,omitempty"`
	Calendar     *entities.Calendar     `dynamodbav:"calendar,omitempty"`
	FinalPayment *entities.FinalPayment `dynamodbav:"finalPayment,omitempty"`

	Notes []entities.Note `dynamodbav:"notes"`

	IsArchived bool   `dynamodbav:"isArchived"`
	ArchivedAt string `dynamodbav:"archivedAt,omitempty"`
	ArchivedBy string `dynamodbav:"archivedBy,omitempty"`

	IsDeadEstimate        bool   `dynamodbav:"isDeadEstimate"`
	MovedToDeadEstimateAt string `dynamodbav:"movedToDeadEstimateAt,omitempty"`

	CreatedBy string `dynamodbav:"createdBy"`
	CreatedAt string `dynamodbav:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	Version   int64  `dynamodbav:"version"`
}

// JobDynamoRepository persists Job documents in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: stage-index (PK: stage)
//   - GSI: customerId-index (PK: customerId)
//
// Save is an unconditional PutItem: the last writer wins.
type JobDynamoRepository struct {
	ddb       DynamoAPI
	tableName string
}

var _ interfaces.IJobRepository = (*JobDynamoRepository)(nil)

func NewJobDynamoRepository(ddb DynamoAPI, tableName string) *JobDynamoRepository {
	return &JobDynamoRepository{
		ddb:       ddb,
		tableName: tableOrDefault(tableName, defaultJobsTableName),
	}
}

func (r *JobDynamoRepository) Create(ctx context.Context, j entities.Job) (entities.Job, error) {
	av, err := attributevalue.MarshalMap(toJobItem(j))
	if err != nil {
		return entities.Job{}, err
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
			return entities.Job{}, fmt.Errorf("job %s: %w", j.ID, ErrAlreadyExists)
		}
		return entities.Job{}, err
	}
	return j, nil
}

func (r *JobDynamoRepository) GetByID(ctx context.Context, id string) (entities.Job, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Job{}, err
	}
	if len(out.Item) == 0 {
		return entities.Job{}, nil
	}

	var it jobItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Job{}, err
	}
	return fromJobItem(it)
}

// Find queries the narrowest index the filter allows and applies the rest of
// the filter in memory.
func (r *JobDynamoRepository) Find(ctx context.Context, filter interfaces.JobFilter) ([]entities.Job, error) {
	var (
		raw []map[string]types.AttributeValue
		err error
	)
	switch {
	case filter.Stage != "":
		raw, err = r.query(ctx, jobsStageIndex, "stage", string(filter.Stage))
	case filter.CustomerID != "":
		raw, err = r.query(ctx, jobsCustomerIndex, "customerId", filter.CustomerID)
	default:
		raw, err = r.scan(ctx)
	}
	if err != nil {
		return nil, err
	}

	jobs := make([]entities.Job, 0, len(raw))
	for _, item := range raw {
		var it jobItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, err
		}
		j, err := fromJobItem(it)
		if err != nil {
			return nil, err
		}
		if filter.Matches(j) {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

func (r *JobDynamoRepository) Save(ctx context.Context, j entities.Job) (entities.Job, error) {
	av, err := attributevalue.MarshalMap(toJobItem(j))
	if err != nil {
		return entities.Job{}, err
	}
	if _, err := r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return entities.Job{}, err
	}
	return j, nil
}

func (r *JobDynamoRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       idKey(id),
	})
	return err
}

func (r *JobDynamoRepository) query(ctx context.Context, index, attr, value string) ([]map[string]types.AttributeValue, error) {
	return queryIndex(ctx, r.ddb, r.tableName, index, attr, value)
}

func (r *JobDynamoRepository) scan(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewScanPaginator(r.ddb, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// queryIndex reads every page of an equality query on a GSI.
func queryIndex(ctx context.Context, ddb dynamodb.QueryAPIClient, table, index, attr, value string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(ddb, &dynamodb.QueryInput{
		TableName:              aws.String(table),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func toJobItem(j entities.Job) jobItem {
	j = j.UTC()
	notes := j.Notes
	if notes == nil {
		notes = []entities.Note{}
	}
	return jobItem{
		ID:                    j.ID,
		CustomerID:            j.CustomerID,
		Stage:                 string(j.Stage),
		ValueEstimated:        j.ValueEstimated,
		ValueContracted:       j.ValueContracted,
		Appointment:           j.Appointment,
		Estimate:              j.Estimate,
		Contract:              j.Contract,
		Takeoff:               j.Takeoff,
		Schedule:              j.Schedule,
		Calendar:              j.Calendar,
		FinalPayment:          j.FinalPayment,
		Notes:                 notes,
		IsArchived:            j.IsArchived,
		ArchivedAt:            formatTimePtr(j.ArchivedAt),
		ArchivedBy:            j.ArchivedBy,
		IsDeadEstimate:        j.IsDeadEstimate,
		MovedToDeadEstimateAt: formatTimePtr(j.MovedToDeadEstimateAt),
		CreatedBy:             j.CreatedBy,
		CreatedAt:             formatTime(j.CreatedAt),
		UpdatedAt:             formatTime(j.UpdatedAt),
		Version:               j.Version,
	}
}

func fromJobItem(it jobItem) (entities.Job, error) {
	notes := it.Notes
	if notes == nil {
		notes = []entities.Note{}
	}
	archivedAt, err := parseTimePtr("archivedAt", it.ArchivedAt)
	if err != nil {
		return entities.Job{}, fmt.Errorf("job %s: %w", it.ID, err)
	}
	deadAt, err := parseTimePtr("movedToDeadEstimateAt", it.MovedToDeadEstimateAt)
	if err != nil {
		return entities.Job{}, fmt.Errorf("job %s: %w", it.ID, err)
	}
	createdAt, err := parseTime("createdAt", it.CreatedAt)
	if err != nil {
		return entities.Job{}, fmt.Errorf("job %s: %w", it.ID, err)
	}
	updatedAt, err := parseTime("updatedAt", it.UpdatedAt)
	if err != nil {
		return entities.Job{}, fmt.Errorf("job %s: %w", it.ID, err)
	}
	return entities.Job{
		ID:                    it.ID,
		CustomerID:            it.CustomerID,
		Stage:                 entities.Stage(it.Stage),
		ValueEstimated:        it.ValueEstimated,
		ValueContracted:       it.ValueContracted,
		Appointment:           it.Appointment,
		Estimate:              it.Estimate,
		Contract:              it.Contract,
		Takeoff:               it.Takeoff,
		Schedule:              it.Schedule,
		Calendar:              it.Calendar,
		FinalPayment:          it.FinalPayment,
		Notes:                 notes,
		IsArchived:            it.IsArchived,
		ArchivedAt:            archivedAt,
		ArchivedBy:            it.ArchivedBy,
		IsDeadEstimate:        it.IsDeadEstimate,
		MovedToDeadEstimateAt: deadAt,
		CreatedBy:             it.CreatedBy,
		CreatedAt:             createdAt,
		UpdatedAt:             updatedAt,
		Version:               it.Version,
	}, nil
}
