package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(id string, stage entities.Stage) entities.Job {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	sent := now.Add(-time.Hour)
	return entities.Job{
		ID:         id,
		CustomerID: "cust-1",
		Stage:      stage,
		Estimate:   &entities.Estimate{Amount: 900, SentAt: &sent},
		Notes: []entities.Note{{
			ID: "n1", Content: "first", CreatedBy: "u1", CreatedAt: now, IsStageChange: true,
		}},
		CreatedBy: "u1",
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

func TestJobDynamoRepository_CreateGetSave(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDynamo()
	repo := NewJobDynamoRepository(ddb, "")

	j := testJob("job-1", entities.StageEstimateSent)
	_, err := repo.Create(ctx, j)
	require.NoError(t, err)

	_, err = repo.Create(ctx, j)
	require.ErrorIs(t, err, ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, j.Stage, got.Stage)
	require.NotNil(t, got.Estimate)
	require.NotNil(t, got.Estimate.SentAt)
	assert.True(t, got.Estimate.SentAt.Equal(*j.Estimate.SentAt))
	require.Len(t, got.Notes, 1)
	assert.True(t, got.Notes[0].IsStageChange)
	assert.True(t, got.CreatedAt.Equal(j.CreatedAt))

	got.Stage = entities.StageEngagedDesignReview
	got.Version++
	_, err = repo.Save(ctx, got)
	require.NoError(t, err)
	assert.Nil(t, ddb.puts[len(ddb.puts)-1].ConditionExpression, "save must overwrite unconditionally")

	again, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entities.StageEngagedDesignReview, again.Stage)
	assert.EqualValues(t, 2, again.Version)
}

func TestJobDynamoRepository_GetByIDNotFound(t *testing.T) {
	repo := NewJobDynamoRepository(newFakeDynamo(), "jobs")
	got, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got.ID)
}

func TestJobDynamoRepository_Find(t *testing.T) {
	ctx := context.Background()
	repo := NewJobDynamoRepository(newFakeDynamo(), "")

	active := testJob("a", entities.StageEstimateInProgress)
	dead := testJob("b", entities.StageEstimateInProgress)
	dead.IsDeadEstimate = true
	other := testJob("c", entities.StageScheduled)
	other.CustomerID = "cust-2"
	for _, j := range []entities.Job{active, dead, other} {
		_, err := repo.Create(ctx, j)
		require.NoError(t, err)
	}

	byStage, err := repo.Find(ctx, interfaces.JobFilter{Stage: entities.StageEstimateInProgress})
	require.NoError(t, err)
	require.Len(t, byStage, 1)
	assert.Equal(t, "a", byStage[0].ID)

	withDead, err := repo.Find(ctx, interfaces.JobFilter{Stage: entities.StageEstimateInProgress, IncludeDead: true})
	require.NoError(t, err)
	assert.Len(t, withDead, 2)

	byCustomer, err := repo.Find(ctx, interfaces.JobFilter{CustomerID: "cust-2"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, "c", byCustomer[0].ID)

	all, err := repo.Find(ctx, interfaces.JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestJobDynamoRepository_StoreError(t *testing.T) {
	ddb := newFakeDynamo()
	ddb.err = errors.New("unreachable")
	repo := NewJobDynamoRepository(ddb, "")

	_, err := repo.Find(context.Background(), interfaces.JobFilter{})
	require.EqualError(t, err, "unreachable")
}

func TestJobDynamoRepository_WritesTimesInUTC(t *testing.T) {
	ddb := newFakeDynamo()
	repo := NewJobDynamoRepository(ddb, "")

	j := testJob("job-1", entities.StageScheduled)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("BRT", -3*60*60))
	j.Schedule = &entities.Schedule{StartDate: &start}
	_, err := repo.Create(context.Background(), j)
	require.NoError(t, err)

	item := ddb.tables[defaultJobsTableName]["job-1"]
	schedule, ok := item["schedule"].(*types.AttributeValueMemberM)
	require.True(t, ok)
	stored, ok := schedule.Value["startDate"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "2026-03-02T13:00:00Z", stored.Value)
	assert.Equal(t, "BRT", j.Schedule.StartDate.Location().String(), "caller's job is untouched")
}

func TestJobDynamoRepository_CorruptTimestamp(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDynamo()
	repo := NewJobDynamoRepository(ddb, "")
	_, err := repo.Create(ctx, testJob("job-1", entities.StageEstimateSent))
	require.NoError(t, err)

	ddb.tables[defaultJobsTableName]["job-1"]["updatedAt"] = &types.AttributeValueMemberS{Value: "last tuesday"}

	_, err = repo.GetByID(ctx, "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job job-1: parse updatedAt")

	_, err = repo.Find(ctx, interfaces.JobFilter{})
	require.Error(t, err)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("createdAt", "")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseTime("createdAt", "2026-03-02T10:00:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC), got)

	_, err = parseTime("createdAt", "03/02/2026")
	require.Error(t, err)

	ptr, err := parseTimePtr("archivedAt", "")
	require.NoError(t, err)
	assert.Nil(t, ptr)

	_, err = parseTimePtr("archivedAt", "nope")
	require.Error(t, err)
}

func TestActivityDynamoRepository_CreateList(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityDynamoRepository(newFakeDynamo(), "")

	a := entities.Activity{
		ID:         "act-1",
		Type:       entities.ActivityJobUpdated,
		JobID:      "job-1",
		CustomerID: "cust-1",
		Changes: map[string]entities.FieldChange{
			"valueContracted":     {From: float64(1000), To: float64(1500)},
			"calendar.syncStatus": {From: nil, To: "synced"},
		},
		Note:      "valueContracted: 1000 → 1500",
		CreatedBy: "u1",
		CreatedAt: time.Now().UTC(),
	}
	_, err := repo.Create(ctx, a)
	require.NoError(t, err)

	byJob, err := repo.List(ctx, interfaces.ActivityFilter{JobID: "job-1"})
	require.NoError(t, err)
	require.Len(t, byJob, 1)
	assert.Equal(t, entities.ActivityJobUpdated, byJob[0].Type)
	assert.Equal(t, float64(1500), byJob[0].Changes["valueContracted"].To)
	assert.Nil(t, byJob[0].Changes["calendar.syncStatus"].From)

	byCustomer, err := repo.List(ctx, interfaces.ActivityFilter{CustomerID: "cust-1"})
	require.NoError(t, err)
	assert.Len(t, byCustomer, 1)
}

func TestUserDynamoDirectory_FindAnyActive(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDynamo()
	dir := NewUserDynamoDirectory(ddb, "")

	none, err := dir.FindAnyActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, none.ID)

	ddb.table(defaultUsersTableName)["u1"] = map[string]types.AttributeValue{
		"id":       &types.AttributeValueMemberS{Value: "u1"},
		"name":     &types.AttributeValueMemberS{Value: "Inactive"},
		"isActive": &types.AttributeValueMemberBOOL{Value: false},
	}
	ddb.table(defaultUsersTableName)["u2"] = map[string]types.AttributeValue{
		"id":       &types.AttributeValueMemberS{Value: "u2"},
		"name":     &types.AttributeValueMemberS{Value: "Active"},
		"isActive": &types.AttributeValueMemberBOOL{Value: true},
	}

	got, err := dir.FindAnyActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.ID)

	byID, err := dir.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, byID.IsActive)
}

func TestPaymentDynamoRepository_CreateList(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentDynamoRepository(newFakeDynamo(), "")

	p := entities.Payment{
		ID:                 "pay-1",
		JobID:              "job-1",
		Date:               time.Now().UTC(),
		Status:             entities.PaymentStatusAprovado,
		Amount:             250,
		ProviderPayloadRaw: []byte(`{"id":"pay-1"}`),
		ProviderPayload:    map[string]interface{}{"id": "pay-1"},
	}
	_, err := repo.Create(ctx, p)
	require.NoError(t, err)

	list, err := repo.ListByJobID(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 250.0, list[0].Amount)
	assert.JSONEq(t, `{"id":"pay-1"}`, string(list[0].ProviderPayloadRaw))
}

func TestCustomerDynamoRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerDynamoRepository(newFakeDynamo(), "")

	_, err := repo.Create(ctx, entities.Customer{ID: "c1", Name: "Acme", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, missing.ID)
}
