package repository

import (
	"context"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const defaultUsersTableName = "users"

// UserDynamoDirectory reads the users table owned by the auth service.
type UserDynamoDirectory struct {
	ddb       DynamoAPI
	tableName string
}

var _ interfaces.IUserDirectory = (*UserDynamoDirectory)(nil)

func NewUserDynamoDirectory(ddb DynamoAPI, tableName string) *UserDynamoDirectory {
	return &UserDynamoDirectory{
		ddb:       ddb,
		tableName: tableOrDefault(tableName, defaultUsersTableName),
	}
}

func (d *UserDynamoDirectory) GetByID(ctx context.Context, id string) (entities.User, error) {
	out, err := d.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       idKey(id),
	})
	if err != nil {
		return entities.User{}, err
	}
	if len(out.Item) == 0 {
		return entities.User{}, nil
	}
	var u entities.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return entities.User{}, err
	}
	return u, nil
}

// FindAnyActive scans until the first active user. The filter runs after the
// page read, so empty pages are expected.
func (d *UserDynamoDirectory) FindAnyActive(ctx context.Context) (entities.User, error) {
	p := dynamodb.NewScanPaginator(d.ddb, &dynamodb.ScanInput{
		TableName:        aws.String(d.tableName),
		FilterExpression: aws.String("#active = :true"),
		ExpressionAttributeNames: map[string]string{
			"#active": "isActive",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return entities.User{}, err
		}
		for _, item := range page.Items {
			var u entities.User
			if err := attributevalue.UnmarshalMap(item, &u); err != nil {
				return entities.User{}, err
			}
			if u.ID != "" && u.IsActive {
				return u, nil
			}
		}
	}
	return entities.User{}, nil
}
