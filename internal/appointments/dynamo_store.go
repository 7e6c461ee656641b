package appointments

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wolfman30/doctorhome/internal/clock"
	"github.com/wolfman30/doctorhome/internal/directory"
)

const (
	patientIndex = "patientId-scheduledTime-index"
	doctorIndex  = "doctorId-scheduledTime-index"

	versionAttr = "version"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore persists appointments as DynamoDB documents. Each item carries a
// version number; updates are conditional on it and retried once against a
// fresh read when another writer got there first.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	clock     clock.Clock
}

// NewDynamoStore builds a store on the given table.
func NewDynamoStore(client dynamoAPI, tableName string, c clock.Clock) *DynamoStore {
	if client == nil {
		panic("appointments: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("appointments: table name cannot be empty")
	}
	if c == nil {
		c = clock.System()
	}
	return &DynamoStore{client: client, tableName: tableName, clock: c}
}

// Insert writes a new document, refusing to overwrite an existing id.
func (s *DynamoStore) Insert(ctx context.Context, record *Appointment) (*Appointment, error) {
	a, err := prepareInsert(record, s.clock.Now())
	if err != nil {
		return nil, err
	}
	item, err := marshalVersioned(a, 1)
	if err != nil {
		return nil, err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrValidation, a.ID)
		}
		return nil, fmt.Errorf("appointments: put item: %w", err)
	}
	return a, nil
}

// Get reads a document with strong consistency.
func (s *DynamoStore) Get(ctx context.Context, id string) (*Appointment, error) {
	a, _, err := s.load(ctx, id)
	return a, err
}

// Update applies mutate with an optimistic version check.
func (s *DynamoStore) Update(ctx context.Context, id string, mutate Mutator) (*Appointment, error) {
	for attempt := 0; attempt < 2; attempt++ {
		current, version, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		next, err := applyMutation(current, mutate, s.clock.Now())
		if err != nil {
			return nil, err
		}
		item, err := marshalVersioned(next, version+1)
		if err != nil {
			return nil, err
		}

		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.tableName),
			Item:                item,
			ConditionExpression: aws.String("#version = :version"),
			ExpressionAttributeNames: map[string]string{
				"#version": versionAttr,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
			},
		})
		if err == nil {
			return next, nil
		}
		if !isConditionFailed(err) {
			return nil, fmt.Errorf("appointments: put item: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: appointment %s", errConflict, id)
}

// ListByUser queries the patient or doctor index and pages through results.
func (s *DynamoStore) ListByUser(ctx context.Context, userID string, role directory.Role) ([]*Appointment, error) {
	if err := validateListArgs(userID, role); err != nil {
		return nil, err
	}
	index, attr := patientIndex, "patientId"
	if role == directory.RoleDoctor {
		index, attr = doctorIndex, "doctorId"
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	}

	out := make([]*Appointment, 0)
	for {
		page, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("appointments: query %s: %w", index, err)
		}
		var batch []*Appointment
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("appointments: decode items: %w", err)
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	sortBySchedule(out)
	return out, nil
}

func (s *DynamoStore) load(ctx context.Context, id string) (*Appointment, int64, error) {
	if id == "" {
		return nil, 0, ErrNotFound
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("appointments: get item: %w", err)
	}
	if out.Item == nil {
		return nil, 0, ErrNotFound
	}

	var a Appointment
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, 0, fmt.Errorf("appointments: decode item: %w", err)
	}
	var version int64
	if v, ok := out.Item[versionAttr]; ok {
		if err := attributevalue.Unmarshal(v, &version); err != nil {
			return nil, 0, fmt.Errorf("appointments: decode version: %w", err)
		}
	}
	return &a, version, nil
}

func marshalVersioned(a *Appointment, version int64) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return nil, fmt.Errorf("appointments: marshal item: %w", err)
	}
	item[versionAttr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)}
	return item, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
