package dynamodb

import (
	"context"
	"fmt"

	"trackd-backend/application/ports"
	"trackd-backend/domain/core/aggregates"
	"trackd-backend/domain/core/valueobjects"
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// milestoneRepository is the scope-bound milestone adapter for DynamoDB
type milestoneRepository struct {
	scope *Scope
}

var _ ports.MilestoneRepository = (*milestoneRepository)(nil)

func (r *milestoneRepository) Get(ctx context.Context, id valueobjects.MilestoneID, _ ...ports.LoadOption) (*aggregates.Milestone, error) {
	result, err := r.scope.uow.breaker.Execute(func() (any, error) {
		return r.scope.uow.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(r.scope.uow.table),
			Key:            milestoneKey(id.String()),
			ConsistentRead: aws.Bool(true),
		})
	})
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to load milestone", err)
	}

	output := result.(*dynamodb.GetItemOutput)
	if output.Item == nil {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("milestone %s", id.String()))
	}

	var record milestoneRecord
	if err := attributevalue.UnmarshalMap(output.Item, &record); err != nil {
		return nil, pkgerrors.NewInternal("failed to unmarshal milestone record", err)
	}

	milestone, err := aggregates.ReconstructMilestone(record.toSnapshot(), r.scope.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to reconstruct stored milestone")
	}
	return milestone, nil
}

func (r *milestoneRepository) Save(_ context.Context, milestone *aggregates.Milestone) error {
	if milestone == nil {
		return pkgerrors.NewValidation("milestone must not be nil")
	}
	snap := milestone.Snapshot()

	next := snap
	next.Version = snap.Version + 1
	item, err := marshalRecord(toMilestoneRecord(next))
	if err != nil {
		return pkgerrors.NewInternal("failed to marshal milestone", err)
	}

	put := &types.Put{
		TableName: aws.String(r.scope.uow.table),
		Item:      item,
	}
	if snap.Version == 0 {
		put.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		put.ConditionExpression = aws.String("Version = :loaded")
		put.ExpressionAttributeValues = map[string]types.AttributeValue{
			":loaded": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", snap.Version)},
		}
	}

	return r.scope.register(transactItem{
		item:  types.TransactWriteItem{Put: put},
		kind:  writeSave,
		key:   milestonePrefix + snap.ID,
		dbKey: milestoneKey(snap.ID),
		isNew: snap.Version == 0,
		desc:  fmt.Sprintf("milestone %s", snap.ID),
	}, milestone)
}

func (r *milestoneRepository) Delete(_ context.Context, id valueobjects.MilestoneID) error {
	if id.IsZero() {
		return pkgerrors.NewValidation("milestone id must not be zero")
	}
	return r.scope.register(transactItem{
		item: types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:           aws.String(r.scope.uow.table),
				Key:                 milestoneKey(id.String()),
				ConditionExpression: aws.String("attribute_exists(PK)"),
			},
		},
		kind:  writeDelete,
		key:   milestonePrefix + id.String(),
		dbKey: milestoneKey(id.String()),
		desc:  fmt.Sprintf("milestone %s", id.String()),
	}, nil)
}
