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

// issueRepository is the scope-bound issue adapter for DynamoDB. Reads use
// strongly consistent GetItem calls; writes become condition-guarded items in
// the scope's transaction.
type issueRepository struct {
	scope *Scope
}

var _ ports.IssueRepository = (*issueRepository)(nil)

// rootProjection lists every issue attribute except the comment list, for
// loads that skip sub-collection hydration.
const rootProjection = "PK, SK, ID, RepositoryID, MilestoneID, AuthorID, Title, #body, Closed, CloseReason, Labels, CreatedAt, UpdatedAt, Version"

func (r *issueRepository) Get(ctx context.Context, id valueobjects.IssueID, opts ...ports.LoadOption) (*aggregates.Issue, error) {
	resolved := ports.ResolveLoadOptions(opts...)

	input := &dynamodb.GetItemInput{
		TableName:      aws.String(r.scope.uow.table),
		Key:            issueKey(id.String()),
		ConsistentRead: aws.Bool(true),
	}
	if !resolved.IncludeDetails {
		input.ProjectionExpression = aws.String(rootProjection)
		input.ExpressionAttributeNames = map[string]string{"#body": "Body"}
	}

	result, err := r.scope.uow.breaker.Execute(func() (any, error) {
		return r.scope.uow.client.GetItem(ctx, input)
	})
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to load issue", err)
	}

	output := result.(*dynamodb.GetItemOutput)
	if output.Item == nil {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("issue %s", id.String()))
	}

	var record issueRecord
	if err := attributevalue.UnmarshalMap(output.Item, &record); err != nil {
		return nil, pkgerrors.NewInternal("failed to unmarshal issue record", err)
	}

	issue, err := aggregates.ReconstructIssue(record.toSnapshot(resolved.IncludeDetails), r.scope.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to reconstruct stored issue")
	}
	return issue, nil
}

func (r *issueRepository) Save(_ context.Context, issue *aggregates.Issue) error {
	if issue == nil {
		return pkgerrors.NewValidation("issue must not be nil")
	}
	snap := issue.Snapshot()

	var write types.TransactWriteItem
	if snap.CommentsLoaded || snap.Version == 0 {
		put, err := buildIssuePut(r.scope.uow.table, snap)
		if err != nil {
			return err
		}
		write = types.TransactWriteItem{Put: put}
	} else {
		// Loaded without details: update the root fields in place so the
		// stored comment list is never overwritten with an empty one.
		update, err := buildIssueRootUpdate(r.scope.uow.table, snap)
		if err != nil {
			return err
		}
		write = types.TransactWriteItem{Update: update}
	}

	return r.scope.register(transactItem{
		item:  write,
		kind:  writeSave,
		key:   issuePrefix + snap.ID,
		dbKey: issueKey(snap.ID),
		isNew: snap.Version == 0,
		desc:  fmt.Sprintf("issue %s", snap.ID),
	}, issue)
}

func (r *issueRepository) Delete(_ context.Context, id valueobjects.IssueID) error {
	if id.IsZero() {
		return pkgerrors.NewValidation("issue id must not be zero")
	}
	return r.scope.register(transactItem{
		item: types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:           aws.String(r.scope.uow.table),
				Key:                 issueKey(id.String()),
				ConditionExpression: aws.String("attribute_exists(PK)"),
			},
		},
		kind:  writeDelete,
		key:   issuePrefix + id.String(),
		dbKey: issueKey(id.String()),
		desc:  fmt.Sprintf("issue %s", id.String()),
	}, nil)
}

func buildIssuePut(table string, snap aggregates.IssueSnapshot) (*types.Put, error) {
	next := snap
	next.Version = snap.Version + 1
	item, err := marshalRecord(toIssueRecord(next))
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to marshal issue", err)
	}

	put := &types.Put{
		TableName: aws.String(table),
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
	return put, nil
}

func buildIssueRootUpdate(table string, snap aggregates.IssueSnapshot) (*types.Update, error) {
	labels := make([]labelRecord, len(snap.Labels))
	for i, label := range snap.Labels {
		labels[i] = labelRecord{Name: label.Name, Color: label.Color}
	}
	labelsAttr, err := attributevalue.Marshal(labels)
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to marshal labels", err)
	}
	createdAttr, err := attributevalue.Marshal(snap.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to marshal timestamps", err)
	}
	updatedAttr, err := attributevalue.Marshal(snap.UpdatedAt)
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to marshal timestamps", err)
	}

	return &types.Update{
		TableName: aws.String(table),
		Key:       issueKey(snap.ID),
		UpdateExpression: aws.String("SET RepositoryID = :repo, MilestoneID = :milestone, AuthorID = :author, " +
			"Title = :title, #body = :bodyval, Closed = :closed, CloseReason = :reason, " +
			"Labels = :labels, CreatedAt = :created, UpdatedAt = :updated, Version = :next"),
		ConditionExpression:      aws.String("attribute_exists(PK) AND Version = :loaded"),
		ExpressionAttributeNames: map[string]string{"#body": "Body"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":repo":      &types.AttributeValueMemberS{Value: snap.RepositoryID},
			":milestone": &types.AttributeValueMemberS{Value: snap.MilestoneID},
			":author":    &types.AttributeValueMemberS{Value: snap.AuthorID},
			":title":     &types.AttributeValueMemberS{Value: snap.Title},
			":bodyval":   &types.AttributeValueMemberS{Value: snap.Body},
			":closed":    &types.AttributeValueMemberBOOL{Value: snap.Closed},
			":reason":    &types.AttributeValueMemberS{Value: snap.CloseReason},
			":labels":    labelsAttr,
			":created":   createdAttr,
			":updated":   updatedAttr,
			":loaded":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", snap.Version)},
			":next":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", snap.Version+1)},
		},
	}, nil
}
