package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/skipgrid/blobstore"
)

// ErrAlreadyCommitted is returned when a completion marker for the same
// key was already committed by another writer.
var ErrAlreadyCommitted = errors.New("s3: marker already committed")

// DDBClient is the subset of DynamoDB operations the commit store needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// CommitStore wraps a blob store and routes completion-marker writes
// through DynamoDB conditional puts. S3 has no compare-and-swap, so a
// plain marker object cannot exclude two concurrent writers finishing the
// same checkpoint; the conditional put can. After a successful commit the
// marker is mirrored into the inner store so plain listings still see it.
//
// Table schema:
//   - Partition key: base_uri (string) - the store's bucket/prefix
//   - Sort key:      item_name (string) - the marker key
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name skipgrid-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=item_name,AttributeType=S \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=item_name,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	inner      blobstore.BlobStore
	ddb        DDBClient
	tableName  string
	baseURI    string
	markerName string
}

// NewCommitStore creates a commit store. markerName is the base name of
// completion markers (e.g. "_SUCCESS"); every other key passes straight
// through to the inner store.
func NewCommitStore(inner blobstore.BlobStore, ddb DDBClient, tableName, baseURI, markerName string) *CommitStore {
	return &CommitStore{
		inner:      inner,
		ddb:        ddb,
		tableName:  tableName,
		baseURI:    baseURI,
		markerName: markerName,
	}
}

func (s *CommitStore) isMarker(name string) bool {
	return path.Base(name) == s.markerName
}

// Open opens a blob. Markers are authoritative in DynamoDB.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if s.isMarker(name) {
		payload, ok, err := s.getMarker(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, blobstore.ErrNotFound
		}
		return &markerBlob{content: payload}, nil
	}
	return s.inner.Open(ctx, name)
}

// Put writes a blob. Markers commit via a conditional put first and are
// then mirrored to the inner store.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if !s.isMarker(name) {
		return s.inner.Put(ctx, name, data)
	}
	if err := s.commit(ctx, name, data); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

// Create streams through to the inner store. Markers are small and must
// go through Put to get commit semantics.
func (s *CommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return s.inner.Create(ctx, name)
}

// Delete removes a blob, and for markers also the commit record.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	if s.isMarker(name) {
		_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       s.itemKey(name),
		})
		if err != nil {
			return err
		}
	}
	return s.inner.Delete(ctx, name)
}

// List merges the inner store's keys with committed markers.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}

	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
	})
	if err != nil {
		return nil, err
	}
	for _, item := range resp.Items {
		nameAttr, ok := item["item_name"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if strings.HasPrefix(nameAttr.Value, prefix) && !seen[nameAttr.Value] {
			keys = append(keys, nameAttr.Value)
			seen[nameAttr.Value] = true
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *CommitStore) itemKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"base_uri":  &types.AttributeValueMemberS{Value: s.baseURI},
		"item_name": &types.AttributeValueMemberS{Value: name},
	}
}

func (s *CommitStore) commit(ctx context.Context, name string, payload []byte) error {
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":  &types.AttributeValueMemberS{Value: s.baseURI},
			"item_name": &types.AttributeValueMemberS{Value: name},
			"payload":   &types.AttributeValueMemberB{Value: payload},
		},
		ConditionExpression: aws.String("attribute_not_exists(item_name)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrAlreadyCommitted
		}
		return err
	}
	return nil
}

func (s *CommitStore) getMarker(ctx context.Context, name string) ([]byte, bool, error) {
	resp, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.itemKey(name),
	})
	if err != nil {
		return nil, false, err
	}
	if resp.Item == nil {
		return nil, false, nil
	}
	payload, ok := resp.Item["payload"].(*types.AttributeValueMemberB)
	if !ok {
		return nil, true, nil
	}
	return payload.Value, true, nil
}

// markerBlob serves committed marker payloads from memory.
type markerBlob struct {
	content []byte
}

func (b *markerBlob) Close() error { return nil }

func (b *markerBlob) Size() int64 { return int64(len(b.content)) }

func (b *markerBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *markerBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= int64(len(b.content)) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := off + length
	if end > int64(len(b.content)) {
		end = int64(len(b.content))
	}
	return io.NopCloser(bytes.NewReader(b.content[off:end])), nil
}
