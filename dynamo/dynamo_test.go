package dynamo_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable keeps items keyed by PK and SK.
type fakeTable struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
	table string
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(m map[string]types.AttributeValue) string {
	pk := m["PK"].(*types.AttributeValueMemberS).Value
	sk := m["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.table = aws.ToString(in.TableName)
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.table = aws.ToString(in.TableName)
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestStoreRoundTrip(t *testing.T) {
	api := newFakeTable()
	store := dynamo.New(api, "phenotree", "s-1")
	ctx := context.Background()

	_, err := store.Get(ctx, phenotree.KeyHistory)
	assert.ErrorIs(t, err, phenotree.ErrNotFound)

	require.NoError(t, store.Set(ctx, phenotree.KeyHistory, []byte(`[]`)))
	require.NoError(t, store.Set(ctx, phenotree.KeyHistory, []byte(`[{"speaker":"user","text":"hi"}]`)))
	assert.Equal(t, "phenotree", api.table)

	got, err := store.Get(ctx, phenotree.KeyHistory)
	require.NoError(t, err)
	assert.Equal(t, `[{"speaker":"user","text":"hi"}]`, string(got))

	item := api.items["SESSION#s-1|SLOT#"+phenotree.KeyHistory]
	require.NotNil(t, item)
	assert.IsType(t, &types.AttributeValueMemberB{}, item["Value"])
	assert.IsType(t, &types.AttributeValueMemberN{}, item["UpdatedAt"])

	require.NoError(t, store.Remove(ctx, phenotree.KeyHistory))
	require.NoError(t, store.Remove(ctx, phenotree.KeyHistory))
	_, err = store.Get(ctx, phenotree.KeyHistory)
	assert.ErrorIs(t, err, phenotree.ErrNotFound)
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	api := newFakeTable()
	a := dynamo.New(api, "phenotree", "a")
	b := dynamo.New(api, "phenotree", "b")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, phenotree.KeyPosition, []byte(`{"x":5,"y":5}`)))
	_, err := b.Get(ctx, phenotree.KeyPosition)
	assert.ErrorIs(t, err, phenotree.ErrNotFound)
}

func TestStoreWrapsErrors(t *testing.T) {
	api := newFakeTable()
	api.err = errors.New("ProvisionedThroughputExceededException")
	store := dynamo.New(api, "phenotree", "s")
	ctx := context.Background()

	_, err := store.Get(ctx, phenotree.KeyGraph)
	assert.ErrorIs(t, err, api.err)
	assert.NotErrorIs(t, err, phenotree.ErrNotFound)
	assert.ErrorIs(t, store.Set(ctx, phenotree.KeyGraph, []byte("{}")), api.err)
	assert.ErrorIs(t, store.Remove(ctx, phenotree.KeyGraph), api.err)
}

func TestPersistenceOnDynamo(t *testing.T) {
	store := dynamo.New(newFakeTable(), "phenotree", "s")
	p := phenotree.NewPersistence(store)
	ctx := context.Background()

	pos := phenotree.Position{X: 120, Y: 44}
	require.NoError(t, p.SavePosition(ctx, pos))
	got, err := p.LoadPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, pos, got)

	require.NoError(t, p.Clear(ctx))
	got, err = p.LoadPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, phenotree.DefaultPanelPosition, got)
}
