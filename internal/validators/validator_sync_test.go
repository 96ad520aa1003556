package validators

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamenev/memobox/models"
)

func validMemoChange() models.OfflineChange {
	return models.OfflineChange{
		ID:        "0198a6c2-7d8a-7bbb-9c7e-000000000001",
		Operation: models.OpCreate,
		Entity:    models.EntityMemo,
		Payload: models.MemoPayload(models.Memo{
			ID:      "0198a6c2-7d8a-7bbb-9c7e-000000000002",
			Title:   "groceries",
			Content: "milk, eggs",
			Tags:    []string{"home"},
		}),
		ClientTimestamp: time.Now(),
	}
}

func TestSyncValidator_ValidChange(t *testing.T) {
	v := NewSyncValidator()
	require.NoError(t, v.Validate(context.Background(), validMemoChange()))
}

func TestSyncValidator_ChangeErrors(t *testing.T) {
	v := NewSyncValidator()

	tests := []struct {
		name    string
		mutate  func(*models.OfflineChange)
		wantErr error
	}{
		{"NoChangeID", func(c *models.OfflineChange) { c.ID = "" }, ErrInvalidChangeID},
		{"BadOperation", func(c *models.OfflineChange) { c.Operation = "upsert" }, ErrInvalidOperation},
		{"BadEntity", func(c *models.OfflineChange) { c.Entity = "tag" }, ErrInvalidEntityType},
		{"ZeroTimestamp", func(c *models.OfflineChange) { c.ClientTimestamp = time.Time{} }, ErrMissingClientTimestamp},
		{"EntityMismatch", func(c *models.OfflineChange) { c.Entity = models.EntityCategory }, ErrPayloadEntityMismatch},
		{"EmptyTitle", func(c *models.OfflineChange) { c.Payload.Memo.Title = "" }, ErrInvalidRecordFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := validMemoChange()
			tt.mutate(&change)
			assert.ErrorIs(t, v.Validate(context.Background(), change), tt.wantErr)
		})
	}
}

func TestSyncValidator_DeleteSkipsFieldRules(t *testing.T) {
	v := NewSyncValidator()

	change := validMemoChange()
	change.Operation = models.OpDelete
	change.Payload.Memo.Title = "" // would fail create/update rules

	require.NoError(t, v.Validate(context.Background(), change))
}

func TestSyncValidator_Resolution(t *testing.T) {
	v := NewSyncValidator()
	ctx := context.Background()

	res := models.ConflictResolution{ConflictID: "memo:m1", Resolution: models.ResolutionServer}
	require.NoError(t, v.Validate(ctx, res))

	res.Resolution = models.ResolutionMerge
	assert.ErrorIs(t, v.Validate(ctx, res), ErrMissingMergedData)

	merged := models.MemoPayload(models.Memo{ID: "0198a6c2-7d8a-7bbb-9c7e-000000000003", Title: "merged"})
	res.Merged = &merged
	require.NoError(t, v.Validate(ctx, res))

	res.Resolution = "pick-both"
	assert.ErrorIs(t, v.Validate(ctx, res), ErrInvalidResolution)
}

func TestSyncValidator_UnsupportedType(t *testing.T) {
	v := NewSyncValidator()
	assert.ErrorIs(t, v.Validate(context.Background(), 42), ErrUnsupportedType)
}
