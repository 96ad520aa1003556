package validators

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mkamenev/memobox/models"
)

// memoRules and categoryRules bound the business fields accepted from
// clients; the ledger fields (SyncVersion, UpdatedAt, Deleted) are checked
// structurally by the protocol handler itself.
type memoRules struct {
	ID      string   `validate:"required,uuid"`
	Title   string   `validate:"required,max=500"`
	Content string   `validate:"max=1000000"`
	Tags    []string `validate:"max=100,dive,required,max=100"`
}

type categoryRules struct {
	Name     string `validate:"required,max=200"`
	Color    string `validate:"omitempty,hexcolor"`
	Position int    `validate:"gte=0"`
}

// SyncValidator validates offline changes and conflict resolutions.
type SyncValidator struct {
	validate *validator.Validate
}

func NewSyncValidator() Validator {
	return &SyncValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (v *SyncValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.OfflineChange:
		return v.validateChange(ctx, value)
	case *models.OfflineChange:
		return v.validateChange(ctx, *value)

	case models.ConflictResolution:
		return v.validateResolution(ctx, value)
	case *models.ConflictResolution:
		return v.validateResolution(ctx, *value)

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, obj)
	}
}

func (v *SyncValidator) validateChange(ctx context.Context, change models.OfflineChange) error {
	if change.ID == "" {
		return ErrInvalidChangeID
	}
	if !change.Operation.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOperation, change.Operation)
	}
	if !change.Entity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntityType, change.Entity)
	}
	if change.ClientTimestamp.IsZero() {
		return ErrMissingClientTimestamp
	}
	if change.Entity != change.Payload.Entity {
		return ErrPayloadEntityMismatch
	}
	if err := change.Payload.Check(); err != nil {
		return err
	}
	if change.Payload.RecordID() == "" {
		return ErrMissingRecordID
	}

	// Deletes only need identity; field rules apply to creates and updates.
	if change.Operation == models.OpDelete {
		return nil
	}

	return v.validatePayloadFields(ctx, change.Payload)
}

func (v *SyncValidator) validateResolution(ctx context.Context, res models.ConflictResolution) error {
	if res.ConflictID == "" {
		return ErrInvalidChangeID
	}
	if !res.Resolution.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidResolution, res.Resolution)
	}
	if res.Resolution == models.ResolutionMerge {
		if res.Merged == nil {
			return ErrMissingMergedData
		}
		if err := res.Merged.Check(); err != nil {
			return err
		}
		return v.validatePayloadFields(ctx, *res.Merged)
	}

	return nil
}

func (v *SyncValidator) validatePayloadFields(ctx context.Context, payload models.RecordPayload) error {
	switch payload.Entity {
	case models.EntityMemo:
		rules := memoRules{
			ID:      payload.Memo.ID,
			Title:   payload.Memo.Title,
			Content: payload.Memo.Content,
			Tags:    payload.Memo.Tags,
		}
		if err := v.validate.StructCtx(ctx, rules); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRecordFields, err)
		}
	case models.EntityCategory:
		rules := categoryRules{
			Name:     payload.Category.Name,
			Color:    payload.Category.Color,
			Position: payload.Category.Position,
		}
		if err := v.validate.StructCtx(ctx, rules); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRecordFields, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEntityType, payload.Entity)
	}

	return nil
}
