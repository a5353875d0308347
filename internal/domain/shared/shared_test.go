package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaseEntity(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	created := time.Date(2025, 3, 10, 4, 0, 0, 0, bogota)

	e := NewBaseEntityAt(created)
	assert.NotEqual(t, [16]byte{}, [16]byte(e.ID))
	assert.Equal(t, time.UTC, e.CreatedAt.Location())
	assert.True(t, e.IsNew())

	e.Touch(created.Add(-time.Hour))
	assert.True(t, e.IsNew(), "earlier times do not move UpdatedAt")

	e.Touch(created.Add(time.Minute))
	assert.False(t, e.IsNew())
	assert.Equal(t, created.Add(time.Minute).UTC(), e.UpdatedAt)
}

func TestDomainError(t *testing.T) {
	detailed := ErrNotFound.WithMessage("no successful sync run yet")

	assert.Equal(t, "no successful sync run yet", detailed.Error())
	assert.Equal(t, "Resource not found", ErrNotFound.Error())
	assert.True(t, errors.Is(detailed, ErrNotFound))
	assert.True(t, errors.Is(fmt.Errorf("last run: %w", detailed), ErrNotFound))
	assert.False(t, errors.Is(detailed, ErrAlreadyExists))
	assert.False(t, errors.Is(errors.New("NOT_FOUND"), ErrNotFound))

	var domainErr *DomainError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", NewDomainError("INVALID_NIT", "NIT cannot be empty")), &domainErr))
	assert.Equal(t, "INVALID_NIT", domainErr.Code)
}
