package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and audit timestamps of every stored
// procurement record. Timestamps are kept in UTC.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh ID stamped with the current time
func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now())
}

// NewBaseEntityAt assigns a fresh ID stamped with at
func NewBaseEntityAt(at time.Time) BaseEntity {
	at = at.UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: at, UpdatedAt: at}
}

// Touch moves UpdatedAt forward to at. Earlier times are ignored.
func (e *BaseEntity) Touch(at time.Time) {
	at = at.UTC()
	if at.After(e.UpdatedAt) {
		e.UpdatedAt = at
	}
}

// IsNew reports whether the entity has never been modified since creation
func (e *BaseEntity) IsNew() bool {
	return e.UpdatedAt.Equal(e.CreatedAt)
}
