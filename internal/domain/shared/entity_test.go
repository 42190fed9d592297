package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEntity(t *testing.T) {
	e := NewBaseEntity()

	assert.NotEqual(t, uuid.Nil, e.GetID())
	assert.False(t, e.GetCreatedAt().IsZero())
	assert.Equal(t, e.GetCreatedAt(), e.GetUpdatedAt())
}

func TestBaseEntity_Touch(t *testing.T) {
	e := NewBaseEntity()
	e.UpdatedAt = time.Now().Add(-time.Hour)

	e.Touch()

	assert.WithinDuration(t, time.Now(), e.GetUpdatedAt(), time.Second)
	assert.True(t, e.GetUpdatedAt().After(e.GetCreatedAt().Add(-time.Second)))
}
