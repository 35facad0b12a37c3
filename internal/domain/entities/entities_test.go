package entities

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-10-14"`), &d))
	assert.Equal(t, "2026-10-14", d.String())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-10-14"`, string(out))

	// Timestamps collapse to their calendar date
	require.NoError(t, json.Unmarshal([]byte(`"2026-10-14T23:10:00Z"`), &d))
	assert.Equal(t, "2026-10-14", d.String())

	assert.Error(t, json.Unmarshal([]byte(`"14/10/2026"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20261014`), &d))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)))
	assert.Equal(t, "2026-01-02", d.String())

	require.NoError(t, d.Scan([]byte("2026-02-03")))
	assert.Equal(t, "2026-02-03", d.String())

	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2026-02-03", v)
}

func TestTask_CanBeModifiedBy(t *testing.T) {
	task := Task{UserID: 1}
	assert.True(t, task.CanBeModifiedBy(1, UserRoleUser))
	assert.False(t, task.CanBeModifiedBy(2, UserRoleUser))
	assert.True(t, task.CanBeModifiedBy(2, UserRoleAdmin))
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	past := NewDate(now.AddDate(0, 0, -1))
	today := NewDate(now)

	assert.True(t, (&Task{DueDate: &past}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &today}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &past, Completed: true}).IsOverdue(now))
	assert.False(t, (&Task{}).IsOverdue(now))
}

func TestAttachment_CanBeDeletedBy(t *testing.T) {
	owner := int64(5)
	a := Attachment{UserID: 3}

	assert.True(t, a.CanBeDeletedBy(3, UserRoleUser, nil))
	assert.True(t, a.CanBeDeletedBy(5, UserRoleUser, &owner))
	assert.True(t, a.CanBeDeletedBy(9, UserRoleAdmin, nil))
	assert.False(t, a.CanBeDeletedBy(9, UserRoleUser, &owner))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, errors.Is(ErrUsernameTaken, ErrValidation))
	assert.True(t, errors.Is(ErrTokenExpired, ErrUnauthenticated))
	assert.True(t, errors.Is(ErrTaskNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrPermissionDenied, ErrNotFound))

	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())
	verr.Add("title", "title is required")
	assert.True(t, errors.Is(verr.OrNil(), ErrValidation))
	assert.Contains(t, verr.Error(), "title: title is required")
}
