package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAvailableSeatsRange(t *testing.T) {
	for reserved := -1; reserved <= 15; reserved++ {
		seats := AvailableSeats(10, reserved)
		assert.GreaterOrEqual(t, seats, 0)
		assert.LessOrEqual(t, seats, 10)
	}
	assert.Equal(t, 0, AvailableSeats(2, 5))
}

func TestClassroomCapacityScenario(t *testing.T) {
	c := Classroom{Capacity: 2}
	assert.Equal(t, 2, c.AvailableSeats())

	c.ReservedSeats = 1
	assert.Equal(t, 1, c.AvailableSeats())
	assert.False(t, c.IsFull())

	c.ReservedSeats = 2
	assert.Equal(t, 0, c.AvailableSeats())
	assert.True(t, c.IsFull())
}

func TestEnrollmentStatusReservesSeat(t *testing.T) {
	assert.True(t, EnrollmentPending.ReservesSeat())
	assert.True(t, EnrollmentConfirmed.ReservesSeat())
	assert.False(t, EnrollmentCancelled.ReservesSeat())
}

func TestClassroomApplyDefaults(t *testing.T) {
	c := Classroom{}
	c.ApplyDefaults()
	assert.Equal(t, DefaultClassroomDuration, c.DurationMinutes)
	assert.Equal(t, DefaultClassroomCapacity, c.Capacity)
	assert.NotNil(t, c.Tags)
}

func TestNewClassroomDetail(t *testing.T) {
	now := time.Now()
	next := &Session{ID: 9, Status: SessionScheduled, StartsAt: now.Add(time.Hour)}
	detail := NewClassroomDetail(Classroom{ID: 1, Capacity: 3, ReservedSeats: 3}, next, now, 5*time.Minute)

	assert.Equal(t, 0, detail.AvailableSeats)
	assert.True(t, detail.IsFull)
	if assert.NotNil(t, detail.NextSession) {
		assert.Equal(t, int64(9), detail.NextSession.ID)
		assert.True(t, detail.NextSession.IsJoinable)
	}

	empty := NewClassroomDetail(Classroom{Capacity: 3}, nil, now, 5*time.Minute)
	assert.Nil(t, empty.NextSession)
}
