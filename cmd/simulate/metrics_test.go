package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOperationMetrics(t *testing.T) {
	var om OperationMetrics
	for i := 1; i <= 20; i++ {
		om.Record(time.Duration(i)*time.Millisecond, i%4 != 0, i%4 == 0 && i%8 == 0)
	}

	assert.EqualValues(t, 20, om.Total)
	assert.EqualValues(t, 15, om.Success)
	assert.EqualValues(t, 2, om.Conflict)
	assert.EqualValues(t, 3, om.Error)

	avg, min, max, p50, p95 := om.Stats()
	assert.Equal(t, 10500*time.Microsecond, avg)
	assert.Equal(t, time.Millisecond, min)
	assert.Equal(t, 20*time.Millisecond, max)
	assert.Equal(t, 11*time.Millisecond, p50)
	assert.Equal(t, 20*time.Millisecond, p95)
}

func TestOperationMetrics_Empty(t *testing.T) {
	var om OperationMetrics
	avg, min, max, p50, p95 := om.Stats()
	assert.Zero(t, avg+min+max+p50+p95)
}

func TestDataPool_TakeAppointment(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dp := &DataPool{}

	_, ok := dp.TakeAppointment(rng)
	assert.False(t, ok)

	a, b := uuid.New(), uuid.New()
	dp.AddAppointment(a)
	dp.AddAppointment(b)

	first, ok := dp.TakeAppointment(rng)
	assert.True(t, ok)
	second, ok := dp.TakeAppointment(rng)
	assert.True(t, ok)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, []uuid.UUID{first, second})

	_, ok = dp.TakeAppointment(rng)
	assert.False(t, ok)
}
