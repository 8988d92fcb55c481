package sched_test

import (
	"testing"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/sched"
	"github.com/stretchr/testify/require"
)

func TestAdvanceRunsDueTasks(t *testing.T) {
	r := sched.NewRunner()
	var calls int
	r.AddTask("aging", time.Second, func(time.Time) { calls++ })

	t0 := time.Unix(1000, 0)
	r.Advance(t0) // first call always due
	require.Equal(t, 1, calls)

	r.Advance(t0.Add(500 * time.Millisecond))
	require.Equal(t, 1, calls, "not yet due")

	r.Advance(t0.Add(1500 * time.Millisecond))
	require.Equal(t, 2, calls)
}
