package resource

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestRequest_OlderThan(t *testing.T) {
	mock := clock.NewMock()
	rq := NewRequest(New(1), mock)

	require.False(t, rq.OlderThan(5*time.Second))

	mock.Add(5 * time.Second)
	require.False(t, rq.OlderThan(5*time.Second)) // strictly greater than

	mock.Add(time.Millisecond)
	require.True(t, rq.OlderThan(5*time.Second))
	require.False(t, rq.OlderThan(10*time.Second))
}

func TestRequest_LateGrantKeepsTimestamp(t *testing.T) {
	mock := clock.NewMock()
	res := New(1)
	require.True(t, res.AcquireIfFree(2))

	rq := NewRequest(res, mock)
	mock.Add(6 * time.Second)

	// granted only now, but the age still counts from creation
	res.Release()
	require.True(t, res.AcquireIfFree(1))
	require.True(t, rq.OlderThan(5*time.Second))

	mock.Add(5 * time.Second)
	require.True(t, rq.OlderThan(10*time.Second))
}
