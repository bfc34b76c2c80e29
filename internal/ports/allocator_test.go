package ports

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	busy   map[int]bool
	probes []int
}

func (f *fakeProber) InUse(_ context.Context, _ string, port int) bool {
	f.probes = append(f.probes, port)
	return f.busy[port]
}

func TestAllocateAll_CollidingPreferences(t *testing.T) {
	prober := &fakeProber{busy: map[int]bool{7861: true}}
	alloc := NewAllocator("localhost", prober, 256)

	got := alloc.AllocateAll(context.Background(), []Request{
		{Service: "A", Preferred: 7861},
		{Service: "B", Preferred: 7861},
		{Service: "C", Preferred: 7862},
	})

	require.Len(t, got, 3)
	for _, a := range got {
		require.NoError(t, a.Err)
	}
	assert.Equal(t, 7862, got[0].Port)
	assert.Equal(t, 7863, got[1].Port)
	assert.Equal(t, 7864, got[2].Port)
	assert.True(t, got[0].Shifted())
	assert.Equal(t, map[int]string{7862: "A", 7863: "B", 7864: "C"}, alloc.Claimed())
}

func TestAllocateAll_DistinctPortsForIdenticalPreferences(t *testing.T) {
	alloc := NewAllocator("localhost", &fakeProber{busy: map[int]bool{}}, 256)

	var reqs []Request
	for i := 0; i < 20; i++ {
		reqs = append(reqs, Request{Service: string(rune('a' + i)), Preferred: 9000 + i%3})
	}

	seen := make(map[int]bool)
	for _, a := range alloc.AllocateAll(context.Background(), reqs) {
		require.NoError(t, a.Err)
		assert.False(t, seen[a.Port], "port %d assigned twice", a.Port)
		seen[a.Port] = true
	}
	assert.Len(t, seen, 20)
}

func TestAllocate_PreferredFree(t *testing.T) {
	prober := &fakeProber{}
	alloc := NewAllocator("localhost", prober, 10)

	port, err := alloc.Allocate(context.Background(), "api", 8080)
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
	assert.Equal(t, []int{8080}, prober.probes)
}

func TestAllocate_Exhausted(t *testing.T) {
	busy := map[int]bool{}
	for p := 8000; p < 8010; p++ {
		busy[p] = true
	}
	alloc := NewAllocator("localhost", &fakeProber{busy: busy}, 5)

	_, err := alloc.Allocate(context.Background(), "api", 8000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPortAllocationExhausted))

	// Exhaustion of one service does not affect the next.
	got := alloc.AllocateAll(context.Background(), []Request{
		{Service: "api", Preferred: 8000},
		{Service: "ui", Preferred: 8010},
	})
	assert.Error(t, got[0].Err)
	assert.NoError(t, got[1].Err)
	assert.Equal(t, 8010, got[1].Port)
}

func TestAllocate_StopsAtPortCeiling(t *testing.T) {
	alloc := NewAllocator("localhost", &fakeProber{busy: map[int]bool{65535: true}}, 100)

	_, err := alloc.Allocate(context.Background(), "edge", 65535)
	assert.True(t, errors.Is(err, ErrPortAllocationExhausted))

	_, err = alloc.Allocate(context.Background(), "bad", 0)
	assert.Error(t, err)
}

func TestTCPProber_DetectsBoundPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	prober := NewTCPProber(0)
	assert.True(t, prober.InUse(context.Background(), "127.0.0.1", port))
	assert.True(t, prober.Listening(context.Background(), "127.0.0.1", port))

	alloc := NewAllocator("127.0.0.1", prober, 50)
	got, err := alloc.Allocate(context.Background(), "svc", port)
	require.NoError(t, err)
	assert.Greater(t, got, port)
}

func TestClaim_SkipsPortWithoutProbing(t *testing.T) {
	prober := &fakeProber{busy: map[int]bool{}}
	alloc := NewAllocator("localhost", prober, 256)
	alloc.Claim("running", 7861)
	alloc.Claim("ignored", 0)

	port, err := alloc.Allocate(context.Background(), "new", 7861)
	require.NoError(t, err)
	assert.Equal(t, 7862, port)
	assert.Equal(t, []int{7862}, prober.probes)
	assert.Equal(t, map[int]string{7861: "running", 7862: "new"}, alloc.Claimed())
}
