package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakeCounter struct{ n int }

func (f *fakeCounter) ClientCount() int { return f.n }

func TestHealthService_AllChecksPass(t *testing.T) {
	svc := NewHealthService(&fakePinger{}, &fakeCounter{n: 3}, "1.2.3", discardLogger())

	status := svc.Check(context.Background())
	require.NotNil(t, status)
	assert.True(t, status.Healthy())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, "ok", status.Checks["database"])
	assert.Equal(t, "ok", status.Checks["catalog"])
	assert.Equal(t, 3, status.ConnectedClients)
	assert.Positive(t, status.CatalogSize)
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthService_DatabaseNotConfigured(t *testing.T) {
	svc := NewHealthService(nil, nil, "", discardLogger())

	status := svc.Check(context.Background())
	assert.False(t, status.Healthy())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "not configured", status.Checks["database"])
	assert.Zero(t, status.ConnectedClients)
}

func TestHealthService_DatabasePingFails(t *testing.T) {
	svc := NewHealthService(&fakePinger{err: errors.New("connection refused")}, nil, "", discardLogger())

	status := svc.Check(context.Background())
	assert.False(t, status.Healthy())
	assert.Equal(t, "connection refused", status.Checks["database"])
	assert.Equal(t, "ok", status.Checks["catalog"])
}
