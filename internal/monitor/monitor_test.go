package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
)

type gauge struct{ n atomic.Int64 }

func (g *gauge) LowStock(n int) { g.n.Store(int64(n)) }

type brokenSource struct{}

func (brokenSource) LowStock(context.Context, int) ([]catalog.Product, error) {
	return nil, errors.New("db down")
}

type sweeper struct{ calls atomic.Int32 }

func (s *sweeper) Sweep(time.Duration) int {
	s.calls.Add(1)
	return 0
}

func newCatalog(t *testing.T) *catalog.MemoryCatalog {
	t.Helper()
	c, err := catalog.NewMemoryCatalog(
		catalog.Product{Name: "Widget", Price: decimal.NewFromInt(10), Stock: 2},
		catalog.Product{Name: "Gadget", Price: decimal.NewFromInt(3), Stock: 50},
		catalog.Product{Name: "Bolt", Price: decimal.NewFromInt(1), Stock: 0},
	)
	require.NoError(t, err)
	return c
}

func TestCheckLowStock(t *testing.T) {
	g := &gauge{}
	m := New(newCatalog(t), g, 10, zaptest.NewLogger(t))

	low, err := m.CheckLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Bolt", low[0].Name)
	assert.Equal(t, int64(2), g.n.Load())
}

func TestCheckLowStock_Error(t *testing.T) {
	g := &gauge{}
	g.n.Store(7)
	m := New(brokenSource{}, g, 10, zaptest.NewLogger(t))

	_, err := m.CheckLowStock(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int64(7), g.n.Load(), "gauge keeps the last good value")
}

func TestSchedule_InvalidSpec(t *testing.T) {
	m := New(newCatalog(t), &gauge{}, 10, zaptest.NewLogger(t))
	assert.Error(t, m.ScheduleLowStock("not a schedule"))
	assert.Error(t, m.ScheduleSessionSweep("", &sweeper{}, time.Minute))
}

func TestScheduledJobsRun(t *testing.T) {
	g := &gauge{}
	s := &sweeper{}
	m := New(newCatalog(t), g, 10, zaptest.NewLogger(t))
	require.NoError(t, m.ScheduleLowStock("@every 1s"))
	require.NoError(t, m.ScheduleSessionSweep("@every 1s", s, time.Minute))

	m.Start()
	defer func() { <-m.Stop().Done() }()

	assert.Eventually(t, func() bool {
		return g.n.Load() == 2 && s.calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}
