package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
)

type StockSource interface {
	LowStock(ctx context.Context, threshold int) ([]catalog.Product, error)
}

type Gauge interface {
	LowStock(n int)
}

type SessionSweeper interface {
	Sweep(maxIdle time.Duration) int
}

// Monitor runs periodic housekeeping: the low-stock scan and idle
// session expiry.
type Monitor struct {
	scheduler *cron.Cron
	source    StockSource
	gauge     Gauge
	threshold int
	timeout   time.Duration
	logger    *zap.Logger
}

func New(source StockSource, gauge Gauge, threshold int, logger *zap.Logger) *Monitor {
	return &Monitor{
		scheduler: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{logger}),
			cron.Recover(cronLogger{logger}),
		)),
		source:    source,
		gauge:     gauge,
		threshold: threshold,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// CheckLowStock scans the catalog once and publishes the count.
func (m *Monitor) CheckLowStock(ctx context.Context) ([]catalog.Product, error) {
	low, err := m.source.LowStock(ctx, m.threshold)
	if err != nil {
		return nil, fmt.Errorf("low stock scan: %w", err)
	}
	m.gauge.LowStock(len(low))
	for _, p := range low {
		m.logger.Warn("low stock",
			zap.String("product", p.Name),
			zap.Int("stock", p.Stock),
			zap.Int("threshold", m.threshold),
		)
	}
	return low, nil
}

func (m *Monitor) ScheduleLowStock(spec string) error {
	_, err := m.scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if _, err := m.CheckLowStock(ctx); err != nil {
			m.logger.Error("low stock job failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule low stock %q: %w", spec, err)
	}
	m.logger.Info("low stock monitor scheduled", zap.String("spec", spec), zap.Int("threshold", m.threshold))
	return nil
}

func (m *Monitor) ScheduleSessionSweep(spec string, sessions SessionSweeper, maxIdle time.Duration) error {
	_, err := m.scheduler.AddFunc(spec, func() {
		sessions.Sweep(maxIdle)
	})
	if err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", spec, err)
	}
	return nil
}

func (m *Monitor) Start() {
	m.scheduler.Start()
}

// Stop halts the scheduler and returns a context done when running jobs finish.
func (m *Monitor) Stop() context.Context {
	return m.scheduler.Stop()
}

type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
