package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/receipt"
)

// Ledger persists committed transactions.
type Ledger interface {
	Save(ctx context.Context, tx checkout.Transaction) error
}

type SalePublisher interface {
	PublishSaleCompleted(ctx context.Context, meta events.EventMeta, tx checkout.Transaction) error
}

type Recorder interface {
	SaleCompleted(tx checkout.Transaction)
	CheckoutFailed(reason string)
	SessionsOpen(n int)
}

type Config struct {
	Terminal string
	TaxRate  decimal.Decimal
}

// Result is what a successful checkout hands back to the till.
type Result struct {
	Transaction checkout.Transaction `json:"transaction"`
	Receipt     receipt.Receipt      `json:"receipt"`
}

type Service struct {
	catalog   catalog.Catalog
	engine    *checkout.Engine
	receipts  *receipt.Builder
	registry  *Registry
	ledger    Ledger
	publisher SalePublisher
	metrics   Recorder
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

func WithLedger(l Ledger) Option             { return func(s *Service) { s.ledger = l } }
func WithPublisher(p SalePublisher) Option   { return func(s *Service) { s.publisher = p } }
func WithRecorder(r Recorder) Option         { return func(s *Service) { s.metrics = r } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

func NewService(c catalog.Catalog, engine *checkout.Engine, receipts *receipt.Builder, cfg Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if cfg.TaxRate.IsNegative() {
		return nil, fmt.Errorf("terminal %s: %w", cfg.Terminal, checkout.ErrInvalidTaxRate)
	}
	if strings.TrimSpace(cfg.Terminal) == "" {
		return nil, errors.New("terminal id is required")
	}
	s := &Service{
		catalog:   c,
		engine:    engine,
		receipts:  receipts,
		registry:  NewRegistry(),
		publisher: events.NopPublisher{},
		metrics:   nopRecorder{},
		cfg:       cfg,
		logger:    logger.With(zap.String("terminal", cfg.Terminal)),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) TaxRate() decimal.Decimal { return s.cfg.TaxRate }

func (s *Service) Open(operator string) Summary {
	sess := newSession(s.newID(), operator, s.cfg.Terminal, cart.New(s.catalog), s.now())
	s.registry.Put(sess)
	s.metrics.SessionsOpen(s.registry.Len())
	s.logger.Info("session opened", zap.String("session_id", sess.ID), zap.String("operator", operator))
	return sess.summary(s.cfg.TaxRate)
}

func (s *Service) Summary(id string) (Summary, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return Summary{}, err
	}
	return sess.summary(s.cfg.TaxRate), nil
}

func (s *Service) AddByName(ctx context.Context, id, name string, quantity int) (cart.Line, error) {
	return s.add(ctx, id, quantity, func() (catalog.Product, error) {
		return s.catalog.FindByName(ctx, strings.TrimSpace(name))
	})
}

func (s *Service) AddByBarcode(ctx context.Context, id, barcode string, quantity int) (cart.Line, error) {
	return s.add(ctx, id, quantity, func() (catalog.Product, error) {
		return s.catalog.FindByBarcode(ctx, barcode)
	})
}

func (s *Service) add(ctx context.Context, id string, quantity int, find func() (catalog.Product, error)) (cart.Line, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return cart.Line{}, err
	}

	var line cart.Line
	err = sess.mutate(s.now(), func(c *cart.Cart) error {
		p, err := find()
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("%w: %v", cart.ErrInvalidProduct, err)
			}
			return err
		}
		line, err = c.Add(ctx, &p, quantity)
		return err
	})
	return line, err
}

func (s *Service) Remove(id, name string) error {
	sess, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	return sess.mutate(s.now(), func(c *cart.Cart) error {
		c.Remove(name)
		return nil
	})
}

func (s *Service) Clear(id string) error {
	sess, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	return sess.mutate(s.now(), func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// Checkout commits the session's cart. Once stock is deducted the sale
// stands: ledger and event failures are logged and do not fail the call.
func (s *Service) Checkout(ctx context.Context, id string) (Result, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return Result{}, err
	}

	var tx checkout.Transaction
	err = sess.mutate(s.now(), func(c *cart.Cart) error {
		committed, err := s.engine.Checkout(ctx, c, s.cfg.TaxRate)
		if err != nil {
			return err
		}
		committed.Terminal = sess.Terminal
		committed.Operator = sess.Operator
		tx = committed

		sess.state = StateCommitted
		sess.transactionID = tx.ID
		c.Clear()
		return nil
	})
	if err != nil {
		s.metrics.CheckoutFailed(failureReason(err))
		s.logger.Info("checkout rejected", zap.String("session_id", id), zap.Error(err))
		return Result{}, err
	}

	s.metrics.SaleCompleted(tx)
	s.afterCommit(ctx, sess, tx)

	r, err := s.receipts.Build(tx)
	if err != nil {
		return Result{}, fmt.Errorf("build receipt %s: %w", tx.ID, err)
	}
	return Result{Transaction: tx, Receipt: r}, nil
}

func (s *Service) afterCommit(ctx context.Context, sess *Session, tx checkout.Transaction) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With(zap.String("transaction_id", tx.ID), zap.String("session_id", sess.ID))

	if s.ledger != nil {
		if err := s.ledger.Save(ctx, tx); err != nil {
			log.Error("record sale failed", zap.Error(err))
		}
	}
	meta := events.EventMeta{CorrelationID: sess.ID, PartitionKey: tx.Terminal}
	if err := s.publisher.PublishSaleCompleted(ctx, meta, tx); err != nil {
		log.Error("publish sale completed failed", zap.Error(err))
	}
}

// Sweep expires sessions idle for longer than maxIdle.
func (s *Service) Sweep(maxIdle time.Duration) int {
	n := s.registry.Sweep(s.now().Add(-maxIdle))
	if n > 0 {
		s.logger.Info("idle sessions expired", zap.Int("count", n))
	}
	s.metrics.SessionsOpen(s.registry.Len())
	return n
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, cart.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, checkout.ErrStockConflict):
		return "stock_conflict"
	case errors.Is(err, ErrSessionCommitted):
		return "already_committed"
	default:
		return "error"
	}
}

type nopRecorder struct{}

func (nopRecorder) SaleCompleted(checkout.Transaction) {}
func (nopRecorder) CheckoutFailed(string)              {}
func (nopRecorder) SessionsOpen(int)                   {}
