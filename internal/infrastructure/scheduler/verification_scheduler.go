package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/pim/backend/internal/application/sync"
)

// TenantProvider provides the tenants to verify on each cycle
type TenantProvider interface {
	GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BatchVerifier runs one budgeted verification sweep for a tenant
type BatchVerifier interface {
	VerifyBatch(ctx context.Context, tenantID uuid.UUID, budget time.Duration, pageSize int) (*appsync.BatchResult, error)
}

// VerificationSchedulerConfig holds configuration for the verification scheduler
type VerificationSchedulerConfig struct {
	// CheckInterval is how often to check whether a tenant is due
	CheckInterval time.Duration

	// VerifyInterval is how long to wait between sweeps for the same tenant
	VerifyInterval time.Duration

	// Budget is the wall clock budget handed to each tenant sweep
	Budget time.Duration

	// PageSize is the product page size used while walking the catalog
	PageSize int
}

// DefaultVerificationSchedulerConfig returns default configuration
func DefaultVerificationSchedulerConfig() VerificationSchedulerConfig {
	return VerificationSchedulerConfig{
		CheckInterval:  time.Minute,
		VerifyInterval: 15 * time.Minute,
		Budget:         5 * time.Minute,
		PageSize:       100,
	}
}

// VerificationScheduler periodically sweeps every active tenant's catalog
// and verifies each product-store pair against the remote stores. Sweeps
// for different tenants run sequentially; a tenant is never swept twice
// concurrently.
type VerificationScheduler struct {
	config         VerificationSchedulerConfig
	verifier       BatchVerifier
	tenantProvider TenantProvider
	logger         *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Track last sweep time per tenant to avoid re-sweeping too early
	lastSweepMu sync.RWMutex
	lastSweep   map[uuid.UUID]time.Time
}

// NewVerificationScheduler creates a new verification scheduler
func NewVerificationScheduler(
	config VerificationSchedulerConfig,
	verifier BatchVerifier,
	tenantProvider TenantProvider,
	logger *zap.Logger,
) *VerificationScheduler {
	return &VerificationScheduler{
		config:         config,
		verifier:       verifier,
		tenantProvider: tenantProvider,
		logger:         logger,
		lastSweep:      make(map[uuid.UUID]time.Time),
	}
}

// Start starts the scheduler
func (s *VerificationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Verification scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Duration("verify_interval", s.config.VerifyInterval),
		zap.Duration("budget", s.config.Budget),
	)

	return nil
}

// Stop stops the scheduler and waits for the in-flight sweep to finish
func (s *VerificationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Verification scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop periodically checks which tenants are due for a sweep
func (s *VerificationScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.checkAndSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndSweep(ctx)
		}
	}
}

// checkAndSweep sweeps every tenant whose verify interval has elapsed
func (s *VerificationScheduler) checkAndSweep(ctx context.Context) {
	tenantIDs, err := s.tenantProvider.GetAllActiveTenantIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to get tenant IDs for verification", zap.Error(err))
		return
	}

	if len(tenantIDs) == 0 {
		s.logger.Debug("No active tenants to verify")
		return
	}

	now := time.Now()
	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return
		}
		if !s.isDue(tenantID, now) {
			continue
		}
		s.sweepTenant(ctx, tenantID)
	}
}

// isDue returns true when the tenant's verify interval has elapsed
func (s *VerificationScheduler) isDue(tenantID uuid.UUID, now time.Time) bool {
	s.lastSweepMu.RLock()
	last, ok := s.lastSweep[tenantID]
	s.lastSweepMu.RUnlock()
	return !ok || now.Sub(last) >= s.config.VerifyInterval
}

// sweepTenant runs one budgeted verification sweep for a single tenant
func (s *VerificationScheduler) sweepTenant(ctx context.Context, tenantID uuid.UUID) {
	s.lastSweepMu.Lock()
	s.lastSweep[tenantID] = time.Now()
	s.lastSweepMu.Unlock()

	start := time.Now()
	result, err := s.verifier.VerifyBatch(ctx, tenantID, s.config.Budget, s.config.PageSize)
	if err != nil {
		s.logger.Error("Verification sweep failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Verification sweep finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("verified", result.Verified),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("exhausted", result.Exhausted),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// TriggerManualSweep runs a sweep for one tenant outside the schedule
func (s *VerificationScheduler) TriggerManualSweep(ctx context.Context, tenantID uuid.UUID) (*appsync.BatchResult, error) {
	s.lastSweepMu.Lock()
	s.lastSweep[tenantID] = time.Now()
	s.lastSweepMu.Unlock()

	return s.verifier.VerifyBatch(ctx, tenantID, s.config.Budget, s.config.PageSize)
}
