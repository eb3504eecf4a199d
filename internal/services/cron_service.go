package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/skyreserve/flight-booking-backend/internal/database"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron          *cron.Cron
	seatSvc       *SeatService
	auditRepo     *database.PaymentAuditRepository
	retentionDays int
}

// NewCronService creates a new CronService
func NewCronService(seatSvc *SeatService, auditRepo *database.PaymentAuditRepository, retentionDays int) *CronService {
	// Cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:          c,
		seatSvc:       seatSvc,
		auditRepo:     auditRepo,
		retentionDays: retentionDays,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	// Job 1: Nightly seat reconciliation at 2 AM
	// Cron format: second minute hour day month weekday
	_, err := s.cron.AddFunc("0 0 2 * * *", s.reconcileSeatsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule seat reconciliation job: %w", err)
	}
	log.Println("Scheduled: Seat map reconciliation (Daily at 2:00 AM)")

	// Job 2: Prune old payment audits weekly on Sunday at 4 AM
	_, err = s.cron.AddFunc("0 0 4 * * 0", s.pruneAuditsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule audit retention job: %w", err)
	}
	log.Println("Scheduled: Payment audit retention (Sundays at 4:00 AM)")

	s.cron.Start()
	log.Println("Cron service started")

	return nil
}

// Stop stops all cron jobs
func (s *CronService) Stop() {
	log.Println("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Cron service stopped")
}

// reconcileSeatsJob checks seat counters against the seat maps
func (s *CronService) reconcileSeatsJob() {
	log.Println("[CRON] Starting seat reconciliation job...")
	startTime := time.Now()

	drifted, err := s.seatSvc.ReconcileAll(500)
	if err != nil {
		log.Printf("[CRON ERROR] Seat reconciliation failed: %v\n", err)
		return
	}

	duration := time.Since(startTime)
	if len(drifted) > 0 {
		log.Printf("[CRON] Seat reconciliation found %d drifted flights in %v\n", len(drifted), duration)
	} else {
		log.Printf("[CRON] Seat reconciliation clean in %v\n", duration)
	}
}

// pruneAuditsJob deletes matched payment audits past the retention window
func (s *CronService) pruneAuditsJob() {
	log.Println("[CRON] Starting payment audit retention job...")
	startTime := time.Now()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	pruned, err := s.auditRepo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		log.Printf("[CRON ERROR] Audit retention failed: %v\n", err)
		return
	}

	duration := time.Since(startTime)
	log.Printf("[CRON] Pruned %d audit entries in %v\n", pruned, duration)
}

// RunReconcileNow runs the seat reconciliation job immediately (for testing)
func (s *CronService) RunReconcileNow() {
	log.Println("[MANUAL] Running seat reconciliation now...")
	s.reconcileSeatsJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
