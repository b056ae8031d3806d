package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/internal/store"
)

// ReconcileEnqueuer hands reconciliation jobs to the background queue.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, organizationID string) error
}

// ReconcileScheduler periodically enqueues one reconciliation sweep per
// organization with documents.
type ReconcileScheduler struct {
	scheduler *gocron.Scheduler
	store     store.MetadataStore
	enqueuer  ReconcileEnqueuer
	cronExpr  string
}

func NewReconcileScheduler(metadataStore store.MetadataStore, enqueuer ReconcileEnqueuer, cronExpr string) *ReconcileScheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &ReconcileScheduler{
		scheduler: s,
		store:     metadataStore,
		enqueuer:  enqueuer,
		cronExpr:  cronExpr,
	}
}

// Start registers the sweep job and starts the scheduler asynchronously.
func (s *ReconcileScheduler) Start() error {
	_, err := s.scheduler.Cron(s.cronExpr).Tag("reconcile-sweep").Do(s.sweep)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	logger.Info("Reconciliation scheduler started", "cron", s.cronExpr)
	return nil
}

// Stop stops the scheduler
func (s *ReconcileScheduler) Stop() {
	s.scheduler.Stop()
}

func (s *ReconcileScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	orgs, err := s.store.ListOrganizations(ctx)
	if err != nil {
		logger.Error("Failed to list organizations for reconciliation", "error", err)
		return
	}

	for _, org := range orgs {
		if err := s.enqueuer.EnqueueReconcile(ctx, org); err != nil {
			logger.Error("Failed to enqueue reconciliation",
				"organization_id", org, "error", err)
		}
	}
	logger.Info("Reconciliation sweeps enqueued", "organizations", len(orgs))
}
