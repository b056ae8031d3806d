package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/services"
)

const (
	TaskIndexDocument = "document:index"
	TaskReconcileOrg  = "vectors:reconcile"
)

type IndexDocumentPayload struct {
	DocumentID     string `json:"document_id"`
	OrganizationID string `json:"organization_id"`
}

type ReconcilePayload struct {
	OrganizationID string `json:"organization_id"`
}

// Task creators
func NewIndexDocumentTask(documentID, organizationID string, maxRetry int) (*asynq.Task, error) {
	payload, err := json.Marshal(IndexDocumentPayload{
		DocumentID:     documentID,
		OrganizationID: organizationID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIndexDocument,
		payload,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

func NewReconcileTask(organizationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{OrganizationID: organizationID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskReconcileOrg,
		payload,
		asynq.MaxRetry(1),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("low"),
	), nil
}

// Client enqueues retrieval pipeline jobs. It satisfies
// services.IndexEnqueuer and services.ReconcileEnqueuer.
type Client struct {
	client   *asynq.Client
	maxRetry int
}

func NewClient(redisOpt asynq.RedisClientOpt, indexMaxRetry int) *Client {
	return &Client{
		client:   asynq.NewClient(redisOpt),
		maxRetry: indexMaxRetry,
	}
}

func (c *Client) Close() error { return c.client.Close() }

func (c *Client) EnqueueIndexDocument(ctx context.Context, documentID, organizationID string) error {
	task, err := NewIndexDocumentTask(documentID, organizationID, c.maxRetry)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}
	logger.Debug("Indexing task enqueued", "task_id", info.ID, "document_id", documentID)
	return nil
}

func (c *Client) EnqueueReconcile(ctx context.Context, organizationID string) error {
	task, err := NewReconcileTask(organizationID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

// Task handlers
type TaskProcessor struct {
	indexer    *services.Indexer
	reconciler *services.Reconciler
	analytics  *services.Analytics
}

func NewTaskProcessor(indexer *services.Indexer, reconciler *services.Reconciler, analytics *services.Analytics) *TaskProcessor {
	return &TaskProcessor{
		indexer:    indexer,
		reconciler: reconciler,
		analytics:  analytics,
	}
}

func (p *TaskProcessor) HandleIndexDocument(ctx context.Context, t *asynq.Task) error {
	var payload IndexDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Indexing document",
		"document_id", payload.DocumentID,
		"organization_id", payload.OrganizationID)

	if err := p.indexer.IndexDocument(ctx, payload.DocumentID, payload.OrganizationID); err != nil {
		// Returning the error hands the task back to asynq for a bounded
		// backoff retry.
		return err
	}

	if p.analytics != nil {
		p.analytics.RecordDocumentIndexed(ctx, payload.OrganizationID)
	}
	return nil
}

func (p *TaskProcessor) HandleReconcile(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	stats, err := p.reconciler.CleanupOrphanedVectors(ctx, payload.OrganizationID)
	if err != nil {
		return err
	}

	logger.Info("Reconciliation task finished",
		"organization_id", payload.OrganizationID,
		"scanned", stats.Scanned,
		"orphaned", stats.Orphaned,
		"deleted", stats.Deleted,
		"errors", stats.Errors)
	return nil
}
