package audit_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/shopcore/internal/audit"
	"github.com/shopcore/shopcore/internal/cache"
	"github.com/shopcore/shopcore/internal/entity"
	"github.com/shopcore/shopcore/internal/repository"
	"github.com/shopcore/shopcore/internal/testutil"
)

// collectingStore records every inserted audit record.
type collectingStore struct {
	mu      sync.Mutex
	records []repository.Record
}

func (s *collectingStore) Insert(_ context.Context, _ *entity.Descriptor, rec repository.Record) (repository.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *collectingStore) find(entityID string) (repository.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec["entity_id"] == entityID {
			return rec, true
		}
	}
	return nil, false
}

func TestAuditPipeline_EndToEnd(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "TEST_REDIS_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &collectingStore{}

	worker := audit.NewWorker(c.Client(), store, logger, audit.NewConsumerID())
	workerErr := make(chan error, 1)
	go func() { workerErr <- worker.Run(ctx) }()
	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = worker.Shutdown(shutdownCtx)
		<-workerErr
	})

	publisher := audit.NewPublisher(c.Client(), logger)

	entityID := uuid.New().String()
	if _, err := publisher.Publish(ctx, audit.Event{
		EntityName: "product",
		EntityID:   entityID,
		Action:     audit.ActionCreate,
		ActorID:    "u1",
		OccurredAt: time.Now().UnixMilli(),
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := store.find(entityID); ok {
			if rec["entity_name"] != "product" || rec["action"] != "create" {
				t.Fatalf("record fields = %v", rec)
			}
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("audit record never reached the store")
}
