package memory_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/airrecover/storefront/internal/domain"
	"github.com/airrecover/storefront/internal/storage/memory"
)

func TestWebhookEventRepository_CreateAndGet(t *testing.T) {
	repo := memory.NewWebhookEventRepository()
	ttl := time.Now().UTC().Add(2 * time.Hour).Round(time.Second)

	created, err := repo.CreateProcessing("stripe:evt_1", ttl)
	if err != nil {
		t.Fatalf("CreateProcessing failed: %v", err)
	}
	if created.Status != domain.ProcessingStatusProcessing {
		t.Fatalf("expected status %s, got %s", domain.ProcessingStatusProcessing, created.Status)
	}

	got, err := repo.Get("stripe:evt_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.TTLAt.Equal(ttl) {
		t.Fatalf("expected ttl %s, got %s", ttl, got.TTLAt)
	}

	if _, err := repo.Get("stripe:evt_missing"); !errors.Is(err, domain.ErrWebhookEventNotFound) {
		t.Fatalf("expected ErrWebhookEventNotFound, got %v", err)
	}
	if _, err := repo.CreateProcessing("  ", ttl); !errors.Is(err, domain.ErrWebhookEventKeyRequired) {
		t.Fatalf("expected ErrWebhookEventKeyRequired, got %v", err)
	}
}

func TestWebhookEventRepository_Duplicate(t *testing.T) {
	repo := memory.NewWebhookEventRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("stripe:evt_2", ttl); err != nil {
		t.Fatalf("CreateProcessing failed: %v", err)
	}
	if _, err := repo.CreateProcessing("stripe:evt_2", ttl); !errors.Is(err, domain.ErrWebhookEventDuplicate) {
		t.Fatalf("expected ErrWebhookEventDuplicate while processing, got %v", err)
	}

	if err := repo.MarkDone("stripe:evt_2"); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	if _, err := repo.CreateProcessing("stripe:evt_2", ttl); !errors.Is(err, domain.ErrWebhookEventDuplicate) {
		t.Fatalf("expected ErrWebhookEventDuplicate after done, got %v", err)
	}

	// у другого провайдера свой ключ
	if _, err := repo.CreateProcessing("mollie:evt_2", ttl); err != nil {
		t.Fatalf("CreateProcessing for other provider failed: %v", err)
	}
}

func TestWebhookEventRepository_FailedIsRetried(t *testing.T) {
	repo := memory.NewWebhookEventRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	first, err := repo.CreateProcessing("stripe:evt_3", ttl)
	if err != nil {
		t.Fatalf("CreateProcessing failed: %v", err)
	}
	if err := repo.MarkFailed("stripe:evt_3"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	again, err := repo.CreateProcessing("stripe:evt_3", ttl)
	if err != nil {
		t.Fatalf("failed event must be reserved again, got %v", err)
	}
	if again.Status != domain.ProcessingStatusProcessing {
		t.Fatalf("expected status %s, got %s", domain.ProcessingStatusProcessing, again.Status)
	}
	if !again.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("CreatedAt must survive retry: %s != %s", again.CreatedAt, first.CreatedAt)
	}

	if err := repo.MarkDone("stripe:evt_missing"); !errors.Is(err, domain.ErrWebhookEventNotFound) {
		t.Fatalf("expected ErrWebhookEventNotFound, got %v", err)
	}
}

func TestWebhookEventRepository_DeleteExpired(t *testing.T) {
	repo := memory.NewWebhookEventRepository()

	for _, key := range []string{"stripe:old_1", "stripe:old_2", "stripe:old_3"} {
		if _, err := repo.CreateProcessing(key, time.Now().UTC().Add(-time.Minute)); err != nil {
			t.Fatalf("CreateProcessing %s failed: %v", key, err)
		}
	}
	if _, err := repo.CreateProcessing("stripe:active", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("CreateProcessing active failed: %v", err)
	}

	deleted, err := repo.DeleteExpired(time.Now().UTC(), 2)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("expected 2 deleted with limit, got %d", len(deleted))
	}
	for _, record := range deleted {
		if record.Provider() != "stripe" || record.Status != domain.ProcessingStatusProcessing {
			t.Fatalf("unexpected removed record %+v", record)
		}
	}

	deleted, err = repo.DeleteExpired(time.Time{}, 0)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if len(deleted) != 1 {
		t.Fatalf("expected 1 deleted, got %d", len(deleted))
	}

	if _, err := repo.Get("stripe:active"); err != nil {
		t.Fatalf("active record must stay: %v", err)
	}
}

func TestWebhookEventRepository_ExpiredKeyCanBeReused(t *testing.T) {
	repo := memory.NewWebhookEventRepository()

	if _, err := repo.CreateProcessing("stripe:evt_4", time.Now().UTC().Add(-time.Second)); err != nil {
		t.Fatalf("CreateProcessing failed: %v", err)
	}
	if _, err := repo.CreateProcessing("stripe:evt_4", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("expired record must not block, got %v", err)
	}
}

func TestWebhookEventRepository_ConcurrentDeliveries(t *testing.T) {
	repo := memory.NewWebhookEventRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CreateProcessing("stripe:evt_race", ttl); err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if reserved != 1 {
		t.Fatalf("exactly one delivery must win, got %d", reserved)
	}
}
