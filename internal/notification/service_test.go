package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/pkg/models"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []interface{}
	fail   bool
}

func (f *fakePublisher) Publish(ctx context.Context, key string, event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return assert.AnError
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func setupTestService(t *testing.T) (*Service, *fakePublisher) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))

	pub := &fakePublisher{}
	return NewService(db, pub, zap.NewNop()), pub
}

func TestNotifyPersistsAndPublishes(t *testing.T) {
	svc, pub := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Notify(ctx, userID, models.NotifyPaymentReceived, "Payment received", "/orders/1"))

	list, err := svc.List(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotifyPaymentReceived, list[0].Type)
	assert.False(t, list[0].IsRead)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.events, 1)
}

func TestNotifySurvivesPublishFailure(t *testing.T) {
	svc, pub := setupTestService(t)
	pub.fail = true
	ctx := context.Background()
	userID := uuid.New()

	// Stream failure must not surface once the row is written.
	require.NoError(t, svc.Notify(ctx, userID, models.NotifyOrderPlaced, "New order", ""))

	list, err := svc.List(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMarkRead(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Notify(ctx, userID, models.NotifyOrderPlaced, "New order", ""))
	list, err := svc.List(ctx, userID, 10, 0)
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, userID, list[0].ID))

	list, err = svc.List(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.True(t, list[0].IsRead)

	// Another user cannot mark it.
	err = svc.MarkRead(ctx, uuid.New(), list[0].ID)
	assert.Error(t, err)
}

func TestSubscribeReceivesLiveNotifications(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	ch, cancel := svc.Subscribe(userID)
	defer cancel()

	require.NoError(t, svc.Notify(ctx, userID, models.NotifyOrderDelivered, "Order delivered", ""))

	select {
	case n := <-ch:
		assert.Equal(t, models.NotifyOrderDelivered, n.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live notification")
	}

	// Other users' events are not delivered here.
	require.NoError(t, svc.Notify(ctx, uuid.New(), models.NotifyOrderDelivered, "Order delivered", ""))
	select {
	case n := <-ch:
		t.Fatalf("unexpected notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	svc, _ := setupTestService(t)
	ch, cancel := svc.Subscribe(uuid.New())
	cancel()
	_, open := <-ch
	assert.False(t, open)
}
