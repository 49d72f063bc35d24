package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/internal/gateway"
	"github.com/gigbridge/gigbridge/pkg/models"
)

type stubGateway struct {
	orders int
	fail   bool
}

func (g *stubGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*gateway.GatewayOrder, error) {
	if g.fail {
		return nil, gateway.ErrGatewayUnavailable
	}
	g.orders++
	return &gateway.GatewayOrder{ID: uuid.New().String(), Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (g *stubGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, userID uuid.UUID, notifType, content, link string) error {
	return nil
}

type ordersFixture struct {
	db  *gorm.DB
	svc *Service
	gw  *stubGateway
}

func setupOrders(t *testing.T) *ordersFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Listing{}, &models.Job{}, &models.JobApplication{}, &models.Order{}))

	gw := &stubGateway{}
	svc := NewService(db, gw, noopNotifier{}, decimal.NewFromInt(10), zap.NewNop())
	return &ordersFixture{db: db, svc: svc, gw: gw}
}

func (f *ordersFixture) seedListing(t *testing.T, price int64) (*models.Listing, uuid.UUID) {
	t.Helper()
	freelancerID := uuid.New()
	listing := models.Listing{
		ID:           uuid.New(),
		FreelancerID: freelancerID,
		Title:        "Backend API in Go",
		Price:        decimal.NewFromInt(price),
		Active:       true,
	}
	require.NoError(t, f.db.Create(&listing).Error)
	return &listing, freelancerID
}

func TestCreateFromListingComputesSplit(t *testing.T) {
	f := setupOrders(t)
	listing, freelancerID := f.seedListing(t, 1000)
	clientID := uuid.New()

	order, err := f.svc.CreateFromListing(context.Background(), clientID, listing.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderPendingPayment, order.Status)
	assert.Equal(t, freelancerID, order.FreelancerID)
	assert.Equal(t, clientID, order.ClientID)
	assert.Nil(t, order.PaymentID)
	assert.NotEmpty(t, order.GatewayOrderID)

	assert.True(t, order.Commission.Equal(decimal.NewFromInt(100)), "commission %s", order.Commission)
	assert.True(t, order.FreelancerEarning.Equal(decimal.NewFromInt(900)), "earning %s", order.FreelancerEarning)
	assert.True(t, order.Commission.Add(order.FreelancerEarning).Equal(order.Price))
}

func TestCreateFromListingSplitConservesOddPrices(t *testing.T) {
	f := setupOrders(t)
	clientID := uuid.New()

	// Prices that do not divide evenly must still conserve exactly.
	for _, price := range []string{"999.99", "0.01", "123.45", "33.33"} {
		listing := models.Listing{
			ID:           uuid.New(),
			FreelancerID: uuid.New(),
			Title:        "odd price",
			Price:        decimal.RequireFromString(price),
			Active:       true,
		}
		require.NoError(t, f.db.Create(&listing).Error)

		order, err := f.svc.CreateFromListing(context.Background(), clientID, listing.ID)
		require.NoError(t, err)
		assert.True(t, order.Commission.Add(order.FreelancerEarning).Equal(order.Price),
			"price %s: %s + %s != %s", price, order.Commission, order.FreelancerEarning, order.Price)
	}
}

func TestCreateFromListingRejectsSelfPurchase(t *testing.T) {
	f := setupOrders(t)
	listing, freelancerID := f.seedListing(t, 500)

	_, err := f.svc.CreateFromListing(context.Background(), freelancerID, listing.ID)
	assert.ErrorIs(t, err, ErrSelfPurchase)
}

func TestCreateFromListingGatewayDown(t *testing.T) {
	f := setupOrders(t)
	f.gw.fail = true
	listing, _ := f.seedListing(t, 500)

	_, err := f.svc.CreateFromListing(context.Background(), uuid.New(), listing.ID)
	assert.ErrorIs(t, err, gateway.ErrGatewayUnavailable)

	// No orphan order row.
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateFromJobUsesAcceptedBid(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	clientID, freelancerID := uuid.New(), uuid.New()

	job := models.Job{
		ID:                   uuid.New(),
		ClientID:             clientID,
		Title:                "Migrate billing service",
		Budget:               decimal.NewFromInt(5000),
		Status:               models.JobAssigned,
		AssignedFreelancerID: &freelancerID,
	}
	require.NoError(t, f.db.Create(&job).Error)
	app := models.JobApplication{
		ID:           uuid.New(),
		JobID:        job.ID,
		FreelancerID: freelancerID,
		BidAmount:    decimal.NewFromInt(4200),
		Status:       models.ApplicationAccepted,
	}
	require.NoError(t, f.db.Create(&app).Error)

	order, err := f.svc.CreateFromJob(ctx, clientID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SourceJob, order.SourceType)
	assert.True(t, order.Price.Equal(decimal.NewFromInt(4200)))
	assert.Equal(t, freelancerID, order.FreelancerID)

	// Only the job's client may create the engagement order.
	_, err = f.svc.CreateFromJob(ctx, uuid.New(), job.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func seedOrderInStatus(t *testing.T, f *ordersFixture, status string) (*models.Order, uuid.UUID, uuid.UUID) {
	t.Helper()
	clientID, freelancerID := uuid.New(), uuid.New()
	order := models.Order{
		ID:                uuid.New(),
		SourceType:        models.SourceService,
		SourceID:          uuid.New(),
		ClientID:          clientID,
		FreelancerID:      freelancerID,
		Title:             "Logo design",
		Price:             decimal.NewFromInt(1000),
		Commission:        decimal.NewFromInt(100),
		FreelancerEarning: decimal.NewFromInt(900),
		Status:            status,
	}
	require.NoError(t, f.db.Create(&order).Error)
	return &order, clientID, freelancerID
}

func TestLifecycleDeliverThenApprove(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	order, clientID, freelancerID := seedOrderInStatus(t, f, models.OrderActive)

	// Client cannot mark delivered.
	_, err := f.svc.MarkDelivered(ctx, clientID, order.ID)
	assert.ErrorIs(t, err, ErrForbiddenTransition)

	delivered, err := f.svc.MarkDelivered(ctx, freelancerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	// Freelancer cannot approve their own delivery.
	_, err = f.svc.Approve(ctx, freelancerID, order.ID)
	assert.ErrorIs(t, err, ErrForbiddenTransition)

	completed, err := f.svc.Approve(ctx, clientID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	// Completed is terminal.
	_, err = f.svc.RaiseDispute(ctx, clientID, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLifecycleDisputeAndCancel(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	order, _, freelancerID := seedOrderInStatus(t, f, models.OrderActive)
	disputed, err := f.svc.RaiseDispute(ctx, freelancerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDisputed, disputed.Status)

	// Outsiders cannot touch the order at all.
	order2, clientID, _ := seedOrderInStatus(t, f, models.OrderActive)
	_, err = f.svc.RaiseDispute(ctx, uuid.New(), order2.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	cancelled, err := f.svc.Cancel(ctx, clientID, false, order2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	// Cancelled is terminal, even for the settlement-adjacent retry path.
	_, err = f.svc.RetryPayment(ctx, clientID, order2.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRetryPaymentReopensFailedOrder(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	order, clientID, _ := seedOrderInStatus(t, f, models.OrderPendingPayment)

	failed, err := f.svc.MarkPaymentFailed(ctx, clientID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaymentFailed, failed.Status)

	reopened, err := f.svc.RetryPayment(ctx, clientID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPendingPayment, reopened.Status)
	assert.NotEmpty(t, reopened.GatewayOrderID)

	// Split is untouched by the failure round trip.
	assert.True(t, reopened.Commission.Add(reopened.FreelancerEarning).Equal(reopened.Price))
}
