package listings

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/pkg/models"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, notifType, content, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[uuid.UUID][]string)
	}
	n.sent[userID] = append(n.sent[userID], notifType)
	return nil
}

func setupListings(t *testing.T) (*Service, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Job{}, &models.JobApplication{}, &models.Listing{}))

	notifier := &recordingNotifier{}
	return NewService(db, notifier, zap.NewNop()), db, notifier
}

func seedJobWithApplications(t *testing.T, svc *Service, n int) (*models.Job, []*models.JobApplication, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	clientID := uuid.New()

	job, err := svc.CreateJob(ctx, clientID, "Build a data pipeline", "", decimal.NewFromInt(3000))
	require.NoError(t, err)

	apps := make([]*models.JobApplication, 0, n)
	for i := 0; i < n; i++ {
		app, err := svc.Apply(ctx, uuid.New(), job.ID, "cover", decimal.NewFromInt(int64(2000+i*100)))
		require.NoError(t, err)
		apps = append(apps, app)
	}
	return job, apps, clientID
}

func TestApplyGuards(t *testing.T) {
	svc, _, _ := setupListings(t)
	ctx := context.Background()
	clientID := uuid.New()

	job, err := svc.CreateJob(ctx, clientID, "Fix flaky deploys", "", decimal.NewFromInt(800))
	require.NoError(t, err)

	_, err = svc.Apply(ctx, clientID, job.ID, "", decimal.NewFromInt(700))
	assert.ErrorIs(t, err, ErrSelfApplication)

	freelancerID := uuid.New()
	_, err = svc.Apply(ctx, freelancerID, job.ID, "", decimal.NewFromInt(700))
	require.NoError(t, err)

	_, err = svc.Apply(ctx, freelancerID, job.ID, "", decimal.NewFromInt(650))
	assert.ErrorIs(t, err, ErrDuplicateApplication)
}

func TestAcceptApplicationExclusivity(t *testing.T) {
	svc, db, notifier := setupListings(t)
	ctx := context.Background()
	job, apps, clientID := seedJobWithApplications(t, svc, 3)
	a, b, cApp := apps[0], apps[1], apps[2]

	accepted, err := svc.AcceptApplication(ctx, clientID, job.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, accepted.Status)

	var stored models.Job
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, models.JobAssigned, stored.Status)
	require.NotNil(t, stored.AssignedFreelancerID)
	assert.Equal(t, b.FreelancerID, *stored.AssignedFreelancerID)

	for _, rejected := range []*models.JobApplication{a, cApp} {
		var app models.JobApplication
		require.NoError(t, db.First(&app, "id = ?", rejected.ID).Error)
		assert.Equal(t, models.ApplicationRejected, app.Status)
	}

	notifier.mu.Lock()
	assert.Contains(t, notifier.sent[b.FreelancerID], models.NotifyApplicationAccepted)
	assert.Contains(t, notifier.sent[a.FreelancerID], models.NotifyApplicationRejected)
	assert.Contains(t, notifier.sent[cApp.FreelancerID], models.NotifyApplicationRejected)
	notifier.mu.Unlock()
}

func TestAcceptApplicationAuthorization(t *testing.T) {
	svc, _, _ := setupListings(t)
	ctx := context.Background()
	job, apps, clientID := seedJobWithApplications(t, svc, 1)

	_, err := svc.AcceptApplication(ctx, uuid.New(), job.ID, apps[0].ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	// Accepting twice fails: the job is no longer open.
	_, err = svc.AcceptApplication(ctx, clientID, job.ID, apps[0].ID)
	require.NoError(t, err)
	_, err = svc.AcceptApplication(ctx, clientID, job.ID, apps[0].ID)
	assert.ErrorIs(t, err, ErrJobNotOpen)
}

func TestAcceptApplicationConcurrentSingleWinner(t *testing.T) {
	svc, db, _ := setupListings(t)
	ctx := context.Background()
	job, apps, clientID := seedJobWithApplications(t, svc, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AcceptApplication(ctx, clientID, job.ID, apps[i].ID)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrJobNotOpen)
		}
	}
	assert.Equal(t, 1, successes, "exactly one accept must win")

	// Never two accepted applications for one job.
	var acceptedCount int64
	require.NoError(t, db.Model(&models.JobApplication{}).
		Where("job_id = ? AND status = ?", job.ID, models.ApplicationAccepted).
		Count(&acceptedCount).Error)
	assert.Equal(t, int64(1), acceptedCount)
}
