// Package listings covers the marketplace supply side: service listings,
// job postings, and job applications, including the all-or-nothing
// acceptance of one application per job.
package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/pkg/models"
)

var (
	// ErrNotFound means the listing, job, or application does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotOwner means the caller does not own the job or listing.
	ErrNotOwner = errors.New("caller does not own this resource")

	// ErrJobNotOpen means the job already has an accepted application or
	// was closed.
	ErrJobNotOpen = errors.New("job is no longer open")

	// ErrSelfApplication means a client tried to apply to their own job.
	ErrSelfApplication = errors.New("cannot apply to your own job")

	// ErrDuplicateApplication means the freelancer already applied.
	ErrDuplicateApplication = errors.New("already applied to this job")
)

// Notifier delivers acceptance/rejection notifications, best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, content, link string) error
}

// Service implements listing, job, and application operations.
type Service struct {
	db       *gorm.DB
	notifier Notifier
	logger   *zap.Logger
}

// NewService wires the listings service.
func NewService(db *gorm.DB, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{db: db, notifier: notifier, logger: logger}
}

// CreateListing publishes a service listing for a freelancer.
func (s *Service) CreateListing(ctx context.Context, freelancerID uuid.UUID, title, description string, price decimal.Decimal) (*models.Listing, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive")
	}
	listing := &models.Listing{
		ID:           uuid.New(),
		FreelancerID: freelancerID,
		Title:        title,
		Description:  description,
		Price:        price,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(listing).Error; err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return listing, nil
}

// Listings returns active listings, newest first.
func (s *Service) Listings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var listings []models.Listing
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// CreateJob posts a job for a client.
func (s *Service) CreateJob(ctx context.Context, clientID uuid.UUID, title, description string, budget decimal.Decimal) (*models.Job, error) {
	if !budget.IsPositive() {
		return nil, fmt.Errorf("budget must be positive")
	}
	job := &models.Job{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Budget:      budget,
		Status:      models.JobOpen,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// Jobs returns open jobs, newest first.
func (s *Service) Jobs(ctx context.Context, limit, offset int) ([]models.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var jobs []models.Job
	err := s.db.WithContext(ctx).
		Where("status = ?", models.JobOpen).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Apply submits a freelancer's application to an open job.
func (s *Service) Apply(ctx context.Context, freelancerID, jobID uuid.UUID, coverLetter string, bid decimal.Decimal) (*models.JobApplication, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job.ClientID == freelancerID {
		return nil, ErrSelfApplication
	}
	if job.Status != models.JobOpen {
		return nil, ErrJobNotOpen
	}
	if !bid.IsPositive() {
		return nil, fmt.Errorf("bid must be positive")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.JobApplication{}).
		Where("job_id = ? AND freelancer_id = ?", jobID, freelancerID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing application: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateApplication
	}

	app := &models.JobApplication{
		ID:           uuid.New(),
		JobID:        jobID,
		FreelancerID: freelancerID,
		CoverLetter:  coverLetter,
		BidAmount:    bid,
		Status:       models.ApplicationPending,
	}
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// Applications returns a job's applications to its owning client.
func (s *Service) Applications(ctx context.Context, clientID, jobID uuid.UUID) ([]models.JobApplication, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job.ClientID != clientID {
		return nil, ErrNotOwner
	}

	var apps []models.JobApplication
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// AcceptApplication accepts one application and rejects all pending
// siblings in a single transaction; the job becomes assigned to the
// accepted freelancer. The job-status guard means that of two concurrent
// accepts on different applications, exactly one wins.
func (s *Service) AcceptApplication(ctx context.Context, clientID, jobID, applicationID uuid.UUID) (*models.JobApplication, error) {
	var accepted models.JobApplication
	var rejected []models.JobApplication

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load job: %w", err)
		}
		if job.ClientID != clientID {
			return ErrNotOwner
		}

		if err := tx.First(&accepted, "id = ? AND job_id = ?", applicationID, jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load application: %w", err)
		}
		if accepted.Status != models.ApplicationPending {
			return ErrJobNotOpen
		}

		// The open→assigned guard is what keeps two concurrent accepts
		// from both winning: the loser sees zero rows here.
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", jobID, models.JobOpen).
			Updates(map[string]interface{}{
				"status":                 models.JobAssigned,
				"assigned_freelancer_id": accepted.FreelancerID,
				"updated_at":             time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to assign job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrJobNotOpen
		}

		if err := tx.Find(&rejected, "job_id = ? AND id <> ? AND status = ?",
			jobID, applicationID, models.ApplicationPending).Error; err != nil {
			return fmt.Errorf("failed to load sibling applications: %w", err)
		}

		if err := tx.Model(&models.JobApplication{}).
			Where("id = ?", applicationID).
			Update("status", models.ApplicationAccepted).Error; err != nil {
			return fmt.Errorf("failed to accept application: %w", err)
		}
		if err := tx.Model(&models.JobApplication{}).
			Where("job_id = ? AND id <> ? AND status = ?", jobID, applicationID, models.ApplicationPending).
			Update("status", models.ApplicationRejected).Error; err != nil {
			return fmt.Errorf("failed to reject sibling applications: %w", err)
		}

		accepted.Status = models.ApplicationAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application accepted",
		zap.String("job_id", jobID.String()),
		zap.String("application_id", applicationID.String()),
		zap.Int("rejected", len(rejected)),
	)

	link := "/jobs/" + jobID.String()
	if err := s.notifier.Notify(ctx, accepted.FreelancerID, models.NotifyApplicationAccepted,
		"Your application was accepted", link); err != nil {
		s.logger.Warn("acceptance notification failed", zap.Error(err))
	}
	for _, app := range rejected {
		if err := s.notifier.Notify(ctx, app.FreelancerID, models.NotifyApplicationRejected,
			"Your application was not selected", link); err != nil {
			s.logger.Warn("rejection notification failed", zap.Error(err))
		}
	}

	return &accepted, nil
}
