package listings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gigbridge/gigbridge/internal/auth"
)

// Handler provides HTTP handlers for listings, jobs, and applications.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a listings handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createListingRequest struct {
	Title       string          `json:"title" binding:"required,max=120"`
	Description string          `json:"description" binding:"max=5000"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

// CreateListing publishes a service listing. Freelancer only.
func (h *Handler) CreateListing(c *gin.Context) {
	sess := auth.SessionFrom(c)

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	listing, err := h.service.CreateListing(c.Request.Context(), sess.UserID, req.Title, req.Description, req.Price)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "listing": listing})
}

// Listings returns active listings.
func (h *Handler) Listings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	listings, err := h.service.Listings(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "listings": listings})
}

type createJobRequest struct {
	Title       string          `json:"title" binding:"required,max=120"`
	Description string          `json:"description" binding:"max=5000"`
	Budget      decimal.Decimal `json:"budget" binding:"required"`
}

// CreateJob posts a job. Client only.
func (h *Handler) CreateJob(c *gin.Context) {
	sess := auth.SessionFrom(c)

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	job, err := h.service.CreateJob(c.Request.Context(), sess.UserID, req.Title, req.Description, req.Budget)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "job": job})
}

// Jobs returns open jobs.
func (h *Handler) Jobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, err := h.service.Jobs(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": jobs})
}

type applyRequest struct {
	CoverLetter string          `json:"cover_letter" binding:"max=5000"`
	BidAmount   decimal.Decimal `json:"bid_amount" binding:"required"`
}

// Apply submits an application to an open job. Freelancer only.
func (h *Handler) Apply(c *gin.Context) {
	sess := auth.SessionFrom(c)
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid job id"})
		return
	}

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	app, err := h.service.Apply(c.Request.Context(), sess.UserID, jobID, req.CoverLetter, req.BidAmount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "application": app})
}

// Applications lists a job's applications for its owner.
func (h *Handler) Applications(c *gin.Context) {
	sess := auth.SessionFrom(c)
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid job id"})
		return
	}

	apps, err := h.service.Applications(c.Request.Context(), sess.UserID, jobID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "applications": apps})
}

// Accept accepts one application and rejects its siblings.
func (h *Handler) Accept(c *gin.Context) {
	sess := auth.SessionFrom(c)
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid job id"})
		return
	}
	appID, err := uuid.Parse(c.Param("appID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid application id"})
		return
	}

	app, err := h.service.AcceptApplication(c.Request.Context(), sess.UserID, jobID, appID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "application": app})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, ErrJobNotOpen), errors.Is(err, ErrSelfApplication), errors.Is(err, ErrDuplicateApplication):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
