package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realestate/server/internal/api/middleware"
	"realestate/server/internal/apperr"
	"realestate/server/internal/auth"
	"realestate/server/internal/database"
	"realestate/server/internal/enquiry"
	"realestate/server/internal/models"
	"realestate/server/internal/search"
)

// Store is the part of the entity store the handlers read and write directly
type Store interface {
	Ping(ctx context.Context) error

	CreateProperty(ctx context.Context, p *models.Property) error
	GetProperty(ctx context.Context, id uint) (*models.Property, error)
	UpdateProperty(ctx context.Context, p *models.Property) error
	DeleteProperty(ctx context.Context, id uint) error
	ListProperties(ctx context.Context, ownerID *uint, page database.Page) ([]models.Property, int64, error)
	ListPublishedByOwner(ctx context.Context, ownerID uint, page database.Page) ([]models.Property, int64, error)
	FindPublished(ctx context.Context, f search.Filter) ([]models.Property, error)
	SetPublished(ctx context.Context, id uint, published bool) (*models.Property, error)
	ListPropertyViews(ctx context.Context, propertyID uint) ([]models.PropertyView, error)

	GetProfile(ctx context.Context, id uint) (*models.Profile, error)
	GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	ListAgents(ctx context.Context) ([]models.Profile, error)
	ListTopAgents(ctx context.Context) ([]models.Profile, error)
}

type ViewRecorder interface {
	RecordView(ctx context.Context, propertyID uint, ip string) (bool, error)
}

type ReviewService interface {
	SubmitReview(ctx context.Context, raterID, agentProfileID uint, score int, comment string) (*models.Rating, *models.Profile, error)
	ListReviews(ctx context.Context, agentProfileID uint) ([]models.Rating, error)
}

type EnquiryService interface {
	Submit(ctx context.Context, req enquiry.Request) (*models.Enquiry, error)
}

type AccountService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*models.User, *models.Profile, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

type Dependencies struct {
	Store     Store
	Views     ViewRecorder
	Reviews   ReviewService
	Enquiries EnquiryService
	Accounts  AccountService
}

type Handler struct {
	store     Store
	views     ViewRecorder
	reviews   ReviewService
	enquiries EnquiryService
	accounts  AccountService
	logger    *logrus.Logger
}

func NewHandler(deps Dependencies, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		store:     deps.Store,
		views:     deps.Views,
		reviews:   deps.Reviews,
		enquiries: deps.Enquiries,
		accounts:  deps.Accounts,
		logger:    logger,
	}
}

// respondError is the one place where error kinds become status codes.
// Server-side failures are logged and answered with fallback, never with
// the underlying error text.
func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	message := fallback

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.KindValidation, apperr.KindConflict:
			status = http.StatusBadRequest
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindPermission:
			status = http.StatusForbidden
		case apperr.KindUnauthorized:
			status = http.StatusUnauthorized
		}
		if status != http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).
			WithField("request_id", c.GetString(middleware.ContextKeyRequestID)).
			Error(fallback)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": message})
}

func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return uint(id), nil
}

func parsePage(c *gin.Context) database.Page {
	number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(database.DefaultPageSize)))
	return database.Page{Number: number, Size: size}.Normalize()
}

func invalidBody(err error) error {
	return &apperr.Error{Kind: apperr.KindValidation, Message: "invalid request body", Err: err}
}

// Health reports liveness together with database reachability
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
