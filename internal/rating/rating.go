// Package rating accepts agent reviews and keeps the cached rating
// aggregates on the agent's profile in step with the ratings table.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realestate/server/internal/apperr"
	"realestate/server/internal/database"
	"realestate/server/internal/metrics"
	"realestate/server/internal/models"
)

const (
	MinScore = 1
	MaxScore = 5
)

var (
	ErrAgentNotFound   = apperr.NotFound("the agent you are trying to review does not exist")
	ErrSelfReview      = apperr.Validation("you cannot rate yourself")
	ErrDuplicateReview = apperr.Conflict("you have already reviewed this agent")
	ErrInvalidScore    = apperr.Validationf("rating must be between %d and %d", MinScore, MaxScore)
)

// Store is the part of the entity store the aggregator needs
type Store interface {
	WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
	ListRatings(ctx context.Context, agentProfileID uint) ([]models.Rating, error)
	GetProfile(ctx context.Context, id uint) (*models.Profile, error)
}

type Aggregator struct {
	store  Store
	logger *logrus.Logger
}

func NewAggregator(store Store, logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Aggregator{store: store, logger: logger}
}

// SubmitReview stores a review by raterID of the agent profile and refreshes
// the profile's num_reviews and rating in the same transaction.
func (a *Aggregator) SubmitReview(ctx context.Context, raterID, agentProfileID uint, score int, comment string) (*models.Rating, *models.Profile, error) {
	var (
		review  *models.Rating
		profile models.Profile
	)

	err := a.store.WithRetry(ctx, func(tx *gorm.DB) error {
		review = nil

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_agent = ?", agentProfileID, true).
			First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAgentNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load agent profile: %w", err)
		}

		if profile.UserID == raterID {
			return ErrSelfReview
		}

		var existing int64
		err = tx.Model(&models.Rating{}).
			Where("rater_id = ? AND agent_id = ?", raterID, agentProfileID).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to check existing reviews: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateReview
		}

		if score < MinScore || score > MaxScore {
			return ErrInvalidScore
		}

		r := &models.Rating{
			RaterID: raterID,
			AgentID: agentProfileID,
			Score:   score,
			Comment: strings.TrimSpace(comment),
		}
		if err := tx.Create(r).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateReview
			}
			return fmt.Errorf("failed to save review: %w", err)
		}

		if err := recompute(tx, &profile); err != nil {
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		a.observe(err)
		return nil, nil, apperr.Classify(err, "failed to submit review")
	}

	metrics.ReviewsSubmitted.WithLabelValues("accepted").Inc()
	a.logger.WithFields(logrus.Fields{
		"agent_profile_id": agentProfileID,
		"num_reviews":      profile.NumReviews,
	}).Info("Review submitted")

	return review, &profile, nil
}

// recompute derives the aggregates from every rating of the profile
func recompute(tx *gorm.DB, profile *models.Profile) error {
	var scores []int
	if err := tx.Model(&models.Rating{}).Where("agent_id = ?", profile.ID).Pluck("rating", &scores).Error; err != nil {
		return fmt.Errorf("failed to load agent scores: %w", err)
	}

	profile.NumReviews = len(scores)
	profile.Rating = Average(scores)

	err := tx.Model(&models.Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
		"num_reviews": profile.NumReviews,
		"rating":      profile.Rating,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update agent rating: %w", err)
	}
	return nil
}

// Average returns the mean of scores rounded to two decimals, or nil when there are none
func Average(scores []int) *float64 {
	if len(scores) == 0 {
		return nil
	}
	total := 0
	for _, s := range scores {
		total += s
	}
	avg := models.Round2(float64(total) / float64(len(scores)))
	return &avg
}

func (a *Aggregator) observe(err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindConflict:
		metrics.ReviewsSubmitted.WithLabelValues("rejected").Inc()
	default:
		metrics.ReviewsSubmitted.WithLabelValues("error").Inc()
		a.logger.WithError(err).Error("Failed to submit review")
	}
}

// ListReviews returns the reviews of an agent profile, newest first
func (a *Aggregator) ListReviews(ctx context.Context, agentProfileID uint) ([]models.Rating, error) {
	profile, err := a.store.GetProfile(ctx, agentProfileID)
	if err != nil {
		if errors.Is(err, database.ErrProfileNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, apperr.Classify(err, "failed to load agent profile")
	}
	if !profile.IsAgent {
		return nil, ErrAgentNotFound
	}

	ratings, err := a.store.ListRatings(ctx, agentProfileID)
	if err != nil {
		return nil, apperr.Classify(err, "failed to list reviews")
	}
	return ratings, nil
}

// Reconcile recomputes the cached aggregates of every profile that is an
// agent or still carries reviews, and returns how many had drifted
func (a *Aggregator) Reconcile(ctx context.Context) (int, error) {
	var ids []uint
	err := a.store.WithRetry(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.Profile{}).
			Where("is_agent = ? OR num_reviews > 0", true).
			Order("id ASC").
			Pluck("id", &ids).Error
	})
	if err != nil {
		return 0, apperr.Classify(err, "failed to list agent profiles")
	}

	drifted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}

		var changed bool
		err := a.store.WithRetry(ctx, func(tx *gorm.DB) error {
			changed = false

			var profile models.Profile
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&profile, id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load profile: %w", err)
			}

			numReviews, cached := profile.NumReviews, profile.Rating
			if err := recompute(tx, &profile); err != nil {
				return err
			}
			changed = numReviews != profile.NumReviews || !sameRating(cached, profile.Rating)
			return nil
		})
		if err != nil {
			return drifted, apperr.Classify(err, "failed to reconcile agent rating")
		}

		if changed {
			drifted++
			a.logger.WithField("agent_profile_id", id).Warn("Agent rating cache was out of date")
		}
	}
	return drifted, nil
}

func sameRating(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return models.Round2(*a) == models.Round2(*b)
}
