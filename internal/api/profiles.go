package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realestate/server/internal/api/middleware"
	"realestate/server/internal/apperr"
	"realestate/server/internal/database"
	"realestate/server/internal/models"
	"realestate/server/internal/rating"
)

// ProfileResponse flattens the owning user's public fields into the profile
type ProfileResponse struct {
	models.Profile
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
}

func newProfileResponse(p models.Profile) ProfileResponse {
	return ProfileResponse{
		Profile:   p,
		Username:  p.User.Username,
		FirstName: p.User.FirstName,
		LastName:  p.User.LastName,
		FullName:  p.User.FullName(),
		Email:     p.User.Email,
	}
}

func newProfileList(profiles []models.Profile) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, newProfileResponse(p))
	}
	return out
}

// ProfileUpdate is a partial update; absent fields are left unchanged
type ProfileUpdate struct {
	PhoneNumber *string `json:"phone_number"`
	AboutMe     *string `json:"about_me"`
	License     *string `json:"license"`
	Gender      *string `json:"gender"`
	Country     *string `json:"country"`
	City        *string `json:"city"`
	IsBuyer     *bool   `json:"is_buyer"`
	IsSeller    *bool   `json:"is_seller"`
	IsAgent     *bool   `json:"is_agent"`
}

func (u ProfileUpdate) apply(p *models.Profile) error {
	if u.Gender != nil {
		g, ok := models.ParseGender(*u.Gender)
		if !ok {
			return apperr.Validationf("unknown gender %q", *u.Gender)
		}
		p.Gender = g
	}
	if u.Country != nil && strings.TrimSpace(*u.Country) == "" {
		return apperr.Validation("country must not be empty")
	}
	if u.City != nil && strings.TrimSpace(*u.City) == "" {
		return apperr.Validation("city must not be empty")
	}

	if u.PhoneNumber != nil {
		p.PhoneNumber = strings.TrimSpace(*u.PhoneNumber)
	}
	if u.AboutMe != nil {
		p.AboutMe = *u.AboutMe
	}
	if u.License != nil {
		license := strings.TrimSpace(*u.License)
		if license == "" {
			p.License = nil
		} else {
			p.License = &license
		}
	}
	if u.Country != nil {
		p.Country = strings.TrimSpace(*u.Country)
	}
	if u.City != nil {
		p.City = strings.TrimSpace(*u.City)
	}
	if u.IsBuyer != nil {
		p.IsBuyer = *u.IsBuyer
	}
	if u.IsSeller != nil {
		p.IsSeller = *u.IsSeller
	}
	if u.IsAgent != nil {
		p.IsAgent = *u.IsAgent
	}
	return nil
}

func (h *Handler) GetMyProfile(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	p, err := h.store.GetProfileByUserID(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to get profile")
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(*p))
}

func (h *Handler) UpdateMyProfile(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	var req ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err), "Failed to update profile")
		return
	}

	p, err := h.store.GetProfileByUserID(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to update profile")
		return
	}
	if err := req.apply(p); err != nil {
		h.respondError(c, err, "Failed to update profile")
		return
	}
	if err := h.store.UpdateProfile(c.Request.Context(), p); err != nil {
		h.respondError(c, err, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(*p))
}

func (h *Handler) ListAgents(c *gin.Context) {
	profiles, err := h.store.ListAgents(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list agents")
		return
	}
	c.JSON(http.StatusOK, newProfileList(profiles))
}

func (h *Handler) ListTopAgents(c *gin.Context) {
	profiles, err := h.store.ListTopAgents(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list top agents")
		return
	}
	c.JSON(http.StatusOK, newProfileList(profiles))
}

// ListAgentProperties pages through an agent's published listings
func (h *Handler) ListAgentProperties(c *gin.Context) {
	id, err := parseID(c, "agent_id")
	if err != nil {
		h.respondError(c, err, "Failed to list agent properties")
		return
	}

	profile, err := h.store.GetProfile(c.Request.Context(), id)
	if errors.Is(err, database.ErrProfileNotFound) || (err == nil && !profile.IsAgent) {
		h.respondError(c, rating.ErrAgentNotFound, "Failed to list agent properties")
		return
	}
	if err != nil {
		h.respondError(c, err, "Failed to list agent properties")
		return
	}

	page := parsePage(c)
	properties, total, err := h.store.ListPublishedByOwner(c.Request.Context(), profile.UserID, page)
	if err != nil {
		h.respondError(c, err, "Failed to list agent properties")
		return
	}

	c.JSON(http.StatusOK, PropertyPage{
		Count:    total,
		Page:     page.Number,
		PageSize: page.Size,
		Results:  newPropertyList(properties),
	})
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CreateReview lets the caller rate an agent once
func (h *Handler) CreateReview(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	agentID, err := parseID(c, "agent_id")
	if err != nil {
		h.respondError(c, err, "Failed to submit review")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err), "Failed to submit review")
		return
	}

	review, profile, err := h.reviews.SubmitReview(c.Request.Context(), userID, agentID, req.Rating, req.Comment)
	if err != nil {
		h.respondError(c, err, "Failed to submit review")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"review":      review,
		"rating":      profile.Rating,
		"num_reviews": profile.NumReviews,
	})
}

func (h *Handler) ListReviews(c *gin.Context) {
	agentID, err := parseID(c, "agent_id")
	if err != nil {
		h.respondError(c, err, "Failed to list reviews")
		return
	}

	reviews, err := h.reviews.ListReviews(c.Request.Context(), agentID)
	if err != nil {
		h.respondError(c, err, "Failed to list reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}
