package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realestate/server/internal/auth"
	"realestate/server/internal/enquiry"
)

func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err), "Failed to register")
		return
	}

	user, profile, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Failed to register")
		return
	}

	profile.User = *user
	c.JSON(http.StatusCreated, newProfileResponse(*profile))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err), "Failed to log in")
		return
	}

	token, user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "Failed to log in")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// SubmitEnquiry stores a contact request and mails it to staff. When only
// the mail fails the enquiry stays saved and the client gets a 500.
func (h *Handler) SubmitEnquiry(c *gin.Context) {
	var req enquiry.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err), "Failed to submit enquiry")
		return
	}

	e, err := h.enquiries.Submit(c.Request.Context(), req)
	if err != nil {
		fallback := "Failed to submit enquiry"
		if e != nil {
			fallback = "Enquiry was not sent. Please try again"
		}
		h.respondError(c, err, fallback)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": "Your Enquiry was successfully submitted"})
}
