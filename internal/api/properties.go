package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realestate/server/internal/api/middleware"
	"realestate/server/internal/apperr"
	"realestate/server/internal/database"
	"realestate/server/internal/metrics"
	"realestate/server/internal/models"
	"realestate/server/internal/search"
)

// PropertyResponse is a property as served to clients, with the taxed price
type PropertyResponse struct {
	models.Property
	FinalPrice float64 `json:"final_property_price"`
}

func newPropertyResponse(p models.Property) PropertyResponse {
	return PropertyResponse{Property: p, FinalPrice: p.FinalPrice()}
}

func newPropertyList(properties []models.Property) []PropertyResponse {
	out := make([]PropertyResponse, 0, len(properties))
	for _, p := range properties {
		out = append(out, newPropertyResponse(p))
	}
	return out
}

type PropertyPage struct {
	Count    int64              `json:"count"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Results  []PropertyResponse `json:"results"`
}

// PropertyRequest carries the owner-editable fields of a listing
type PropertyRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Country        string  `json:"country"`
	City           string  `json:"city"`
	PostalCode     string  `json:"postal_code"`
	StreetAddress  string  `json:"street_address"`
	PropertyNumber int     `json:"property_number"`
	Price          float64 `json:"price"`
	Tax            float64 `json:"tax"`
	PlotArea       float64 `json:"plot_area"`
	TotalFloors    int     `json:"total_floors"`
	Bedrooms       int     `json:"bedrooms"`
	Bathrooms      int     `json:"bathrooms"`
	Garages        int     `json:"garages"`
	AdvertType     string  `json:"advert_type"`
	PropertyType   string  `json:"property_type"`
	Currency       string  `json:"currency"`
	AreaMeasure    string  `json:"area_measurement"`
	YearBuilt      int     `json:"year_built"`
}

// apply validates r and copies it onto p
func (r PropertyRequest) apply(p *models.Property) error {
	var problems []string

	if strings.TrimSpace(r.Title) == "" {
		problems = append(problems, "title is required")
	}
	advertType, ok := models.ParseAdvertType(r.AdvertType)
	if !ok {
		problems = append(problems, "unknown advert_type "+strings.TrimSpace(r.AdvertType))
	}
	propertyType, ok := models.ParsePropertyType(r.PropertyType)
	if !ok {
		problems = append(problems, "unknown property_type "+strings.TrimSpace(r.PropertyType))
	}
	if r.Price < 0 {
		problems = append(problems, "price must not be negative")
	}
	if r.Tax < 0 || r.Tax > 1 {
		problems = append(problems, "tax must be a fraction between 0 and 1")
	}
	if r.PlotArea < 0 {
		problems = append(problems, "plot_area must not be negative")
	}
	if r.Bedrooms < 0 || r.Bathrooms < 0 || r.Garages < 0 || r.TotalFloors < 0 {
		problems = append(problems, "room and floor counts must not be negative")
	}
	if len(problems) > 0 {
		return apperr.Validation(strings.Join(problems, "; "))
	}

	p.Title = r.Title
	p.Description = r.Description
	p.Country = r.Country
	p.City = r.City
	p.PostalCode = r.PostalCode
	p.StreetAddress = r.StreetAddress
	p.PropertyNumber = r.PropertyNumber
	p.Price = models.Round2(r.Price)
	p.Tax = models.Round2(r.Tax)
	p.PlotArea = r.PlotArea
	p.TotalFloors = r.TotalFloors
	p.Bedrooms = r.Bedrooms
	p.Bathrooms = r.Bathrooms
	p.Garages = r.Garages
	p.AdvertType = advertType
	p.PropertyType = propertyType
	p.Currency = r.Currency
	p.AreaMeasure = r.AreaMeasure
	p.YearBuilt = r.YearBuilt
	return nil
}

// SearchProperties runs the filter engine over published listings
func (h *Handler) SearchProperties(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		h.respondError(c, invalidBody(err), "Failed to search properties")
		return
	}

	filter, err := search.Compile(req)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		h.respondError(c, err, "Failed to search properties")
		return
	}

	properties, err := h.store.FindPublished(c.Request.Context(), filter)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		h.respondError(c, apperr.Classify(err, "failed to search properties"), "Failed to search properties")
		return
	}

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, newPropertyList(properties))
}

// canManage reports whether the caller owns p or is staff
func canManage(c *gin.Context, p *models.Property) bool {
	if middleware.IsStaff(c) {
		return true
	}
	userID, ok := middleware.CurrentUser(c)
	return ok && userID == p.OwnerID
}

// GetProperty serves one listing and counts the caller's IP as a view.
// Unpublished listings are only visible to their owner and to staff.
func (h *Handler) GetProperty(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to get property")
		return
	}

	p, err := h.store.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get property")
		return
	}
	if !p.Published && !canManage(c, p) {
		h.respondError(c, database.ErrPropertyNotFound, "Failed to get property")
		return
	}

	recorded, err := h.views.RecordView(c.Request.Context(), p.ID, c.ClientIP())
	if err != nil {
		h.respondError(c, err, "Failed to record property view")
		return
	}
	if recorded {
		p.Views++
	}

	c.JSON(http.StatusOK, newPropertyResponse(*p))
}

func (h *Handler) CreateProperty(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err), "Failed to create property")
		return
	}

	p := &models.Property{OwnerID: userID}
	if err := req.apply(p); err != nil {
		h.respondError(c, err, "Failed to create property")
		return
	}
	if err := h.store.CreateProperty(c.Request.Context(), p); err != nil {
		h.respondError(c, err, "Failed to create property")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"property_id": p.ID,
		"owner_id":    userID,
		"ref_code":    p.RefCode,
	}).Info("Property created")
	c.JSON(http.StatusCreated, newPropertyResponse(*p))
}

// loadOwned fetches the property named by the id path parameter and checks
// that the caller may change it
func (h *Handler) loadOwned(c *gin.Context) (*models.Property, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.store.GetProperty(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	userID, _ := middleware.CurrentUser(c)
	if p.OwnerID != userID {
		return nil, apperr.Permission("you can't update or delete a property that doesn't belong to you")
	}
	return p, nil
}

func (h *Handler) UpdateProperty(c *gin.Context) {
	p, err := h.loadOwned(c)
	if err != nil {
		h.respondError(c, err, "Failed to update property")
		return
	}

	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err), "Failed to update property")
		return
	}
	if err := req.apply(p); err != nil {
		h.respondError(c, err, "Failed to update property")
		return
	}
	if err := h.store.UpdateProperty(c.Request.Context(), p); err != nil {
		h.respondError(c, err, "Failed to update property")
		return
	}

	c.JSON(http.StatusOK, newPropertyResponse(*p))
}

func (h *Handler) DeleteProperty(c *gin.Context) {
	p, err := h.loadOwned(c)
	if err != nil {
		h.respondError(c, err, "Failed to delete property")
		return
	}
	if err := h.store.DeleteProperty(c.Request.Context(), p.ID); err != nil {
		h.respondError(c, err, "Failed to delete property")
		return
	}

	h.logger.WithField("property_id", p.ID).Info("Property deleted")
	c.JSON(http.StatusOK, gin.H{"success": "Deletion was successful"})
}

// ListProperties pages through every listing for staff and through the
// caller's own listings for everyone else
func (h *Handler) ListProperties(c *gin.Context) {
	page := parsePage(c)

	var owner *uint
	if !middleware.IsStaff(c) {
		userID, _ := middleware.CurrentUser(c)
		owner = &userID
	}

	properties, total, err := h.store.ListProperties(c.Request.Context(), owner, page)
	if err != nil {
		h.respondError(c, err, "Failed to list properties")
		return
	}

	c.JSON(http.StatusOK, PropertyPage{
		Count:    total,
		Page:     page.Number,
		PageSize: page.Size,
		Results:  newPropertyList(properties),
	})
}

func (h *Handler) ListPropertyViews(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to list property views")
		return
	}
	p, err := h.store.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to list property views")
		return
	}
	if !canManage(c, p) {
		h.respondError(c, apperr.Permission("only the owner can see who viewed this property"), "Failed to list property views")
		return
	}

	views, err := h.store.ListPropertyViews(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err, "Failed to list property views")
		return
	}
	c.JSON(http.StatusOK, views)
}

type publishRequest struct {
	Published *bool `json:"published_status" binding:"required"`
}

// SetPublished toggles whether a listing is visible to the public
func (h *Handler) SetPublished(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to update published status")
		return
	}

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err), "Failed to update published status")
		return
	}

	p, err := h.store.SetPublished(c.Request.Context(), id, *req.Published)
	if err != nil {
		h.respondError(c, err, "Failed to update published status")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"property_id": p.ID,
		"published":   p.Published,
	}).Info("Property published status changed")
	c.JSON(http.StatusOK, newPropertyResponse(*p))
}
