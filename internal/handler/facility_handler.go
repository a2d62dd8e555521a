package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/internal/service"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
	"github.com/campusops/uniops-api/pkg/response"
)

// FacilityHandler exposes facility and booking endpoints.
type FacilityHandler struct {
	facilities *service.FacilityService
	bookings   *service.BookingService
}

// NewFacilityHandler constructs FacilityHandler.
func NewFacilityHandler(facilities *service.FacilityService, bookings *service.BookingService) *FacilityHandler {
	return &FacilityHandler{facilities: facilities, bookings: bookings}
}

// List godoc
// @Summary List facilities
// @Tags Facilities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /facilities [get]
func (h *FacilityHandler) List(c *gin.Context) {
	facilities, err := h.facilities.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, facilities, nil)
}

// Get godoc
// @Summary Get a facility
// @Tags Facilities
// @Produce json
// @Param id path string true "Facility ID"
// @Success 200 {object} response.Envelope
// @Router /facilities/{id} [get]
func (h *FacilityHandler) Get(c *gin.Context) {
	facility, err := h.facilities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, facility, nil)
}

// Create godoc
// @Summary Create a facility
// @Tags Facilities
// @Accept json
// @Produce json
// @Param payload body service.CreateFacilityRequest true "Facility payload"
// @Success 201 {object} response.Envelope
// @Router /facilities [post]
func (h *FacilityHandler) Create(c *gin.Context) {
	var req service.CreateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	facility, err := h.facilities.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, facility)
}

// ListBookings godoc
// @Summary List bookings for a facility
// @Tags Facilities
// @Produce json
// @Param id path string true "Facility ID"
// @Param date query string false "Booking date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /facilities/{id}/bookings [get]
func (h *FacilityHandler) ListBookings(c *gin.Context) {
	filter := models.BookingFilter{
		FacilityID: c.Param("id"),
		Date:       c.Query("date"),
	}
	bookings, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}

// CreateBooking godoc
// @Summary Book a facility time window
// @Tags Facilities
// @Accept json
// @Produce json
// @Param id path string true "Facility ID"
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /facilities/{id}/bookings [post]
func (h *FacilityHandler) CreateBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.FacilityID = c.Param("id")

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	booking, err := h.bookings.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}
