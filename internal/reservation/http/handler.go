package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/response"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
)

type Handler struct {
	service reservation.Service
}

func NewHandler(service reservation.Service) *Handler {
	return &Handler{service: service}
}

// loadOwned fetches the reservation in the path and checks that the caller holds it or is an admin.
func (h *Handler) loadOwned(c *gin.Context) (*reservation.Reservation, bool) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return nil, false
	}

	r, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}

	if r.HolderID != auth.GetUserID(c) && !auth.IsAdmin(c) {
		response.Error(c, reservation.ErrPermissionDenied)
		return nil, false
	}
	return r, true
}

func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	req.Normalize()

	// Admins may see everything or filter by holder; everyone else only sees their own
	holderID := auth.GetUserID(c)
	if auth.IsAdmin(c) {
		holderID = req.HolderID
	}

	filter := reservation.Filter{
		HolderID:   holderID,
		ResourceID: req.ResourceID,
		Status:     reservation.Status(req.Status),
		From:       req.From,
		To:         req.To,
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortBy:     req.SortBy,
		SortOrder:  strings.ToUpper(req.SortOrder),
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]ReservationResponse, len(items))
	for i, r := range items {
		resp[i] = NewReservationResponse(r)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(resp, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateReservationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	r, err := h.service.Create(c.Request.Context(), reservation.CreateRequest{
		HolderID:   auth.GetUserID(c),
		ResourceID: body.ResourceID,
		StartTime:  body.StartTime,
		EndTime:    body.EndTime,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewReservationResponse(r))
}

func (h *Handler) Get(c *gin.Context) {
	r, ok := h.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, NewReservationResponse(r))
}

// Reschedule moves a pending reservation to a new interval.
func (h *Handler) Reschedule(c *gin.Context) {
	current, ok := h.loadOwned(c)
	if !ok {
		return
	}

	var body RescheduleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if body.StartTime == nil && body.EndTime == nil {
		response.BadRequest(c, "start_time or end_time is required", nil)
		return
	}

	r, err := h.service.Reschedule(c.Request.Context(), current.ID, reservation.RescheduleRequest{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

// Transition applies an administrative status change.
func (h *Handler) Transition(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return
	}

	var body TransitionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	to, err := reservation.ParseStatus(body.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	r, err := h.service.Transition(c.Request.Context(), uri.ID, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) Cancel(c *gin.Context) {
	current, ok := h.loadOwned(c)
	if !ok {
		return
	}

	r, err := h.service.Cancel(c.Request.Context(), current.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

// Availability reports busy and free ranges of a resource inside the requested window.
func (h *Handler) Availability(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid resource id", err)
		return
	}

	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	window := reservation.Interval{Start: req.Start, End: req.End}
	busy, err := h.service.BusySlots(c.Request.Context(), uri.ID, window)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := AvailabilityResponse{
		ResourceID: uri.ID,
		Start:      req.Start,
		End:        req.End,
		Busy:       []BusySlotResponse{},
		Free:       []SlotResponse{},
	}
	for slot := range busy {
		resp.Busy = append(resp.Busy, BusySlotResponse{
			ReservationID: slot.ReservationID,
			Start:         slot.Start,
			End:           slot.End,
			Status:        string(slot.Status),
		})
	}
	for _, free := range reservation.FreeSlots(window, busy) {
		resp.Free = append(resp.Free, SlotResponse{Start: free.Start, End: free.End})
	}

	c.JSON(http.StatusOK, resp)
}
