package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/catalog"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/promo"
	"ms-booking/internal/utils"
)

type Handler struct {
	Booking *booking.Service
	Catalog *catalog.Service
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	res, err := h.Booking.CreateReservation(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("reservation created", res))
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")

	var req models.CancelReservationRequest
	if r.Body != nil {
		// Reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	res, err := h.Booking.CancelReservation(r.Context(), reservationID, auth.UserID(r.Context()), auth.IsAdmin(r.Context()), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("reservation cancelled", res))
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")

	res, err := h.Booking.GetReservation(r.Context(), reservationID, auth.UserID(r.Context()), auth.IsAdmin(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("reservation", res))
}

func (h *Handler) ListMyReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.Booking.ListUserReservations(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("reservations", reservations))
}

func (h *Handler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	spaceID := chi.URLParam(r, "spaceId")

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid 'from' timestamp", err.Error()))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid 'to' timestamp", err.Error()))
		return
	}

	busy, err := h.Booking.ListAvailability(r.Context(), spaceID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("availability", models.AvailabilityResponse{
		SpaceID: spaceID,
		From:    from,
		To:      to,
		Busy:    busy,
	}))
}

func (h *Handler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.Catalog.ListSpaces(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("spaces", spaces))
}

func (h *Handler) GetSpace(w http.ResponseWriter, r *http.Request) {
	sp, err := h.Catalog.GetSpace(r.Context(), chi.URLParam(r, "spaceId"))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("space", sp))
}

// writeError maps the booking error taxonomy onto HTTP statuses. Business
// rejections carry their specific reason so the UI can show an actionable
// message; a conflict explicitly tells the user the slot is unavailable.
func writeError(w http.ResponseWriter, err error) {
	if rej, ok := promo.AsRejection(err); ok {
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.ErrorResponse("promo code rejected", string(rej.Reason)))
		return
	}

	switch {
	case errors.Is(err, booking.ErrConflict):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("slot unavailable", "the requested time window overlaps an existing reservation"))
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, catalog.ErrSpaceNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("not found", err.Error()))
	case errors.Is(err, booking.ErrForbidden):
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("forbidden", err.Error()))
	case errors.Is(err, booking.ErrInvalidRange),
		errors.Is(err, pricing.ErrInvalidDurationForType),
		errors.Is(err, pricing.ErrRateNotOffered):
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request", err.Error()))
	case errors.Is(err, booking.ErrSpaceUnavailable),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrCancellationWindowClosed):
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.ErrorResponse("request rejected", err.Error()))
	case booking.IsTransient(err):
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("temporary failure, retry later", err.Error()))
	default:
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("internal error", err.Error()))
	}
}
