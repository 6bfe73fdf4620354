package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amodallal/fishing-backend/internal/cache"
	"github.com/amodallal/fishing-backend/internal/model"
	"github.com/amodallal/fishing-backend/internal/repository"
	"github.com/amodallal/fishing-backend/internal/service"
)

// ReservationHandler serves booking and reservation endpoints. Booking
// comes in two flavors on separate routes: registered guests book on
// their account, walk-in guests book with contact details and no token.
type ReservationHandler struct {
	Engine       *service.AdmissionEngine
	Reservations *repository.ReservationRepo
	Cache        *cache.TripCache
}

func NewReservationHandler(eng *service.AdmissionEngine, r *repository.ReservationRepo, tc *cache.TripCache) *ReservationHandler {
	return &ReservationHandler{Engine: eng, Reservations: r, Cache: tc}
}

type bookReq struct {
	Seats      int    `json:"seats"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
}

type contactPart struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type reservationTripPart struct {
	ID          uint64    `json:"id"`
	Location    string    `json:"location"`
	DepartsAt   time.Time `json:"departs_at"`
	PriceCents  int64     `json:"price_cents"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status"`
	CaptainName string    `json:"captain_name"`
}

type reservationResp struct {
	ID        uint64              `json:"id"`
	Seats     int                 `json:"seats"`
	Contact   contactPart         `json:"contact"`
	Trip      reservationTripPart `json:"trip"`
	CreatedAt time.Time           `json:"created_at"`
}

// toReservationResp renders the full detail for both identity modes.
// Anonymous bookers get the same complete snapshot as registered ones;
// the confirmation is their only record of the booking.
func toReservationResp(d *model.ReservationDetail) reservationResp {
	return reservationResp{
		ID:    d.Reservation.ID,
		Seats: d.Reservation.Seats,
		Contact: contactPart{
			Name:  d.ContactName,
			Email: d.ContactEmail,
			Phone: d.ContactPhone,
		},
		Trip: reservationTripPart{
			ID:          d.Trip.ID,
			Location:    d.Trip.Location,
			DepartsAt:   d.Trip.DepartsAt,
			PriceCents:  d.Trip.PriceCents,
			Capacity:    d.Trip.Capacity,
			Status:      string(d.Trip.Status),
			CaptainName: d.Trip.CaptainName,
		},
		CreatedAt: d.Reservation.CreatedAt,
	}
}

func (h *ReservationHandler) book(c echo.Context, booker model.Booker, seats int) error {
	tripID, err := parseID(c, "tripId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	detail, err := h.Engine.Book(ctx, tripID, seats, booker)
	if err != nil {
		return jsonDomainError(c, err)
	}
	h.Cache.Invalidate(ctx)
	return c.JSON(http.StatusCreated, toReservationResp(detail))
}

// BookMine admits a reservation on the authenticated guest's account.
func (h *ReservationHandler) BookMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return h.book(c, model.RegisteredBooker{UserID: uid}, req.Seats)
}

// BookGuest admits a reservation for a walk-in guest identified only by
// the contact details in the body. No authentication required.
func (h *ReservationHandler) BookGuest(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	booker := model.AnonymousBooker{
		Name:  strings.TrimSpace(req.GuestName),
		Email: strings.TrimSpace(req.GuestEmail),
		Phone: strings.TrimSpace(req.GuestPhone),
	}
	return h.book(c, booker, req.Seats)
}

// ListMine returns the authenticated guest's reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	details, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
	}
	out := make([]reservationResp, 0, len(details))
	for i := range details {
		out = append(out, toReservationResp(&details[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// GetMine returns one of the authenticated guest's reservations.
func (h *ReservationHandler) GetMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	detail, err := h.Reservations.GetByIDForUser(ctx, id, uid)
	if err != nil {
		return jsonDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(detail))
}

// Cancel deletes a reservation and releases its seats. Guests cancel
// their own bookings; captains cancel any booking on their own trips,
// which is also the only cancellation path for anonymous bookings.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	actor := service.Actor{UserID: uid, Role: getRole(c)}
	if err := h.Engine.CancelReservation(ctx, id, actor); err != nil {
		return jsonDomainError(c, err)
	}
	h.Cache.Invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}
