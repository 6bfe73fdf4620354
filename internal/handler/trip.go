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

// TripHandler serves the public trip browsing endpoints and the
// captain's trip management endpoints.
type TripHandler struct {
	Trips        *repository.TripRepo
	Boats        *repository.BoatRepo
	Reservations *repository.ReservationRepo
	Engine       *service.AdmissionEngine
	Cache        *cache.TripCache
}

func NewTripHandler(t *repository.TripRepo, b *repository.BoatRepo, r *repository.ReservationRepo, eng *service.AdmissionEngine, tc *cache.TripCache) *TripHandler {
	return &TripHandler{Trips: t, Boats: b, Reservations: r, Engine: eng, Cache: tc}
}

type tripReq struct {
	Location   string  `json:"location"`
	DepartsAt  string  `json:"departs_at"` // RFC 3339
	PriceCents int64   `json:"price_cents"`
	Capacity   int     `json:"capacity"`
	BoatID     *uint64 `json:"boat_id"`
}

type cancelTripReq struct {
	Reason string `json:"reason"`
}

type tripResp struct {
	ID           uint64    `json:"id"`
	Location     string    `json:"location"`
	DepartsAt    time.Time `json:"departs_at"`
	PriceCents   int64     `json:"price_cents"`
	Capacity     int       `json:"capacity"`
	Status       string    `json:"status"`
	CaptainID    uint64    `json:"captain_id"`
	CaptainName  string    `json:"captain_name"`
	BoatName     *string   `json:"boat_name,omitempty"`
	BoatCapacity *int      `json:"boat_capacity,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toTripResp(v model.TripView) tripResp {
	return tripResp{
		ID: v.ID, Location: v.Location, DepartsAt: v.DepartsAt,
		PriceCents: v.PriceCents, Capacity: v.Capacity, Status: string(v.Status),
		CaptainID: v.CaptainID, CaptainName: v.CaptainName,
		BoatName: v.BoatName, BoatCapacity: v.BoatCapacity,
		CreatedAt: v.CreatedAt,
	}
}

func toTripResps(views []model.TripView) []tripResp {
	out := make([]tripResp, 0, len(views))
	for _, v := range views {
		out = append(out, toTripResp(v))
	}
	return out
}

// validateTripReq normalizes and checks the editable trip fields,
// returning the parsed departure time.
func (h *TripHandler) validateTripReq(ctx context.Context, req *tripReq, captainID uint64) (time.Time, string) {
	req.Location = strings.TrimSpace(req.Location)
	if req.Location == "" {
		return time.Time{}, "location required"
	}
	departs, err := time.Parse(time.RFC3339, req.DepartsAt)
	if err != nil {
		return time.Time{}, "departs_at must be RFC 3339"
	}
	departs = departs.UTC()
	if !departs.After(time.Now().UTC()) {
		return time.Time{}, "departs_at must be in the future"
	}
	if req.PriceCents < 0 {
		return time.Time{}, "price_cents must not be negative"
	}
	if req.Capacity < 1 || req.Capacity > 50 {
		return time.Time{}, "capacity must be between 1 and 50"
	}
	if req.BoatID != nil {
		boat, err := h.Boats.GetByID(ctx, *req.BoatID)
		if err != nil || boat.CaptainID != captainID {
			return time.Time{}, "boat not found"
		}
		if req.Capacity > boat.Capacity {
			return time.Time{}, "capacity exceeds boat capacity"
		}
	}
	return departs, ""
}

// ListOpen is the public listing: active future trips that nobody has
// booked yet, optionally filtered by location substring and date
// (YYYY-MM-DD). Results are served from the cache when possible.
func (h *TripHandler) ListOpen(c echo.Context) error {
	location := strings.TrimSpace(c.QueryParam("location"))
	var date *time.Time
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		date = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	key := cache.Key(location, date)
	if cached, _ := h.Cache.GetOpenTrips(ctx, key); cached != nil {
		return c.JSON(http.StatusOK, toTripResps(cached))
	}

	trips, err := h.Trips.ListOpen(ctx, location, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list trips failed"})
	}
	h.Cache.SetOpenTrips(ctx, key, trips)
	return c.JSON(http.StatusOK, toTripResps(trips))
}

// Get returns one trip with captain and boat details (public).
func (h *TripHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	v, err := h.Trips.GetView(ctx, id)
	if err != nil {
		return jsonDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTripResp(v))
}

// Create schedules a trip for the authenticated captain.
func (h *TripHandler) Create(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req tripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	departs, msg := h.validateTripReq(ctx, &req, captainID)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	t := model.Trip{
		Location:   req.Location,
		DepartsAt:  departs,
		PriceCents: req.PriceCents,
		Capacity:   req.Capacity,
		CaptainID:  captainID,
		BoatID:     req.BoatID,
	}
	if err := h.Trips.Create(ctx, &t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create trip failed"})
	}
	h.Cache.Invalidate(ctx)

	v, err := h.Trips.GetView(ctx, t.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load trip failed"})
	}
	return c.JSON(http.StatusCreated, toTripResp(v))
}

// Update edits an ACTIVE trip the captain owns.
func (h *TripHandler) Update(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req tripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, err := h.Trips.GetByID(ctx, id)
	if err != nil {
		return jsonDomainError(c, err)
	}
	if t.CaptainID != captainID {
		return jsonDomainError(c, model.ErrNotFound)
	}
	if t.Status != model.TripStatusActive {
		return jsonDomainError(c, model.ErrTripNotBookable)
	}

	departs, msg := h.validateTripReq(ctx, &req, captainID)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	t.Location = req.Location
	t.DepartsAt = departs
	t.PriceCents = req.PriceCents
	t.Capacity = req.Capacity
	t.BoatID = req.BoatID
	if err := h.Trips.Update(ctx, &t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update trip failed"})
	}
	h.Cache.Invalidate(ctx)

	v, err := h.Trips.GetView(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load trip failed"})
	}
	return c.JSON(http.StatusOK, toTripResp(v))
}

type myTripResp struct {
	tripResp
	Reservations []tripReservationResp `json:"reservations"`
}

// ListMine returns the captain's own trips including cancelled ones,
// each with its reservations embedded.
func (h *TripHandler) ListMine(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	trips, err := h.Trips.ListByCaptain(ctx, captainID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list trips failed"})
	}
	out := make([]myTripResp, 0, len(trips))
	for _, t := range trips {
		views, err := h.Reservations.ListByTrip(ctx, t.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
		}
		out = append(out, myTripResp{
			tripResp:     toTripResp(t),
			Reservations: toTripReservationResps(views),
		})
	}
	return c.JSON(http.StatusOK, out)
}

type tripReservationResp struct {
	ID         uint64    `json:"id"`
	Seats      int       `json:"seats"`
	BookerName string    `json:"booker_name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Registered bool      `json:"registered"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListReservations returns the reservations on one of the captain's
// trips, resolving each booker's display name.
func (h *TripHandler) ListReservations(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, err := h.Trips.GetByID(ctx, id)
	if err != nil {
		return jsonDomainError(c, err)
	}
	if t.CaptainID != captainID {
		return jsonDomainError(c, model.ErrNotFound)
	}

	views, err := h.Reservations.ListByTrip(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
	}
	return c.JSON(http.StatusOK, toTripReservationResps(views))
}

func toTripReservationResps(views []model.TripReservationView) []tripReservationResp {
	out := make([]tripReservationResp, 0, len(views))
	for _, v := range views {
		resp := tripReservationResp{
			ID: v.ID, Seats: v.Seats, CreatedAt: v.CreatedAt,
			Registered: v.UserID != nil,
		}
		switch {
		case v.UserFullName != nil:
			resp.BookerName = *v.UserFullName
		case v.GuestName != nil:
			resp.BookerName = *v.GuestName
		}
		if v.GuestEmail != nil {
			resp.Email = *v.GuestEmail
		}
		if v.GuestPhone != nil {
			resp.Phone = *v.GuestPhone
		}
		out = append(out, resp)
	}
	return out
}

// Cancel cancels one of the captain's trips with a reason that is
// emailed to every booker. Reservations stay in place as the record of
// who was affected.
func (h *TripHandler) Cancel(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req cancelTripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Engine.CancelTrip(ctx, id, captainID, req.Reason); err != nil {
		return jsonDomainError(c, err)
	}
	h.Cache.Invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}
