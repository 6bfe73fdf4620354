package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amodallal/fishing-backend/internal/model"
	"github.com/amodallal/fishing-backend/internal/service"
)

// stubStore is a minimal TripStore for handler tests: one trip, a flat
// reservation list, a mutex standing in for the row lock.
type stubStore struct {
	mu     sync.Mutex
	trip   *model.Trip
	res    map[uint64]*model.Reservation
	nextID uint64
}

func newStubStore(trip model.Trip) *stubStore {
	cp := trip
	return &stubStore{trip: &cp, res: map[uint64]*model.Reservation{}}
}

func (s *stubStore) reserved() int {
	n := 0
	for _, r := range s.res {
		n += r.Seats
	}
	return n
}

func (s *stubStore) detail(r *model.Reservation) *model.ReservationDetail {
	d := &model.ReservationDetail{
		Reservation: *r,
		Trip: model.TripSnapshot{
			ID: s.trip.ID, Location: s.trip.Location, DepartsAt: s.trip.DepartsAt,
			PriceCents: s.trip.PriceCents, Capacity: s.trip.Capacity,
			Status: s.trip.Status, CaptainID: s.trip.CaptainID,
			CaptainName: "Capt. Andreas", CaptainEmail: "andreas@example.com",
		},
	}
	if r.UserID != nil {
		d.ContactName, d.ContactEmail = "Maria Guest", "maria@example.com"
	} else {
		if r.GuestName != nil {
			d.ContactName = *r.GuestName
		}
		if r.GuestEmail != nil {
			d.ContactEmail = *r.GuestEmail
		}
		if r.GuestPhone != nil {
			d.ContactPhone = *r.GuestPhone
		}
	}
	return d
}

func (s *stubStore) AdmitReservation(ctx context.Context, tripID uint64, admit func(*model.Trip, int) (*model.Reservation, error)) (*model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tripID != s.trip.ID {
		return nil, model.ErrNotFound
	}
	r, err := admit(s.trip, s.reserved())
	if err != nil {
		return nil, err
	}
	s.nextID++
	r.ID = s.nextID
	cp := *r
	s.res[r.ID] = &cp
	return s.detail(r), nil
}

func (s *stubStore) ReservationForCancel(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return s.detail(r), nil
}

func (s *stubStore) DeleteReservation(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.res[id]; !ok {
		return model.ErrAlreadyCancelled
	}
	delete(s.res, id)
	return nil
}

func (s *stubStore) TripForCancel(ctx context.Context, tripID uint64) (*model.TripSnapshot, []model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tripID != s.trip.ID {
		return nil, nil, model.ErrNotFound
	}
	snap := s.detail(&model.Reservation{}).Trip
	var affected []model.ReservationDetail
	for _, r := range s.res {
		affected = append(affected, *s.detail(r))
	}
	return &snap, affected, nil
}

func (s *stubStore) MarkTripCancelled(ctx context.Context, tripID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tripID != s.trip.ID {
		return model.ErrNotFound
	}
	if s.trip.Status != model.TripStatusActive {
		return model.ErrAlreadyCancelled
	}
	s.trip.Status = model.TripStatusCancelled
	return nil
}

func testTrip() model.Trip {
	return model.Trip{
		ID: 1, Location: "Pier 4, Limassol",
		DepartsAt:  time.Now().UTC().Add(48 * time.Hour),
		PriceCents: 12000, Capacity: 4,
		Status: model.TripStatusActive, CaptainID: 9,
	}
}

func newBookingHandler(store service.TripStore) *ReservationHandler {
	eng := service.NewAdmissionEngine(store, nil, 50)
	return NewReservationHandler(eng, nil, nil)
}

// doBookGuest posts an anonymous booking for tripID.
func doBookGuest(t *testing.T, h *ReservationHandler, tripID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/reservations/guest/trip/"+tripID, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("tripId")
	c.SetParamValues(tripID)
	require.NoError(t, h.BookGuest(c))
	return rec
}

// doBookMine posts a booking on behalf of an authenticated guest.
func doBookMine(t *testing.T, h *ReservationHandler, tripID, body string, userID uint64) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/reservations/trip/"+tripID, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("tripId")
	c.SetParamValues(tripID)
	c.Set("user_id", userID)
	c.Set("role", model.RoleGuest)
	require.NoError(t, h.BookMine(c))
	return rec
}

func TestBookGuestReturnsFullSnapshot(t *testing.T) {
	h := newBookingHandler(newStubStore(testTrip()))

	rec := doBookGuest(t, h, "1", `{"seats":2,"guest_name":"Walk-in Pete","guest_email":"pete@example.com","guest_phone":"+357 99 123456"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp reservationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, 2, resp.Seats)
	assert.Equal(t, "Walk-in Pete", resp.Contact.Name)
	assert.Equal(t, "+357 99 123456", resp.Contact.Phone)
	assert.Equal(t, "Pier 4, Limassol", resp.Trip.Location)
	assert.Equal(t, "Capt. Andreas", resp.Trip.CaptainName)
	assert.Equal(t, int64(12000), resp.Trip.PriceCents)
}

func TestBookMineUsesAccount(t *testing.T) {
	store := newStubStore(testTrip())
	h := newBookingHandler(store)

	rec := doBookMine(t, h, "1", `{"seats":1}`, 7)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, store.res, 1)
	for _, r := range store.res {
		require.NotNil(t, r.UserID)
		assert.Equal(t, uint64(7), *r.UserID)
		assert.Nil(t, r.GuestEmail)
	}
}

func TestBookGuestWithoutContactRejected(t *testing.T) {
	h := newBookingHandler(newStubStore(testTrip()))

	rec := doBookGuest(t, h, "1", `{"seats":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookOverCapacityReportsRemaining(t *testing.T) {
	h := newBookingHandler(newStubStore(testTrip())) // capacity 4

	rec := doBookGuest(t, h, "1", `{"seats":3,"guest_name":"A","guest_email":"a@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doBookGuest(t, h, "1", `{"seats":2,"guest_name":"B","guest_email":"b@example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only 1 seats are left")
}

func TestBookUnknownTrip(t *testing.T) {
	h := newBookingHandler(newStubStore(testTrip()))

	rec := doBookGuest(t, h, "99", `{"seats":1,"guest_name":"A","guest_email":"a@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookCancelledTrip(t *testing.T) {
	trip := testTrip()
	trip.Status = model.TripStatusCancelled
	h := newBookingHandler(newStubStore(trip))

	rec := doBookGuest(t, h, "1", `{"seats":1,"guest_name":"A","guest_email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func doCancel(t *testing.T, h *ReservationHandler, id string, userID uint64, role string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/reservations/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	c.Set("user_id", userID)
	c.Set("role", role)
	require.NoError(t, h.Cancel(c))
	return rec
}

func TestCancelOwnReservation(t *testing.T) {
	store := newStubStore(testTrip())
	h := newBookingHandler(store)

	rec := doBookMine(t, h, "1", `{"seats":1}`, 7)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doCancel(t, h, "1", 7, model.RoleGuest)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.res)
}

func TestCancelSomeoneElsesReservationHidden(t *testing.T) {
	store := newStubStore(testTrip())
	h := newBookingHandler(store)

	doBookMine(t, h, "1", `{"seats":1}`, 7)

	rec := doCancel(t, h, "1", 8, model.RoleGuest)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, store.res, 1)
}

func TestCaptainCancelsAnonymousReservation(t *testing.T) {
	store := newStubStore(testTrip()) // captain_id 9
	h := newBookingHandler(store)

	rec := doBookGuest(t, h, "1", `{"seats":1,"guest_name":"Pete","guest_email":"pete@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doCancel(t, h, "1", 9, model.RoleCaptain)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.res)
}
