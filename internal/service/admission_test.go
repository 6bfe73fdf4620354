package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amodallal/fishing-backend/internal/model"
)

// memStore is an in-memory TripStore. A single mutex serializes
// AdmitReservation the way the MySQL row lock does, so the concurrency
// tests exercise the same admit-under-lock contract as production.
type memStore struct {
	mu     sync.Mutex
	trips  map[uint64]*model.Trip
	res    map[uint64]*model.Reservation
	users  map[uint64][2]string // id -> {name, email}
	nextID uint64

	failAdmit error // when set, AdmitReservation fails before locking
}

func newMemStore() *memStore {
	return &memStore{
		trips: map[uint64]*model.Trip{},
		res:   map[uint64]*model.Reservation{},
		users: map[uint64][2]string{},
	}
}

func (s *memStore) addUser(id uint64, name, email string) {
	s.users[id] = [2]string{name, email}
}

func (s *memStore) addTrip(t model.Trip) {
	cp := t
	s.trips[t.ID] = &cp
}

func (s *memStore) reservedSeats(tripID uint64) int {
	total := 0
	for _, r := range s.res {
		if r.TripID == tripID {
			total += r.Seats
		}
	}
	return total
}

func (s *memStore) snapshot(t *model.Trip) model.TripSnapshot {
	u := s.users[t.CaptainID]
	return model.TripSnapshot{
		ID: t.ID, Location: t.Location, DepartsAt: t.DepartsAt,
		PriceCents: t.PriceCents, Capacity: t.Capacity, Status: t.Status,
		CaptainID: t.CaptainID, CaptainName: u[0], CaptainEmail: u[1],
	}
}

func (s *memStore) detail(r *model.Reservation) *model.ReservationDetail {
	t := s.trips[r.TripID]
	d := &model.ReservationDetail{Reservation: *r, Trip: s.snapshot(t)}
	if r.UserID != nil {
		u := s.users[*r.UserID]
		d.ContactName, d.ContactEmail = u[0], u[1]
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

func (s *memStore) AdmitReservation(ctx context.Context, tripID uint64, admit func(*model.Trip, int) (*model.Reservation, error)) (*model.ReservationDetail, error) {
	if s.failAdmit != nil {
		return nil, s.failAdmit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trips[tripID]
	if !ok {
		return nil, model.ErrNotFound
	}
	r, err := admit(t, s.reservedSeats(tripID))
	if err != nil {
		return nil, err
	}
	s.nextID++
	r.ID = s.nextID
	cp := *r
	s.res[r.ID] = &cp
	return s.detail(r), nil
}

func (s *memStore) ReservationForCancel(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return s.detail(r), nil
}

func (s *memStore) DeleteReservation(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.res[id]; !ok {
		return model.ErrAlreadyCancelled
	}
	delete(s.res, id)
	return nil
}

func (s *memStore) TripForCancel(ctx context.Context, tripID uint64) (*model.TripSnapshot, []model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return nil, nil, model.ErrNotFound
	}
	snap := s.snapshot(t)
	var affected []model.ReservationDetail
	for _, r := range s.res {
		if r.TripID == tripID {
			affected = append(affected, *s.detail(r))
		}
	}
	return &snap, affected, nil
}

func (s *memStore) MarkTripCancelled(ctx context.Context, tripID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return model.ErrNotFound
	}
	if t.Status != model.TripStatusActive {
		return model.ErrAlreadyCancelled
	}
	t.Status = model.TripStatusCancelled
	return nil
}

// recPublisher records published events and can be told to fail.
type recPublisher struct {
	mu           sync.Mutex
	created      []uint64
	cancelled    []uint64
	trips        []uint64
	reasons      []string
	tripContacts []string
	err          error
}

func (p *recPublisher) PublishReservationCreated(ctx context.Context, d *model.ReservationDetail) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, d.Reservation.ID)
	return p.err
}

func (p *recPublisher) PublishReservationCancelled(ctx context.Context, d *model.ReservationDetail) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, d.Reservation.ID)
	return p.err
}

func (p *recPublisher) PublishTripCancelled(ctx context.Context, t *model.TripSnapshot, reason string, affected *model.ReservationDetail) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trips = append(p.trips, t.ID)
	p.reasons = append(p.reasons, reason)
	p.tripContacts = append(p.tripContacts, affected.ContactEmail)
	return p.err
}

const maxSeats = 50

func futureTrip(id, captainID uint64, capacity int) model.Trip {
	return model.Trip{
		ID: id, Location: "Pier 4, Limassol",
		DepartsAt:  time.Now().UTC().Add(48 * time.Hour),
		PriceCents: 12000, Capacity: capacity,
		Status: model.TripStatusActive, CaptainID: captainID,
	}
}

func newEngine(t *testing.T) (*AdmissionEngine, *memStore, *recPublisher) {
	t.Helper()
	store := newMemStore()
	store.addUser(1, "Capt. Andreas", "andreas@example.com")
	store.addUser(2, "Maria Guest", "maria@example.com")
	store.addUser(3, "Nikos Guest", "nikos@example.com")
	pub := &recPublisher{}
	return NewAdmissionEngine(store, pub, maxSeats), store, pub
}

func TestBookRegisteredGuest(t *testing.T) {
	eng, store, pub := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))

	d, err := eng.Book(context.Background(), 10, 3, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)
	require.NotNil(t, d.Reservation.UserID)
	assert.Equal(t, uint64(2), *d.Reservation.UserID)
	assert.Nil(t, d.Reservation.GuestEmail)
	assert.Equal(t, 3, d.Reservation.Seats)
	assert.Equal(t, "Maria Guest", d.ContactName)
	assert.Equal(t, "Capt. Andreas", d.Trip.CaptainName)
	assert.Equal(t, []uint64{d.Reservation.ID}, pub.created)
}

func TestBookAnonymousGuestReturnsFullDetail(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))

	d, err := eng.Book(context.Background(), 10, 2, model.AnonymousBooker{
		Name: "Walk-in Pete", Email: "pete@example.com", Phone: "+357 99 123456",
	})
	require.NoError(t, err)
	assert.Nil(t, d.Reservation.UserID)
	assert.Equal(t, "Walk-in Pete", d.ContactName)
	assert.Equal(t, "pete@example.com", d.ContactEmail)
	assert.Equal(t, "+357 99 123456", d.ContactPhone)
	assert.Equal(t, "Pier 4, Limassol", d.Trip.Location)
	assert.NotZero(t, d.Reservation.ID)
}

func TestBookSeatValidation(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))

	for _, seats := range []int{0, -1, maxSeats + 1} {
		_, err := eng.Book(context.Background(), 10, seats, model.RegisteredBooker{UserID: 2})
		assert.ErrorIs(t, err, model.ErrInvalidRequest, "seats=%d", seats)
	}
	// nothing was admitted
	assert.Equal(t, 0, store.reservedSeats(10))
}

func TestBookAnonymousValidation(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))

	_, err := eng.Book(context.Background(), 10, 1, model.AnonymousBooker{Name: "", Email: "x@example.com"})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)

	_, err = eng.Book(context.Background(), 10, 1, model.AnonymousBooker{Name: "Pete", Email: "not-an-email"})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}

func TestBookTripNotFound(t *testing.T) {
	eng, _, _ := newEngine(t)
	_, err := eng.Book(context.Background(), 999, 1, model.RegisteredBooker{UserID: 2})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// existence is checked before the seat bound, first failure wins
	_, err = eng.Book(context.Background(), 999, maxSeats+1, model.RegisteredBooker{UserID: 2})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBookCancelledTrip(t *testing.T) {
	eng, store, _ := newEngine(t)
	trip := futureTrip(10, 1, 8)
	trip.Status = model.TripStatusCancelled
	store.addTrip(trip)

	_, err := eng.Book(context.Background(), 10, 1, model.RegisteredBooker{UserID: 2})
	assert.ErrorIs(t, err, model.ErrTripNotBookable)

	// trip status outranks the seat bound in the chain
	_, err = eng.Book(context.Background(), 10, maxSeats+1, model.RegisteredBooker{UserID: 2})
	assert.ErrorIs(t, err, model.ErrTripNotBookable)
}

func TestBookExpiredTrip(t *testing.T) {
	eng, store, _ := newEngine(t)
	trip := futureTrip(10, 1, 8)
	trip.DepartsAt = time.Now().UTC().Add(-time.Hour)
	store.addTrip(trip)

	_, err := eng.Book(context.Background(), 10, 1, model.RegisteredBooker{UserID: 2})
	assert.ErrorIs(t, err, model.ErrTripExpired)
}

func TestBookExactBoundaryThenReject(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 10))
	ctx := context.Background()

	// fill to exactly capacity
	_, err := eng.Book(ctx, 10, 6, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)
	_, err = eng.Book(ctx, 10, 4, model.RegisteredBooker{UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, store.reservedSeats(10))

	// full trip rejects with the exact remaining count
	_, err = eng.Book(ctx, 10, 1, model.RegisteredBooker{UserID: 2})
	var insufficient *model.InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Remaining)
	assert.Equal(t, "not enough seats available, only 0 seats are left", insufficient.Error())
}

func TestBookRejectionLeavesStateUnchanged(t *testing.T) {
	eng, store, pub := newEngine(t)
	store.addTrip(futureTrip(10, 1, 5))
	ctx := context.Background()

	_, err := eng.Book(ctx, 10, 3, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)

	var insufficient *model.InsufficientCapacityError
	_, err = eng.Book(ctx, 10, 4, model.RegisteredBooker{UserID: 3})
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Remaining)
	assert.Equal(t, 3, store.reservedSeats(10))
	assert.Len(t, pub.created, 1)

	// the rejected booker retries with a fitting count and succeeds
	_, err = eng.Book(ctx, 10, 2, model.RegisteredBooker{UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, store.reservedSeats(10))
}

func TestBookConcurrentNeverOversells(t *testing.T) {
	eng, store, pub := newEngine(t)
	store.addTrip(futureTrip(10, 1, 10))

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Book(context.Background(), 10, 1, model.AnonymousBooker{
				Name: "Racer", Email: "racer@example.com",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var insufficient *model.InsufficientCapacityError
		require.ErrorAs(t, err, &insufficient)
	}
	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, store.reservedSeats(10))
	assert.Len(t, pub.created, 10)
}

func TestBookStoreFailureIsUnavailable(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))
	store.failAdmit = errors.New("driver: bad connection")

	_, err := eng.Book(context.Background(), 10, 1, model.RegisteredBooker{UserID: 2})
	assert.ErrorIs(t, err, model.ErrUnavailable)
}

func TestBookPublishFailureDoesNotFailBooking(t *testing.T) {
	eng, store, pub := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))
	pub.err = errors.New("broker down")

	d, err := eng.Book(context.Background(), 10, 1, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)
	assert.NotZero(t, d.Reservation.ID)
}

func TestCancelReservationByOwner(t *testing.T) {
	eng, store, pub := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))
	d, err := eng.Book(context.Background(), 10, 2, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)

	err = eng.CancelReservation(context.Background(), d.Reservation.ID, Actor{UserID: 2, Role: model.RoleGuest})
	require.NoError(t, err)
	assert.Equal(t, 0, store.reservedSeats(10))
	assert.Equal(t, []uint64{d.Reservation.ID}, pub.cancelled)

	// seats are free again
	_, err = eng.Book(context.Background(), 10, 8, model.RegisteredBooker{UserID: 3})
	assert.NoError(t, err)
}

func TestCancelReservationOtherGuestHidden(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))
	d, err := eng.Book(context.Background(), 10, 2, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)

	err = eng.CancelReservation(context.Background(), d.Reservation.ID, Actor{UserID: 3, Role: model.RoleGuest})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 2, store.reservedSeats(10))
}

func TestCancelAnonymousReservationCaptainOnly(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))
	d, err := eng.Book(context.Background(), 10, 2, model.AnonymousBooker{
		Name: "Walk-in Pete", Email: "pete@example.com",
	})
	require.NoError(t, err)

	// a guest account can never claim an anonymous booking
	err = eng.CancelReservation(context.Background(), d.Reservation.ID, Actor{UserID: 2, Role: model.RoleGuest})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// a captain of a different trip cannot either
	err = eng.CancelReservation(context.Background(), d.Reservation.ID, Actor{UserID: 99, Role: model.RoleCaptain})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// the owning captain can
	err = eng.CancelReservation(context.Background(), d.Reservation.ID, Actor{UserID: 1, Role: model.RoleCaptain})
	assert.NoError(t, err)
}

func TestCancelReservationTwice(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))
	d, err := eng.Book(context.Background(), 10, 2, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)

	actor := Actor{UserID: 2, Role: model.RoleGuest}
	require.NoError(t, eng.CancelReservation(context.Background(), d.Reservation.ID, actor))
	err = eng.CancelReservation(context.Background(), d.Reservation.ID, actor)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCancelTrip(t *testing.T) {
	eng, store, pub := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))
	_, err := eng.Book(context.Background(), 10, 2, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)

	reason := "Storm warning issued for Saturday"
	require.NoError(t, eng.CancelTrip(context.Background(), 10, 1, reason))
	assert.Equal(t, model.TripStatusCancelled, store.trips[10].Status)
	// reservations are kept as the record of who was affected
	assert.Equal(t, 2, store.reservedSeats(10))
	assert.Equal(t, []uint64{10}, pub.trips)
	assert.Equal(t, []string{reason}, pub.reasons)
}

func TestCancelTripEmitsEventPerReservation(t *testing.T) {
	eng, store, pub := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))
	_, err := eng.Book(context.Background(), 10, 2, model.RegisteredBooker{UserID: 2})
	require.NoError(t, err)
	_, err = eng.Book(context.Background(), 10, 1, model.RegisteredBooker{UserID: 3})
	require.NoError(t, err)

	reason := "Storm warning issued for Saturday"
	require.NoError(t, eng.CancelTrip(context.Background(), 10, 1, reason))

	// one event per reservation, each addressed to its own booker
	require.Len(t, pub.trips, 2)
	assert.Equal(t, []string{reason, reason}, pub.reasons)
	assert.ElementsMatch(t, []string{"maria@example.com", "nikos@example.com"}, pub.tripContacts)
}

func TestCancelTripWrongCaptain(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))

	err := eng.CancelTrip(context.Background(), 10, 99, "Storm warning issued")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, model.TripStatusActive, store.trips[10].Status)
}

func TestCancelTripTwice(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))

	require.NoError(t, eng.CancelTrip(context.Background(), 10, 1, "Storm warning issued"))
	err := eng.CancelTrip(context.Background(), 10, 1, "Storm warning issued")
	assert.ErrorIs(t, err, model.ErrAlreadyCancelled)
}

func TestCancelTripReasonBounds(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.addTrip(futureTrip(10, 1, 8))

	err := eng.CancelTrip(context.Background(), 10, 1, "too short")
	assert.ErrorIs(t, err, model.ErrInvalidRequest)

	err = eng.CancelTrip(context.Background(), 10, 1, strings.Repeat("x", 501))
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}
