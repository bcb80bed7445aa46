package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/repository"
)

// memBookingStore mimics the SQL store's atomicity with a mutex: the
// duplicate guard, the capacity check and the insert happen under one
// lock, just as the real store runs them in one transaction.
type memBookingStore struct {
	mu        sync.Mutex
	nextID    uint64
	bookings  map[uint64]*model.Booking
	instances map[uint64]*model.SessionInstance
	capacity  map[uint64]uint32 // class capacity by instance id
}

func newMemBookingStore() *memBookingStore {
	return &memBookingStore{
		nextID:    1,
		bookings:  map[uint64]*model.Booking{},
		instances: map[uint64]*model.SessionInstance{},
		capacity:  map[uint64]uint32{},
	}
}

func (s *memBookingStore) addInstance(id uint64, capacity uint32, state model.InstanceState) {
	s.instances[id] = &model.SessionInstance{ID: id, ClassID: 1, State: state}
	s.capacity[id] = capacity
}

func (s *memBookingStore) GetByID(_ context.Context, id uint64) (*model.SessionInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (s *memBookingStore) HasConfirmed(_ context.Context, studentID, instanceID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasConfirmedLocked(studentID, instanceID), nil
}

func (s *memBookingStore) hasConfirmedLocked(studentID, instanceID uint64) bool {
	for _, b := range s.bookings {
		if b.StudentID == studentID && b.InstanceID == instanceID && b.Status == model.BookingConfirmed {
			return true
		}
	}
	return false
}

func (s *memBookingStore) CreateConfirmed(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[b.InstanceID]
	if !ok {
		return repository.ErrNotFound
	}
	if inst.State != model.InstanceScheduled {
		return repository.ErrConflict
	}
	if s.hasConfirmedLocked(b.StudentID, b.InstanceID) {
		return repository.ErrDuplicate
	}
	if inst.CurrentBookings >= s.capacity[b.InstanceID] {
		return repository.ErrCapacity
	}
	inst.CurrentBookings++
	b.ID = s.nextID
	s.nextID++
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s *memBookingStore) CancelOwned(_ context.Context, bookingID, studentID uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.StudentID != studentID {
		return nil, repository.ErrNotFound
	}
	if b.Status == model.BookingCancelled {
		return nil, repository.ErrConflict
	}
	b.Status = model.BookingCancelled
	if inst := s.instances[b.InstanceID]; inst != nil && inst.CurrentBookings > 0 {
		inst.CurrentBookings--
	}
	cp := *b
	return &cp, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestBookHappyPath(t *testing.T) {
	store := newMemBookingStore()
	store.addInstance(10, 5, model.InstanceScheduled)
	svc := NewBookingService(store, store, fixedNow)

	b, err := svc.Book(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if b.ID == 0 {
		t.Fatalf("expected booking id to be set")
	}
	if b.Status != model.BookingConfirmed {
		t.Fatalf("status = %s, want %s", b.Status, model.BookingConfirmed)
	}
	if got := store.instances[10].CurrentBookings; got != 1 {
		t.Fatalf("current_bookings = %d, want 1", got)
	}
}

func TestBookErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*memBookingStore)
		student uint64
		inst    uint64
		want    error
	}{
		{
			name:    "instance missing",
			setup:   func(s *memBookingStore) { s.addInstance(10, 5, model.InstanceScheduled) },
			student: 1, inst: 99, want: ErrNotFound,
		},
		{
			name:    "instance cancelled",
			setup:   func(s *memBookingStore) { s.addInstance(10, 5, model.InstanceCancelled) },
			student: 1, inst: 10, want: ErrInstanceCancelled,
		},
		{
			name: "duplicate booking",
			setup: func(s *memBookingStore) {
				s.addInstance(10, 5, model.InstanceScheduled)
				_ = s.CreateConfirmed(context.Background(), &model.Booking{StudentID: 1, InstanceID: 10, Status: model.BookingConfirmed})
			},
			student: 1, inst: 10, want: ErrAlreadyBooked,
		},
		{
			name: "at capacity",
			setup: func(s *memBookingStore) {
				s.addInstance(10, 1, model.InstanceScheduled)
				_ = s.CreateConfirmed(context.Background(), &model.Booking{StudentID: 2, InstanceID: 10, Status: model.BookingConfirmed})
			},
			student: 1, inst: 10, want: ErrAtCapacity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemBookingStore()
			tt.setup(store)
			svc := NewBookingService(store, store, fixedNow)
			_, err := svc.Book(context.Background(), tt.student, tt.inst)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Book: err = %v, want %v", err, tt.want)
			}
		})
	}
}

// Duplicate wins over capacity: a student who already holds the last
// spot gets "already booked", not "full".
func TestBookDuplicateBeatsCapacity(t *testing.T) {
	store := newMemBookingStore()
	store.addInstance(10, 1, model.InstanceScheduled)
	svc := NewBookingService(store, store, fixedNow)

	if _, err := svc.Book(context.Background(), 1, 10); err != nil {
		t.Fatalf("first Book: %v", err)
	}
	_, err := svc.Book(context.Background(), 1, 10)
	if !errors.Is(err, ErrAlreadyBooked) {
		t.Fatalf("second Book: err = %v, want %v", err, ErrAlreadyBooked)
	}
}

// With capacity C and N > C concurrent students, exactly C bookings
// succeed and the counter never exceeds C.
func TestBookConcurrentNeverOvershootsCapacity(t *testing.T) {
	const capacity = 5
	const students = 20

	store := newMemBookingStore()
	store.addInstance(10, capacity, model.InstanceScheduled)
	svc := NewBookingService(store, store, fixedNow)

	var wg sync.WaitGroup
	errs := make([]error, students)
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), uint64(i+1), 10)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAtCapacity):
		default:
			t.Fatalf("student %d: unexpected error %v", i+1, err)
		}
	}
	if succeeded != capacity {
		t.Fatalf("succeeded = %d, want %d", succeeded, capacity)
	}
	if got := store.instances[10].CurrentBookings; got != capacity {
		t.Fatalf("current_bookings = %d, want %d", got, capacity)
	}
}

func TestCancelFreesSpot(t *testing.T) {
	store := newMemBookingStore()
	store.addInstance(10, 1, model.InstanceScheduled)
	svc := NewBookingService(store, store, fixedNow)

	b, err := svc.Book(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	cancelled, err := svc.Cancel(context.Background(), 1, b.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Fatalf("status = %s, want %s", cancelled.Status, model.BookingCancelled)
	}
	if got := store.instances[10].CurrentBookings; got != 0 {
		t.Fatalf("current_bookings = %d, want 0", got)
	}
	// The freed spot is bookable again, including by the same student.
	if _, err := svc.Book(context.Background(), 1, 10); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestCancelErrors(t *testing.T) {
	store := newMemBookingStore()
	store.addInstance(10, 5, model.InstanceScheduled)
	svc := NewBookingService(store, store, fixedNow)

	b, err := svc.Book(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), 2, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel by non-owner: err = %v, want %v", err, ErrNotFound)
	}
	if _, err := svc.Cancel(context.Background(), 1, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel missing booking: err = %v, want %v", err, ErrNotFound)
	}
	if _, err := svc.Cancel(context.Background(), 1, b.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), 1, b.ID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel: err = %v, want %v", err, ErrAlreadyCancelled)
	}
}
