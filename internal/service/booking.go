package service

import (
	"context"
	"errors"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/repository"
)

// BookingStore persists bookings. CreateConfirmed is the
// concurrency-critical operation: it must run the duplicate guard,
// the conditional counter increment and the row insert as one atomic
// unit, reporting repository.ErrDuplicate, repository.ErrCapacity or
// repository.ErrConflict (instance not bookable) respectively.
// CancelOwned flips a confirmed booking to cancelled and decrements
// the instance counter in the same transaction.
type BookingStore interface {
	HasConfirmed(ctx context.Context, studentID, instanceID uint64) (bool, error)
	CreateConfirmed(ctx context.Context, b *model.Booking) error
	CancelOwned(ctx context.Context, bookingID, studentID uint64) (*model.Booking, error)
}

// BookingInstances is the read surface the booking engine needs.
type BookingInstances interface {
	GetByID(ctx context.Context, id uint64) (*model.SessionInstance, error)
}

// BookingService enforces the capacity invariant and the
// one-confirmed-booking-per-student rule.
type BookingService struct {
	bookings  BookingStore
	instances BookingInstances
	now       func() time.Time
}

// NewBookingService wires the booking engine.
func NewBookingService(bookings BookingStore, instances BookingInstances, now func() time.Time) *BookingService {
	if bookings == nil || instances == nil {
		panic("nil store passed to NewBookingService")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BookingService{bookings: bookings, instances: instances, now: now}
}

// Book claims one spot on a session instance for the student.
// Failure order is part of the contract: a duplicate booking is
// reported as ErrAlreadyBooked even when the instance is also full.
// The pre-check here gives the friendly error; the store's atomic
// insert repeats both checks under the transaction, so a race between
// two requests of the same student still cannot produce two confirmed
// rows or overshoot capacity.
func (s *BookingService) Book(ctx context.Context, studentID, instanceID uint64) (*model.Booking, error) {
	inst, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if inst.State == model.InstanceCancelled {
		return nil, ErrInstanceCancelled
	}
	dup, err := s.bookings.HasConfirmed(ctx, studentID, instanceID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrAlreadyBooked
	}
	b := &model.Booking{
		StudentID:  studentID,
		InstanceID: instanceID,
		Status:     model.BookingConfirmed,
	}
	if err := s.bookings.CreateConfirmed(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrAlreadyBooked
		case errors.Is(err, repository.ErrCapacity):
			return nil, ErrAtCapacity
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrInstanceCancelled
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return b, nil
}

// Cancel releases the student's booking and frees the spot. The
// status flip and the counter decrement happen in one transaction in
// the store. Cancelling twice reports ErrAlreadyCancelled.
func (s *BookingService) Cancel(ctx context.Context, studentID, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.CancelOwned(ctx, bookingID, studentID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrAlreadyCancelled
		default:
			return nil, err
		}
	}
	return b, nil
}
