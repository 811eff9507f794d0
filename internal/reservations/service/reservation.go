package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	rateserrors "staytax/internal/rates/errors"
	reservationserrors "staytax/internal/reservations/errors"
	"staytax/internal/reservations/repository"
	"staytax/internal/reservations/validator"
	"staytax/pkg/audit"
	"staytax/pkg/cache"
	"staytax/pkg/config"
	apperrors "staytax/pkg/errors"
	"staytax/pkg/model"
	"staytax/pkg/sanitizer"

	"github.com/google/uuid"
)

const reservationCachePrefix = "reservation:"

// RateProvider resolves the tax rate for a city at reservation time.
type RateProvider interface {
	RateForCity(ctx context.Context, cityCode string) (*model.CityTaxRate, error)
}

type ReservationService interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetAll(ctx context.Context, cityCode string, limit int, offset int64) ([]*model.Reservation, int64, error)
	Update(ctx context.Context, id string, updates *model.ReservationUpdate) (*model.Reservation, error)
	UpdateStatus(ctx context.Context, id string, target string) (*model.Reservation, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	rates     RateProvider
	validator *validator.ReservationValidator
	cache     cache.Cache
	audit     audit.Publisher
	cfg       *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	rates RateProvider,
	validator *validator.ReservationValidator,
	cacheTier cache.Cache,
	auditPublisher audit.Publisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		rates:     rates,
		validator: validator,
		cache:     cacheTier,
		audit:     auditPublisher,
		cfg:       cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, reservation *model.Reservation) error {
	s.sanitize(reservation)

	rate, err := s.rates.RateForCity(ctx, reservation.CityCode)
	if err != nil {
		if errors.Is(err, rateserrors.ErrUnknownCity) {
			return apperrors.InvalidInput("No tax rate configured for city: " + reservation.CityCode)
		}
		return err
	}

	reservation.ID = uuid.NewString()
	reservation.Status = model.ReservationPending
	reservation.RateMinor = rate.RateMinor
	reservation.Currency = rate.Currency
	reservation.TotalMinor = model.TotalMinor(reservation.Nights(), reservation.GuestCount, rate.RateMinor)

	if err := s.validate(reservation); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, reservation); err != nil {
		s.cfg.Log.Error("Failed to create reservation", "error", err)
		return apperrors.Internal("Failed to create reservation", err)
	}

	s.audit.Emit(ctx, audit.EventReservationCreated, reservation.ID, map[string]any{
		"city_code":   reservation.CityCode,
		"guest_count": reservation.GuestCount,
		"total_minor": reservation.TotalMinor,
	})

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"city_code", reservation.CityCode,
		"nights", reservation.Nights(),
		"total_minor", reservation.TotalMinor,
	)

	reservation.Render()
	return nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidInput("Invalid reservation ID format")
	}

	cacheKey := reservationCachePrefix + id
	if raw, ok := s.cache.Get(ctx, cacheKey); ok {
		var cached model.Reservation
		if err := json.Unmarshal(raw, &cached); err == nil {
			cached.Render()
			return &cached, nil
		}
		s.cache.Delete(ctx, cacheKey)
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	if raw, err := json.Marshal(reservation); err == nil {
		s.cache.Set(ctx, cacheKey, raw, s.cfg.ReservationCacheTTL)
	}

	reservation.Render()
	return reservation, nil
}

func (s *reservationService) GetAll(ctx context.Context, cityCode string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	cityCode = sanitizer.NormalizeCityCode(cityCode)

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, cityCode)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindAll(ctx, cityCode, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "error", errFind)
			errFind = apperrors.Internal("Failed to list reservations", errFind)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	for _, r := range reservations {
		r.Render()
	}
	return reservations, count, nil
}

func (s *reservationService) Update(ctx context.Context, id string, updates *model.ReservationUpdate) (*model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidInput("Invalid reservation ID format")
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, translateValidationError(err)
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	if reservation.Status != model.ReservationPending {
		return nil, apperrors.Conflict("Reservation can no longer be edited in status: " + reservation.Status)
	}

	applyUpdates(reservation, updates)
	s.sanitize(reservation)
	reservation.TotalMinor = model.TotalMinor(reservation.Nights(), reservation.GuestCount, reservation.RateMinor)

	if err := s.validate(reservation); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, reservation); err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		s.cfg.Log.Error("Failed to update reservation", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update reservation", err)
	}

	s.cache.Delete(ctx, reservationCachePrefix+id)

	s.cfg.Log.Info("Reservation updated successfully", "id", id)
	reservation.Render()
	return reservation, nil
}

func (s *reservationService) UpdateStatus(ctx context.Context, id string, target string) (*model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidInput("Invalid reservation ID format")
	}

	priors := model.ReservationPriorStates(target)
	if len(priors) == 0 {
		return nil, apperrors.InvalidInput("Unknown target status: " + target)
	}

	reservation, err := s.repo.TransitionStatus(ctx, id, priors, target)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrIllegalTransition) {
			// Distinguish a missing reservation from one in a conflicting state.
			current, findErr := s.repo.FindByID(ctx, id)
			if findErr != nil {
				return nil, apperrors.NotFoundWithID("Reservation", id)
			}
			return nil, apperrors.Conflict("Cannot transition reservation from status: " + current.Status)
		}
		s.cfg.Log.Error("Failed to transition reservation status", "id", id, "target", target, "error", err)
		return nil, apperrors.Internal("Failed to update reservation status", err)
	}

	s.cache.Delete(ctx, reservationCachePrefix+id)

	s.audit.Emit(ctx, audit.EventReservationStatusChanged, id, map[string]any{
		"status": target,
	})

	s.cfg.Log.Info("Reservation status updated", "id", id, "status", target)
	reservation.Render()
	return reservation, nil
}

func (s *reservationService) sanitize(reservation *model.Reservation) {
	reservation.CityCode = sanitizer.NormalizeCityCode(reservation.CityCode)
	reservation.GuestName = sanitizer.NormalizeName(reservation.GuestName)
	reservation.GuestEmail = sanitizer.NormalizeEmail(reservation.GuestEmail)
	reservation.AccommodationName = sanitizer.TrimAndNormalize(reservation.AccommodationName)
	reservation.AccommodationAddress = sanitizer.TrimAndNormalize(reservation.AccommodationAddress)
}

func (s *reservationService) validate(reservation *model.Reservation) error {
	if err := s.validator.Validate(reservation); err != nil {
		return translateValidationError(err)
	}
	return nil
}

func translateValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]any, len(validationErrs))
		for _, ve := range validationErrs {
			details[ve.Field] = ve.Message
		}
		return apperrors.Validation("Reservation validation failed", details)
	}
	return apperrors.Validation(err.Error(), nil)
}

func applyUpdates(reservation *model.Reservation, updates *model.ReservationUpdate) {
	if updates.GuestName != nil {
		reservation.GuestName = *updates.GuestName
	}
	if updates.GuestEmail != nil {
		reservation.GuestEmail = *updates.GuestEmail
	}
	if updates.AccommodationName != nil {
		reservation.AccommodationName = *updates.AccommodationName
	}
	if updates.AccommodationAddress != nil {
		reservation.AccommodationAddress = *updates.AccommodationAddress
	}
	if updates.CheckIn != nil {
		reservation.CheckIn = *updates.CheckIn
	}
	if updates.CheckOut != nil {
		reservation.CheckOut = *updates.CheckOut
	}
	if updates.GuestCount != nil {
		reservation.GuestCount = *updates.GuestCount
	}
}
