package service

import (
	"context"
	"encoding/json"
	"errors"

	rateserrors "staytax/internal/rates/errors"
	"staytax/internal/rates/repository"
	"staytax/pkg/cache"
	"staytax/pkg/config"
	apperrors "staytax/pkg/errors"
	"staytax/pkg/model"
	"staytax/pkg/sanitizer"
)

const rateCachePrefix = "rate:"

type RateService interface {
	RateForCity(ctx context.Context, cityCode string) (*model.CityTaxRate, error)
	GetByCity(ctx context.Context, cityCode string) (*model.CityTaxRate, error)
	GetAll(ctx context.Context) ([]*model.CityTaxRate, error)
}

type rateService struct {
	repo  repository.RateRepository
	cache cache.Cache
	cfg   *config.Config
}

func NewRateService(repo repository.RateRepository, cacheTier cache.Cache, cfg *config.Config) RateService {
	return &rateService{
		repo:  repo,
		cache: cacheTier,
		cfg:   cfg,
	}
}

// RateForCity is the internal lookup used when pricing a reservation.
// Rates change rarely, so lookups are served cache-aside with a long TTL.
func (s *rateService) RateForCity(ctx context.Context, cityCode string) (*model.CityTaxRate, error) {
	cityCode = sanitizer.NormalizeCityCode(cityCode)
	if cityCode == "" {
		return nil, rateserrors.ErrUnknownCity
	}

	cacheKey := rateCachePrefix + cityCode
	if raw, ok := s.cache.Get(ctx, cacheKey); ok {
		var cached model.CityTaxRate
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		s.cache.Delete(ctx, cacheKey)
	}

	rate, err := s.repo.FindByCity(ctx, cityCode)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(rate); err == nil {
		s.cache.Set(ctx, cacheKey, raw, s.cfg.RateCacheTTL)
	}

	return rate, nil
}

// GetByCity is the HTTP-facing variant with application error mapping.
func (s *rateService) GetByCity(ctx context.Context, cityCode string) (*model.CityTaxRate, error) {
	rate, err := s.RateForCity(ctx, cityCode)
	if err != nil {
		if errors.Is(err, rateserrors.ErrUnknownCity) {
			return nil, apperrors.NotFoundWithID("Tax rate", cityCode)
		}
		s.cfg.Log.Error("Failed to retrieve tax rate", "city_code", cityCode, "error", err)
		return nil, apperrors.Internal("Failed to retrieve tax rate", err)
	}

	rate.Render()
	return rate, nil
}

func (s *rateService) GetAll(ctx context.Context) ([]*model.CityTaxRate, error) {
	rates, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list tax rates", "error", err)
		return nil, apperrors.Internal("Failed to list tax rates", err)
	}

	for _, rate := range rates {
		rate.Render()
	}
	return rates, nil
}
