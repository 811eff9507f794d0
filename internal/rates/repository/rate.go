package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	rateserrors "staytax/internal/rates/errors"
	"staytax/pkg/config"
	"staytax/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "city_tax_rates"
)

type mongoRateRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type RateRepository interface {
	FindByCity(ctx context.Context, cityCode string) (*model.CityTaxRate, error)
	FindAll(ctx context.Context) ([]*model.CityTaxRate, error)
	Upsert(ctx context.Context, rate *model.CityTaxRate) error
}

func NewMongoRateRepository(cfg *config.Config) RateRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRateRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoRateRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRateRepository) FindByCity(ctx context.Context, cityCode string) (*model.CityTaxRate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var rate model.CityTaxRate
	err := r.collection.FindOne(ctx, bson.M{"_id": cityCode}).Decode(&rate)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, rateserrors.ErrUnknownCity
		}
		return nil, fmt.Errorf("failed to find tax rate: %w", err)
	}

	return &rate, nil
}

func (r *mongoRateRepository) FindAll(ctx context.Context) ([]*model.CityTaxRate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax rates: %w", err)
	}
	defer cursor.Close(ctx)

	rates := []*model.CityTaxRate{}
	if err := cursor.All(ctx, &rates); err != nil {
		return nil, fmt.Errorf("failed to decode tax rates: %w", err)
	}

	return rates, nil
}

func (r *mongoRateRepository) Upsert(ctx context.Context, rate *model.CityTaxRate) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"city_name":      rate.CityName,
		"rate_minor":     rate.RateMinor,
		"currency":       rate.Currency,
		"effective_from": rate.EffectiveFrom,
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": rate.CityCode}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert tax rate: %w", err)
	}
	return nil
}
