package service

import (
	"context"
	"encoding/json"
	"fmt"

	"Lee_Social/internal/broker"
	"Lee_Social/internal/model"
	"Lee_Social/internal/observability"
	"Lee_Social/internal/pkg"

	"github.com/go-playground/validator/v10"
)

type locationStore interface {
	Get(ctx context.Context, userID string) (*model.Location, error)
	Upsert(ctx context.Context, userID string, lat, lon float64) (*model.Location, error)
	FindByUserIDs(ctx context.Context, userIDs []string) ([]model.Location, error)
}

type friendGate interface {
	Authorize(ctx context.Context, viewerID, targetID string) error
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

type LocationService struct {
	store    locationStore
	gate     friendGate
	broker   broker.Broker
	prefix   string
	validate *validator.Validate
	metrics  *observability.Metrics
}

func NewLocationService(store locationStore, gate friendGate, b broker.Broker, prefix string, metrics *observability.Metrics) *LocationService {
	if prefix == "" {
		prefix = broker.DefaultLocationPrefix
	}
	return &LocationService{
		store:    store,
		gate:     gate,
		broker:   b,
		prefix:   prefix,
		validate: validator.New(),
		metrics:  metrics,
	}
}

func (s *LocationService) check(c model.Coordinates) error {
	if err := s.validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}
	return nil
}

// GetLocation 只有好友才能查看
func (s *LocationService) GetLocation(ctx context.Context, actorID, targetID string) (*model.Location, error) {
	if err := s.gate.Authorize(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	loc, err := s.store.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, pkg.ErrLocationNotFound
	}
	return loc, nil
}

// SetLocation 只落库，不广播
func (s *LocationService) SetLocation(ctx context.Context, actorID string, c model.Coordinates) (*model.Location, error) {
	if err := s.check(c); err != nil {
		return nil, err
	}
	loc, err := s.store.Upsert(ctx, actorID, *c.Latitude, *c.Longitude)
	if err != nil {
		return nil, err
	}
	s.metrics.LocationUpdate("rest")
	return loc, nil
}

// PublishLiveLocation 落库后发布到该用户自己的位置通道
func (s *LocationService) PublishLiveLocation(ctx context.Context, actorID string, c model.Coordinates) error {
	if err := s.check(c); err != nil {
		return err
	}
	if _, err := s.store.Upsert(ctx, actorID, *c.Latitude, *c.Longitude); err != nil {
		return err
	}
	payload, err := json.Marshal(model.LocationEvent{
		UserID:    actorID,
		Latitude:  *c.Latitude,
		Longitude: *c.Longitude,
	})
	if err != nil {
		return err
	}
	if err := s.broker.Publish(ctx, broker.Channel(s.prefix, actorID), payload); err != nil {
		return fmt.Errorf("publish location: %w", err)
	}
	s.metrics.LocationUpdate("live")
	return nil
}

// StreamLocation 订阅目标用户的实时位置，ctx 结束后通道关闭
func (s *LocationService) StreamLocation(ctx context.Context, actorID, targetID string) (<-chan model.LocationEvent, error) {
	if err := s.gate.Authorize(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	sub, err := s.broker.Subscribe(ctx, broker.Channel(s.prefix, targetID))
	if err != nil {
		return nil, fmt.Errorf("subscribe location: %w", err)
	}
	return pump(ctx, sub, func(ev model.LocationEvent) bool {
		return ev.UserID == targetID
	}), nil
}

// FriendsLocations 所有好友的最后位置
func (s *LocationService) FriendsLocations(ctx context.Context, actorID string) ([]model.Location, error) {
	ids, err := s.gate.FriendIDs(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.store.FindByUserIDs(ctx, ids)
}
