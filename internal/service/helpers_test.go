package service_test

import (
	"context"
	"testing"

	"Lee_Social/internal/broker"
	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/service"
	"Lee_Social/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db        *gorm.DB
	hub       *broker.Hub
	tokens    *pkg.TokenManager
	users     *service.UserService
	friends   *service.FriendshipService
	locations *service.LocationService
	messages  *service.MessageService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	hub := broker.NewHub(0)
	tokens := pkg.NewTokenManager("access-secret", "refresh-secret")
	users := service.NewUserService(mysql.NewUserRepository(db), tokens, nil, nil)
	friends := service.NewFriendshipService(mysql.NewRelationshipRepository(db), users, nil)
	return &env{
		db:        db,
		hub:       hub,
		tokens:    tokens,
		users:     users,
		friends:   friends,
		locations: service.NewLocationService(mysql.NewLocationRepository(db), friends, hub, "", nil),
		messages:  service.NewMessageService(mysql.NewMessageRepository(db), friends, hub, "", nil),
	}
}

func (e *env) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	sent, err := e.friends.SendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.friends.AcceptRequest(ctx, b, sent.ID)
	require.NoError(t, err)
}

func coords(lat, lon float64) model.Coordinates {
	return model.Coordinates{Latitude: &lat, Longitude: &lon}
}
