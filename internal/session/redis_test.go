package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebot/internal/conversation"
)

func TestRedisStore_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, 30*time.Minute)

	data, err := json.Marshal(sample())
	require.NoError(t, err)
	mock.ExpectGet(keyPrefix + "s1").SetVal(string(data))

	got, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Booking.CustomerName)
	assert.Equal(t, conversation.StateAwaitSeats, got.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, 30*time.Minute)

	mock.ExpectGet(keyPrefix + "nope").RedisNil()

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, conversation.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, 30*time.Minute)

	mock.ExpectGet(keyPrefix + "s1").SetErr(errors.New("connection refused"))

	_, err := s.Get(context.Background(), "s1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, conversation.ErrNotFound)
}

func TestRedisStore_Save(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, 30*time.Minute)

	data, err := json.Marshal(sample())
	require.NoError(t, err)
	mock.ExpectSet(keyPrefix+"s1", string(data), 30*time.Minute).SetVal("OK")

	require.NoError(t, s.Save(context.Background(), sample()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, 30*time.Minute)

	mock.ExpectDel(keyPrefix + "s1").SetVal(1)

	require.NoError(t, s.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
