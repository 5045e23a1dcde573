package slots

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebot/internal/domain/booking"
)

func newTestClient(t *testing.T, h http.Handler, attempts int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, MaxAttempts: attempts})
	require.NoError(t, err)
	return c
}

func TestFetchSlots_Decodes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/GetRestaurantSlots", r.URL.Path)
		assert.Equal(t, "next friday", r.URL.Query().Get("date"))
		_, _ = io.WriteString(w, `[
			{"id":"1","date":"next friday","time":"18:00","spaces_remaining":2,
			 "existing_bookings":[{"name":"Bo","seats":3}]},
			{"id":"2","date":"next friday","time":"19:00","spaces_remaining":0,"existing_bookings":[]}
		]`)
	}), 1)

	got, err := c.FetchSlots(context.Background(), "next friday")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, booking.SlotOption{
		ID: "1", Date: "next friday", Time: "18:00", SpacesRemaining: 2,
		ExistingBookings: []booking.ExistingBooking{{Name: "Bo", Seats: 3}},
	}, got[0])
	assert.Equal(t, 0, got[1].SpacesRemaining)
}

func TestFetchSlots_DecodeError(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `<html>oops</html>`)
	}), 3)

	_, err := c.FetchSlots(context.Background(), "2024-05-01")
	assert.ErrorIs(t, err, booking.ErrDecode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchSlots_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"9","time":"20:00","spaces_remaining":1}]`)
	}), 2)

	got, err := c.FetchSlots(context.Background(), "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "9", got[0].ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchSlots_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), 2)

	_, err := c.FetchSlots(context.Background(), "2024-05-01")
	assert.ErrorIs(t, err, booking.ErrTransport)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchSlots_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}), 3)

	_, err := c.FetchSlots(context.Background(), "bad")
	assert.ErrorIs(t, err, booking.ErrTransport)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubmitBooking(t *testing.T) {
	var got booking.Request
	var key string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/BookRestaurantSlot", r.URL.Path)
		key = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "true")
	}), 1)

	req := booking.Request{ID: "1", Name: "Ana", Seats: 2, Date: "2024-05-01"}
	ok, err := c.SubmitBooking(context.Background(), req, "k-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, req, got)
	assert.Equal(t, "k-1", key)
}

func TestSubmitBooking_Rejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "False\n")
	}), 1)

	ok, err := c.SubmitBooking(context.Background(), booking.Request{ID: "1"}, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitBooking_NotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}), 3)

	_, err := c.SubmitBooking(context.Background(), booking.Request{ID: "1"}, "")
	assert.ErrorIs(t, err, booking.ErrTransport)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubmitBooking_BadBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	}), 1)

	_, err := c.SubmitBooking(context.Background(), booking.Request{ID: "1"}, "")
	assert.ErrorIs(t, err, booking.ErrDecode)
}

func TestSubmitBooking_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.SubmitBooking(context.Background(), booking.Request{ID: "1"}, "")
	assert.ErrorIs(t, err, booking.ErrTransport)
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "True": true, `"true"`: true, " false ": false} {
		got, err := parseBool([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseBool([]byte("yes please"))
	assert.ErrorIs(t, err, booking.ErrDecode)
}
