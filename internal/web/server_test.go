package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebot/internal/conversation"
)

type mockBot struct{ mock.Mock }

func (m *mockBot) Turn(ctx context.Context, id, channel, text string) ([]conversation.Message, error) {
	ret := m.Called(id, channel, text)
	msgs, _ := ret.Get(0).([]conversation.Message)
	return msgs, ret.Error(1)
}

func (m *mockBot) Restart(ctx context.Context, id, channel string) ([]conversation.Message, error) {
	ret := m.Called(id, channel)
	msgs, _ := ret.Get(0).([]conversation.Message)
	return msgs, ret.Error(1)
}

func newServer(bot Bot) *Server {
	return &Server{
		Bot:      bot,
		Sessions: NewSessionManager([]byte(strings.Repeat("h", 32)), []byte(strings.Repeat("b", 32))),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	}
}

func postChat(t *testing.T, h http.Handler, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChat_IssuesSessionAndKeepsIt(t *testing.T) {
	bot := &mockBot{}
	var firstID string
	bot.On("Turn", mock.AnythingOfType("string"), "web", "").
		Run(func(args mock.Arguments) { firstID = args.String(0) }).
		Return([]conversation.Message{{Text: "Hi"}}, nil).Once()
	h := newServer(bot).Routes()

	rec := postChat(t, h, `{"text":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hi", resp.Messages[0].Text)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionName, cookies[0].Name)
	require.NotEmpty(t, firstID)

	bot.On("Turn", firstID, "web", "2024-05-01").
		Return([]conversation.Message{{Text: "Pick a slot", Choices: []string{"18:00"}, Prompt: true}}, nil).Once()
	rec = postChat(t, h, `{"text":"2024-05-01"}`, cookies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "existing session is reused")
	assert.Contains(t, rec.Body.String(), `"choices":["18:00"]`)
	bot.AssertExpectations(t)
}

func TestChat_TamperedCookieStartsFresh(t *testing.T) {
	bot := &mockBot{}
	bot.On("Turn", mock.Anything, "web", "hello").Return([]conversation.Message{{Text: "Hi"}}, nil).Once()

	rec := postChat(t, newServer(bot).Routes(), `{"text":"hello"}`, &http.Cookie{Name: sessionName, Value: "forged"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestChat_BadRequests(t *testing.T) {
	h := newServer(&mockBot{}).Routes()

	rec := postChat(t, h, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChat_TurnError(t *testing.T) {
	bot := &mockBot{}
	bot.On("Turn", mock.Anything, "web", "x").Return(nil, errors.New("store down")).Once()

	rec := postChat(t, newServer(bot).Routes(), `{"text":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "store down")
}

func TestRestart_IssuesNewSession(t *testing.T) {
	bot := &mockBot{}
	var firstID, restartID string
	bot.On("Turn", mock.AnythingOfType("string"), "web", "").
		Run(func(args mock.Arguments) { firstID = args.String(0) }).
		Return([]conversation.Message{{Text: "Hi"}}, nil).Once()
	bot.On("Restart", mock.AnythingOfType("string"), "web").
		Run(func(args mock.Arguments) { restartID = args.String(0) }).
		Return([]conversation.Message{{Text: "Hi again"}}, nil).Once()
	srv := newServer(bot)
	h := srv.Routes()

	rec := postChat(t, h, `{"text":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	old := rec.Result().Cookies()
	require.Len(t, old, 1)

	req := httptest.NewRequest(http.MethodPost, "/chat/restart", nil)
	req.AddCookie(old[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hi again")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, -1, cookies[0].MaxAge, "old session cookie is cleared")
	assert.Empty(t, cookies[0].Value)

	fresh := cookies[1]
	assert.Equal(t, sessionName, fresh.Name)
	assert.NotEqual(t, old[0].Value, fresh.Value)

	next := httptest.NewRequest(http.MethodPost, "/chat", nil)
	next.AddCookie(fresh)
	cid, ok := srv.Sessions.ConversationID(next)
	require.True(t, ok)
	assert.Equal(t, restartID, cid)
	assert.NotEqual(t, firstID, restartID)
	bot.AssertExpectations(t)
}

func TestHealthzMetricsAndHome(t *testing.T) {
	h := newServer(&mockBot{}).Routes()

	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "# metrics",
		"/":        "Book a table",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), want, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
