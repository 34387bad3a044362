package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/config"
	"github.com/BuzzLyutic/task-tracker/internal/identity"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/testdb"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "0123456789abcdef0123456789abcdef",
			AccessTokenTTL: 30 * time.Minute,
			BcryptCost:     4,
		},
		Timer:     config.TimerConfig{Workers: 2, JobTimeout: 5 * time.Second},
		Guest:     config.GuestConfig{SessionTTL: 30 * 24 * time.Hour, SweepInterval: time.Hour},
		Countdown: config.CountdownConfig{Tick: 10 * time.Millisecond},
	}
}

type testServer struct {
	*httptest.Server
	pool *pgxpool.Pool
	app  *App
}

func setupE2EServer(t *testing.T) (*testServer, func()) {
	pool, cleanup := testdb.SetupTestDB(t)
	testdb.TruncateTables(t, pool)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	app, err := New(testConfig(), pool, rdb, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	srv := httptest.NewServer(app.Handler)

	return &testServer{Server: srv, pool: pool, app: app}, func() {
		srv.Close()
		app.Stop()
		_ = rdb.Close()
		cleanup()
	}
}

// session is a minimal client. The session cookie is Secure, so a cookie jar
// would not replay it over plain http; it is carried by hand instead.
type session struct {
	t      *testing.T
	base   string
	cookie string
	bearer string
}

func (s *session) do(method, path, contentType string, body io.Reader) *http.Response {
	s.t.Helper()
	req, err := http.NewRequest(method, s.base+path, body)
	require.NoError(s.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.cookie != "" {
		req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: s.cookie})
	}
	if s.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+s.bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { _ = resp.Body.Close() })

	for _, c := range resp.Cookies() {
		if c.Name == identity.CookieName {
			s.cookie = c.Value
			if c.MaxAge < 0 {
				s.cookie = ""
			}
		}
	}
	return resp
}

func (s *session) json(method, path string, body any) *http.Response {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = strings.NewReader(string(b))
	}
	return s.do(method, path, "application/json", r)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func count(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestE2E(t *testing.T) {
	srv, cleanup := setupE2EServer(t)
	defer cleanup()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("anonymous list writes nothing", func(t *testing.T) {
		testdb.TruncateTables(t, srv.pool)
		anon := &session{t: t, base: srv.URL}

		resp := anon.do(http.MethodGet, "/api/tasks", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decode[[]model.Task](t, resp))
		assert.Empty(t, resp.Cookies())
		assert.Zero(t, count(t, srv.pool, "guest_sessions"))
	})

	t.Run("guest flow", func(t *testing.T) {
		testdb.TruncateTables(t, srv.pool)
		guest := &session{t: t, base: srv.URL}

		resp := guest.json(http.MethodPost, "/api/tasks", map[string]any{"title": "groceries"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decode[model.Task](t, resp)
		require.NotEmpty(t, guest.cookie, "guest cookie issued")
		require.NotNil(t, created.GuestID)
		assert.Nil(t, created.UserID)
		assert.Contains(t, resp.Header.Get("Location"), fmt.Sprintf("/api/tasks/%d", created.ID))

		setCookie := resp.Header.Get("Set-Cookie")
		assert.Contains(t, setCookie, "HttpOnly")
		assert.Contains(t, setCookie, "Secure")
		assert.Contains(t, setCookie, "SameSite=Lax")
		assert.Contains(t, setCookie, "Max-Age=2592000")

		resp = guest.json(http.MethodPost, "/api/tasks", nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, model.DefaultTitle, decode[model.Task](t, resp).Title)
		renewed := resp.Cookies()
		require.Len(t, renewed, 1, "existing guest gets a renewed cookie")
		assert.Equal(t, identity.CookieName, renewed[0].Name)
		assert.Equal(t, 2592000, renewed[0].MaxAge)

		resp = guest.do(http.MethodGet, "/api/tasks", "", nil)
		assert.Len(t, decode[[]model.Task](t, resp), 2)
		assert.Equal(t, 1, count(t, srv.pool, "guest_sessions"))

		resp = guest.do(http.MethodGet, "/api/auth/status", "", nil)
		assert.Equal(t, map[string]any{"is_guest": true}, decode[map[string]any](t, resp))

		resp = guest.do(http.MethodDelete, fmt.Sprintf("/api/tasks?task_id=%d", created.ID), "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp = guest.do(http.MethodDelete, fmt.Sprintf("/api/tasks?task_id=%d", created.ID), "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("tampered guest cookie starts over", func(t *testing.T) {
		testdb.TruncateTables(t, srv.pool)
		forged := &session{t: t, base: srv.URL, cookie: "not-a-token"}

		resp := forged.do(http.MethodGet, "/api/tasks", "", nil)
		assert.Empty(t, decode[[]model.Task](t, resp))

		resp = forged.do(http.MethodDelete, "/api/tasks?task_id=1", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("user flow and isolation", func(t *testing.T) {
		testdb.TruncateTables(t, srv.pool)
		alice := &session{t: t, base: srv.URL}
		bob := &session{t: t, base: srv.URL}

		resp := alice.json(http.MethodPost, "/api/auth/register", map[string]string{"email": "Alice@Example.com", "password": "123456789"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "alice@example.com", decode[model.User](t, resp).Email)

		resp = bob.json(http.MethodPost, "/api/auth/register", map[string]string{"email": "alice@example.com", "password": "123456789"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		resp = bob.json(http.MethodPost, "/api/auth/register", map[string]string{"email": "bob@example.com", "password": "12345678"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = bob.json(http.MethodPost, "/api/auth/register", map[string]string{"email": "bob@example.com", "password": "123456789"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = alice.json(http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = alice.json(http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "123456789"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tok := decode[map[string]string](t, resp)
		assert.Equal(t, "bearer", tok["token_type"])
		require.NotEmpty(t, alice.cookie)

		form := url.Values{"username": {"bob@example.com"}, "password": {"123456789"}}
		resp = bob.do(http.MethodPost, "/api/auth/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		bob.bearer = decode[map[string]string](t, resp)["access_token"]
		bob.cookie = ""

		resp = alice.json(http.MethodPost, "/api/tasks", map[string]any{"title": "alice's", "timer_length": 60})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		task := decode[model.Task](t, resp)
		require.NotNil(t, task.UserID)
		assert.Nil(t, task.GuestID)

		resp = alice.do(http.MethodGet, "/api/auth/status", "", nil)
		assert.Equal(t, map[string]any{"is_guest": false, "user_email": "alice@example.com"}, decode[map[string]any](t, resp))

		path := fmt.Sprintf("/api/tasks/%d", task.ID)
		assert.Equal(t, http.StatusNotFound, bob.do(http.MethodGet, path, "", nil).StatusCode)
		assert.Equal(t, http.StatusNotFound, bob.json(http.MethodPut, path, map[string]string{"title": "mine"}).StatusCode)
		assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPut, path+"/timer_start", "", nil).StatusCode)
		assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, fmt.Sprintf("/api/tasks?task_id=%d", task.ID), "", nil).StatusCode)
		assert.Empty(t, decode[[]model.Task](t, bob.do(http.MethodGet, "/api/tasks", "", nil)))

		resp = alice.json(http.MethodPut, path, map[string]any{"is_completed": true})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decode[model.Task](t, resp).IsCompleted)

		resp = alice.json(http.MethodPut, path, map[string]any{"is_completed": false})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated := decode[model.Task](t, resp)
		assert.False(t, updated.IsCompleted)
		assert.Equal(t, "alice's", updated.Title)

		resp = alice.do(http.MethodPost, "/api/auth/logout", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, alice.cookie)

		// The revoked token no longer identifies alice.
		alice.bearer = tok["access_token"]
		resp = alice.do(http.MethodGet, "/api/auth/status", "", nil)
		assert.Equal(t, map[string]any{"is_guest": true}, decode[map[string]any](t, resp))
	})

	t.Run("timer expires server side", func(t *testing.T) {
		testdb.TruncateTables(t, srv.pool)
		guest := &session{t: t, base: srv.URL}

		resp := guest.json(http.MethodPost, "/api/tasks", map[string]any{"title": "tea", "timer_length": 1})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		task := decode[model.Task](t, resp)
		path := fmt.Sprintf("/api/tasks/%d", task.ID)

		resp = guest.do(http.MethodPut, path+"/timer_start", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		started := decode[model.Task](t, resp)
		assert.True(t, started.TimerActive)
		require.NotNil(t, started.TimerStart)
		require.NotNil(t, started.TimerStop)
		assert.Equal(t, time.Second, started.TimerStop.Sub(*started.TimerStart))

		ok := testdb.WaitForCondition(t, 5*time.Second, func() bool {
			got := decode[model.Task](t, guest.do(http.MethodGet, path, "", nil))
			return !got.TimerActive
		})
		assert.True(t, ok, "timer should expire")
		assert.Zero(t, srv.app.Scheduler.Pending())
	})

	t.Run("timer stop and restart", func(t *testing.T) {
		testdb.TruncateTables(t, srv.pool)
		guest := &session{t: t, base: srv.URL}

		resp := guest.json(http.MethodPost, "/api/tasks", map[string]any{"timer_length": 60})
		task := decode[model.Task](t, resp)
		path := fmt.Sprintf("/api/tasks/%d", task.ID)

		resp = guest.do(http.MethodPut, path+"/timer_start", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		first := decode[model.Task](t, resp)

		resp = guest.do(http.MethodPut, path+"/timer_start", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		second := decode[model.Task](t, resp)
		assert.False(t, second.TimerStop.Before(*first.TimerStop))
		assert.Equal(t, 1, srv.app.Scheduler.Pending())

		resp = guest.do(http.MethodPut, path+"/timer_stop", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, decode[model.Task](t, resp).TimerActive)
		assert.Zero(t, srv.app.Scheduler.Pending())

		resp = guest.json(http.MethodPost, "/api/tasks", nil)
		noTimer := decode[model.Task](t, resp)
		resp = guest.do(http.MethodPut, fmt.Sprintf("/api/tasks/%d/timer_start", noTimer.ID), "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("countdown websocket", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/timer/2"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		var got []string
		for i := 0; i < 4; i++ {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			_, msg, err := conn.ReadMessage()
			require.NoError(t, err)
			got = append(got, string(msg))
		}
		assert.Equal(t, []string{"2", "1", "0", "TIMER_FINISHED"}, got)
	})
}

func TestE2E_RearmAfterRestart(t *testing.T) {
	pool, cleanup := testdb.SetupTestDB(t)
	defer cleanup()
	testdb.TruncateTables(t, pool)
	ctx := context.Background()

	testdb.SeedGuest(t, pool, "g-1", time.Now())
	var id int64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO tasks (title, guest_id, timer_length, timer_active, timer_start, timer_stop)
		VALUES ('left running', 'g-1', 60, TRUE, now() - interval '2 minutes', now() - interval '1 minute')
		RETURNING id
	`).Scan(&id))

	app, err := New(testConfig(), pool, nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, app.Start(ctx))
	defer app.Stop()

	ok := testdb.WaitForCondition(t, 5*time.Second, func() bool {
		var active bool
		_ = pool.QueryRow(ctx, `SELECT timer_active FROM tasks WHERE id = $1`, id).Scan(&active)
		return !active
	})
	assert.True(t, ok, "overdue timer should expire after restart")
}
