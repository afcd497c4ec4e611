package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"discipline-journal-go/internal/config"
	"discipline-journal-go/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a RemoteStore configured to use it.
func setupTestServer(handler http.Handler, maxRetries int) (*RemoteStore, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().
		SetBaseURL(server.URL+restPath).
		SetHeader("apikey", "test_api_key").
		SetHeader("Content-Type", "application/json")

	rs := &RemoteStore{
		client:     client,
		apiKey:     "test_api_key",
		logger:     zap.NewNop(),
		limiter:    rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		maxRetries: maxRetries,
	}
	return rs, server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestRemoteStore_GetProgress(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/rest/v1/user_progress", r.URL.Path)
			assert.Equal(t, "eq.alice", r.URL.Query().Get("user_id"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, "test_api_key", r.Header.Get("apikey"))
			writeJSON(w, http.StatusOK, `[{"user_id":"alice","streak":13,"level":3,"experience":260,"version":4}]`)
		})
		rs, server := setupTestServer(handler, 1)
		defer server.Close()

		p, err := rs.GetProgress(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, 13, p.Streak)
		assert.Equal(t, 4, p.Version)
	})

	t.Run("NotFound", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `[]`)
		})
		rs, server := setupTestServer(handler, 1)
		defer server.Close()

		_, err := rs.GetProgress(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("APIError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"message":"JWT expired"}`)
		})
		rs, server := setupTestServer(handler, 3)
		defer server.Close()

		_, err := rs.GetProgress(context.Background(), "alice")
		require.Error(t, err)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	})
}

func TestRemoteStore_UpdateProgress(t *testing.T) {
	t.Run("Conditional on version", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "eq.alice", r.URL.Query().Get("user_id"))
			assert.Equal(t, "eq.4", r.URL.Query().Get("version"))
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.EqualValues(t, 5, body["version"])
			assert.EqualValues(t, 300, body["experience"])
			_, hasID := body["id"]
			assert.False(t, hasID)

			writeJSON(w, http.StatusOK, `[{"user_id":"alice","experience":300,"version":5}]`)
		})
		rs, server := setupTestServer(handler, 1)
		defer server.Close()

		p := &models.UserProgress{ID: 7, UserID: "alice", Experience: 300, Version: 4}
		require.NoError(t, rs.UpdateProgress(context.Background(), p))
		assert.Equal(t, 5, p.Version)
	})

	t.Run("Conflict", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `[]`)
		})
		rs, server := setupTestServer(handler, 1)
		defer server.Close()

		p := &models.UserProgress{UserID: "alice", Version: 4}
		assert.ErrorIs(t, rs.UpdateProgress(context.Background(), p), ErrConflict)
		assert.Equal(t, 4, p.Version)
	})
}

func TestRemoteStore_CreateCheckIn(t *testing.T) {
	t.Run("Returns stored row", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rest/v1/daily_check_ins", r.URL.Path)
			writeJSON(w, http.StatusCreated, `[{"id":42,"user_id":"alice","check_in_date":"2024-05-01","xp_earned":76}]`)
		})
		rs, server := setupTestServer(handler, 1)
		defer server.Close()

		c := &models.DailyCheckIn{UserID: "alice", CheckInDate: "2024-05-01", XPEarned: 76}
		require.NoError(t, rs.CreateCheckIn(context.Background(), c))
		assert.Equal(t, uint(42), c.ID)
	})

	t.Run("Unique violation", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, `{"code":"23505","message":"duplicate key value"}`)
		})
		rs, server := setupTestServer(handler, 1)
		defer server.Close()

		err := rs.CreateCheckIn(context.Background(), &models.DailyCheckIn{UserID: "alice", CheckInDate: "2024-05-01"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestRemoteStore_RetriesServerErrors(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusServiceUnavailable, `{"message":"try later"}`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"id":1,"code":"streak_7","name":"Week Warrior","requirement_type":"streak","requirement_value":7,"bonus_multiplier":1.05}]`)
	})
	rs, server := setupTestServer(handler, 2)
	defer server.Close()

	achievements, err := rs.ListAchievements(context.Background())
	require.NoError(t, err)
	require.Len(t, achievements, 1)
	assert.Equal(t, models.RequirementStreak, achievements[0].RequirementType)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRemoteStore_SingleAttemptByDefault(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusBadGateway, `{}`)
	})
	rs, server := setupTestServer(handler, 1)
	defer server.Close()

	_, err := rs.ListRules(context.Background(), "alice", true)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRemoteStore_IncrementRuleCounter(t *testing.T) {
	var patches int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, `[{"id":3,"user_id":"alice","rule_text":"x","times_violated":4}]`)
		case http.MethodPatch:
			assert.Equal(t, "eq.4", r.URL.Query().Get("times_violated"))
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"times_violated":5}`, string(body))
			if atomic.AddInt32(&patches, 1) == 1 {
				// Lost the race the first time.
				writeJSON(w, http.StatusOK, `[]`)
				return
			}
			writeJSON(w, http.StatusOK, `[{"id":3,"times_violated":5}]`)
		}
	})
	rs, server := setupTestServer(handler, 1)
	defer server.Close()

	require.NoError(t, rs.IncrementRuleCounter(context.Background(), 3, CounterViolated))
	assert.Equal(t, int32(2), atomic.LoadInt32(&patches))
}

func TestNewRemoteStore(t *testing.T) {
	cfg := &config.Remote{URL: "https://example.supabase.co/", APIKey: "anon", RateLimit: 0, MaxRetries: 0, TimeoutSeconds: 5}
	rs := NewRemoteStore(cfg, zap.NewNop())
	assert.NotNil(t, rs)
	assert.Equal(t, "anon", rs.apiKey)
	assert.Equal(t, 1, rs.maxRetries)
	assert.Equal(t, "https://example.supabase.co/rest/v1", rs.client.BaseURL)
}
