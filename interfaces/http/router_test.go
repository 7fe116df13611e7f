package httpiface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	appchat "github.com/richardiffusion/mrga/application/chat"
	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/domain/persistence"
	"github.com/richardiffusion/mrga/domain/station"
	"github.com/richardiffusion/mrga/infrastructure/observability"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) ChatOnce(ctx context.Context, prompt, providerID string) (*chat.Result, error) {
	args := m.Called(ctx, prompt, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Result), args.Error(1)
}

func (m *MockChatService) ChatStream(ctx context.Context, prompt, providerID string, onEvent chat.StreamHandler[chat.StreamEvent]) error {
	args := m.Called(ctx, prompt, providerID, onEvent)
	return args.Error(0)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) List(ctx context.Context) ([]station.Station, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]station.Station), args.Error(1)
}

func (m *MockCatalog) Get(ctx context.Context, id int) (*station.Station, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*station.Station), args.Error(1)
}

func (m *MockCatalog) Search(ctx context.Context, filter station.Filter) ([]station.Station, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]station.Station), args.Error(1)
}

func (m *MockCatalog) Create(ctx context.Context, in station.NewStation) (*station.Station, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*station.Station), args.Error(1)
}

func (m *MockCatalog) Update(ctx context.Context, id int, patch station.Patch) (*station.Station, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*station.Station), args.Error(1)
}

func (m *MockCatalog) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalog) Genres(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalog) Countries(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalog) Languages(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalog) Close() error {
	return nil
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, entity *persistence.ChatRecord) error {
	return m.Called(ctx, entity).Error(0)
}

func (m *MockChatRepository) Update(ctx context.Context, entity *persistence.ChatRecord) error {
	return m.Called(ctx, entity).Error(0)
}

func (m *MockChatRepository) FindByID(ctx context.Context, id uuid.UUID) (*persistence.ChatRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*persistence.ChatRecord), args.Error(1)
}

func (m *MockChatRepository) FindRecent(ctx context.Context, limit int) ([]*persistence.ChatRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*persistence.ChatRecord), args.Error(1)
}

func (m *MockChatRepository) Stats(ctx context.Context) ([]persistence.ProviderStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]persistence.ProviderStats), args.Error(1)
}

type staticProviders map[string]bool

func (p staticProviders) Credentials() map[string]bool { return p }

type staticCircuits map[string]string

func (c staticCircuits) GetCircuitStates() map[string]string { return c }

var testStations = []station.Station{
	{ID: 1, Name: "TSF Jazz", Genre: "Jazz", Country: "France", City: "Paris", Language: "French", Tags: []string{"jazz"}},
	{ID: 2, Name: "KEXP 90.3 FM", Genre: "Indie", Country: "USA", City: "Seattle", Language: "English", Tags: []string{}},
}

func newTestRouter() (*Router, *MockChatService, *MockCatalog) {
	service := &MockChatService{}
	catalog := &MockCatalog{}
	return NewRouter(service, catalog, []string{"*"}), service, catalog
}

func serve(router *Router, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.SetupRoutes().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_SetupRoutes(t *testing.T) {
	paths := func(r *Router) []string {
		var out []string
		for _, route := range r.SetupRoutes().Routes() {
			out = append(out, route.Method+" "+route.Path)
		}
		return out
	}

	router, _, _ := newTestRouter()
	routes := paths(router)
	for _, want := range []string{
		"GET /", "GET /api/health", "GET /live", "GET /ready", "GET /metrics",
		"POST /api/ai/chat", "POST /api/ai/chat-stream",
		"GET /api/radio-stations", "POST /api/radio-stations", "GET /api/radio-stations/search",
		"GET /api/radio-stations/:id", "PUT /api/radio-stations/:id", "DELETE /api/radio-stations/:id",
		"GET /api/genres", "GET /api/countries", "GET /api/languages",
	} {
		assert.Contains(t, routes, want)
	}
	assert.NotContains(t, routes, "GET /api/ai/stats", "history needs a repository")

	router.WithPersistence(&MockChatRepository{}, nil, nil)
	assert.Contains(t, paths(router), "GET /api/ai/stats")
	assert.Contains(t, paths(router), "GET /api/ai/requests/:id")
}

func TestRouter_Welcome(t *testing.T) {
	router, _, _ := newTestRouter()

	w := serve(router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Make Radio Great Again")
}

func TestRouter_HealthCheck(t *testing.T) {
	router, _, catalog := newTestRouter()
	catalog.On("List", mock.Anything).Return(testStations, nil)
	router.WithProviders(
		staticProviders{"openai": false, "deepseek": true},
		staticCircuits{"deepseek": "open"},
	)

	w := serve(router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["stations_count"])

	providers := body["checks"].(map[string]any)["providers"].(map[string]any)
	assert.Equal(t, map[string]any{"configured": true, "circuit": "open"}, providers["deepseek"])
	assert.Equal(t, map[string]any{"configured": false, "circuit": "closed"}, providers["openai"])
}

func TestRouter_HealthCheck_CatalogDown(t *testing.T) {
	router, _, catalog := newTestRouter()
	catalog.On("List", mock.Anything).Return(nil, errors.New("disk gone"))

	w := serve(router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode[map[string]any](t, w)["status"])

	w = serve(router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_Probes(t *testing.T) {
	router, _, catalog := newTestRouter()
	catalog.On("List", mock.Anything).Return(testStations, nil)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/live", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/ready", nil).Code)

	w := serve(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mrga_catalog_stations")
}

func TestRouter_Chat_Success(t *testing.T) {
	router, service, _ := newTestRouter()
	service.On("ChatOnce", mock.Anything, "jazz please", "openai").
		Return(&chat.Result{Response: "Try TSF Jazz", Provider: "openai"}, nil)

	w := serve(router, http.MethodPost, "/api/ai/chat", chat.ChatRequest{Prompt: "jazz please", Provider: "OpenAI"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, map[string]any{"response": "Try TSF Jazz", "provider": "openai"}, body)
	service.AssertExpectations(t)
}

func TestRouter_Chat_DefaultProvider(t *testing.T) {
	router, service, _ := newTestRouter()
	service.On("ChatOnce", mock.Anything, "anything", "deepseek").
		Return(&chat.Result{Response: "ok", Provider: "deepseek"}, nil)

	w := serve(router, http.MethodPost, "/api/ai/chat", map[string]string{"prompt": "anything"})

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestRouter_Chat_FallbackLooksLikeAnAnswer(t *testing.T) {
	router, service, _ := newTestRouter()
	service.On("ChatOnce", mock.Anything, "jazz from Paris", "deepseek").Return(&chat.Result{
		Response: appchat.Fallback("jazz from Paris"),
		Provider: "deepseek",
		Fallback: true,
		Reason:   "missing_credential",
	}, nil)

	counter := observability.FallbacksTotal.WithLabelValues("deepseek", "missing_credential")
	before := testutil.ToFloat64(counter)

	w := serve(router, http.MethodPost, "/api/ai/chat", chat.ChatRequest{Prompt: "jazz from Paris", Provider: "deepseek"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Len(t, body, 2, "no field tells a fallback apart")
	assert.Contains(t, body["response"], "TSF Jazz")
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRouter_Chat_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid provider", chat.NewError(chat.ErrInvalidProvider, "claude", nil), http.StatusBadRequest},
		{"empty prompt", chat.ErrPromptEmpty, http.StatusBadRequest},
		{"prompt too long", chat.ErrPromptTooLong, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, service, _ := newTestRouter()
			service.On("ChatOnce", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := serve(router, http.MethodPost, "/api/ai/chat", chat.ChatRequest{Prompt: "x", Provider: "claude"})
			assert.Equal(t, tt.code, w.Code)
			assert.NotEmpty(t, decode[chat.ErrorResponse](t, w).Error)
		})
	}
}

func TestRouter_Chat_InvalidJSON(t *testing.T) {
	router, service, _ := newTestRouter()

	w := serve(router, http.MethodPost, "/api/ai/chat", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "ChatOnce", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_ChatStream(t *testing.T) {
	router, service, _ := newTestRouter()
	service.On("ChatStream", mock.Anything, "chill music", "deepseek", mock.Anything).
		Run(func(args mock.Arguments) {
			emit := args.Get(3).(chat.StreamHandler[chat.StreamEvent])
			_ = emit(chat.ContentEvent("Hi"))
			_ = emit(chat.ContentEvent(" there"))
			_ = emit(chat.DoneEvent())
		}).
		Return(nil)

	w := serve(router, http.MethodPost, "/api/ai/chat-stream", chat.ChatRequest{Prompt: "chill music", Provider: "deepseek"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t,
		"data: {\"content\":\"Hi\",\"done\":false}\n\n"+
			"data: {\"content\":\" there\",\"done\":false}\n\n"+
			"data: {\"done\":true}\n\n",
		w.Body.String())
}

func TestRouter_ChatStream_ErrorFrame(t *testing.T) {
	router, service, _ := newTestRouter()
	service.On("ChatStream", mock.Anything, "x", "openai", mock.Anything).
		Run(func(args mock.Arguments) {
			emit := args.Get(3).(chat.StreamHandler[chat.StreamEvent])
			_ = emit(chat.ErrorEvent("openai api key not configured"))
		}).
		Return(nil)

	w := serve(router, http.MethodPost, "/api/ai/chat-stream", chat.ChatRequest{Prompt: "x", Provider: "openai"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data: {\"error\":\"openai api key not configured\"}\n\n", w.Body.String())
}

func TestRouter_RequestIDReachesService(t *testing.T) {
	router, service, _ := newTestRouter()
	clientID := uuid.New()
	service.On("ChatOnce", mock.MatchedBy(func(ctx context.Context) bool {
		return appchat.RequestIDFrom(ctx) == clientID
	}), "x", "deepseek").Return(&chat.Result{Response: "ok", Provider: "deepseek"}, nil)

	w := serve(router, http.MethodPost, "/api/ai/chat", chat.ChatRequest{Prompt: "x"}, "X-Request-ID", clientID.String())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, clientID.String(), w.Header().Get("X-Request-ID"))
	service.AssertExpectations(t)
}

func TestRouter_RequestIDMiddleware(t *testing.T) {
	router, _, _ := newTestRouter()

	t.Run("generated when missing", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/", nil)
		_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
		assert.NoError(t, err)
	})

	t.Run("correlation id accepted", func(t *testing.T) {
		id := uuid.New().String()
		w := serve(router, http.MethodGet, "/", nil, "X-Correlation-ID", id)
		assert.Equal(t, id, w.Header().Get("X-Request-ID"))
	})

	t.Run("non uuid is echoed separately", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/", nil, "X-Request-ID", "abc-123")
		assert.Equal(t, "abc-123", w.Header().Get("X-Client-Request-ID"))
		assert.NotEqual(t, "abc-123", w.Header().Get("X-Request-ID"))
	})
}

func TestRouter_CORS(t *testing.T) {
	service, catalog := &MockChatService{}, &MockCatalog{}
	router := NewRouter(service, catalog, []string{"http://localhost:3000", "http://localhost:5173"})

	w := serve(router, http.MethodGet, "/", nil, "Origin", "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")

	w = serve(router, http.MethodGet, "/", nil, "Origin", "http://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodOptions, "/api/radio-stations/1", nil, "Origin", "http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_Stations(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		router, _, catalog := newTestRouter()
		catalog.On("List", mock.Anything).Return(testStations, nil)

		w := serve(router, http.MethodGet, "/api/radio-stations", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]station.Station](t, w), 2)
	})

	t.Run("get", func(t *testing.T) {
		router, _, catalog := newTestRouter()
		catalog.On("Get", mock.Anything, 1).Return(&testStations[0], nil)
		catalog.On("Get", mock.Anything, 9).Return(nil, station.ErrNotFound)

		w := serve(router, http.MethodGet, "/api/radio-stations/1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "TSF Jazz", decode[station.Station](t, w).Name)

		assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/radio-stations/9", nil).Code)
		assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/radio-stations/abc", nil).Code)
	})

	t.Run("search binds query", func(t *testing.T) {
		router, _, catalog := newTestRouter()
		catalog.On("Search", mock.Anything, station.Filter{Query: "jazz", Genre: "all", Country: "France"}).
			Return(testStations[:1], nil)

		w := serve(router, http.MethodGet, "/api/radio-stations/search?q=jazz&genre=all&country=France", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]station.Station](t, w), 1)
		catalog.AssertExpectations(t)
	})

	t.Run("create", func(t *testing.T) {
		router, _, catalog := newTestRouter()
		in := station.NewStation{Name: "Radio Nova", Country: "France", Genre: "Eclectic", Language: "French", StreamURL: "https://example.com/nova"}
		created := in.Station(3)
		catalog.On("Create", mock.Anything, in).Return(&created, nil)

		w := serve(router, http.MethodPost, "/api/radio-stations", in)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 3, decode[station.Station](t, w).ID)

		w = serve(router, http.MethodPost, "/api/radio-stations", map[string]string{"name": "missing fields"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		router, _, catalog := newTestRouter()
		city := "Lyon"
		updated := testStations[0]
		updated.City = city
		catalog.On("Update", mock.Anything, 1, station.Patch{City: &city}).Return(&updated, nil)
		catalog.On("Update", mock.Anything, 9, mock.Anything).Return(nil, station.ErrNotFound)

		w := serve(router, http.MethodPut, "/api/radio-stations/1", map[string]string{"city": "Lyon"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Lyon", decode[station.Station](t, w).City)

		w = serve(router, http.MethodPut, "/api/radio-stations/9", map[string]string{"city": "Lyon"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		router, _, catalog := newTestRouter()
		catalog.On("Delete", mock.Anything, 1).Return(nil)
		catalog.On("Delete", mock.Anything, 2).Return(errors.New("disk full"))

		w := serve(router, http.MethodDelete, "/api/radio-stations/1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "deleted")

		assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodDelete, "/api/radio-stations/2", nil).Code)
	})

	t.Run("facets", func(t *testing.T) {
		router, _, catalog := newTestRouter()
		catalog.On("Genres", mock.Anything).Return([]string{"Indie", "Jazz"}, nil)
		catalog.On("Countries", mock.Anything).Return([]string{"France", "USA"}, nil)
		catalog.On("Languages", mock.Anything).Return([]string{"English", "French"}, nil)

		assert.Equal(t, []string{"Indie", "Jazz"}, decode[[]string](t, serve(router, http.MethodGet, "/api/genres", nil)))
		assert.Equal(t, []string{"France", "USA"}, decode[[]string](t, serve(router, http.MethodGet, "/api/countries", nil)))
		assert.Equal(t, []string{"English", "French"}, decode[[]string](t, serve(router, http.MethodGet, "/api/languages", nil)))
	})
}

func TestRouter_History(t *testing.T) {
	router, _, _ := newTestRouter()
	repo := &MockChatRepository{}
	router.WithPersistence(repo, nil, nil)

	id := uuid.New()
	record := &persistence.ChatRecord{ID: id, Provider: "deepseek", Prompt: "jazz", Status: persistence.RequestStatusCompleted}
	repo.On("FindRecent", mock.Anything, 10).Return([]*persistence.ChatRecord{record}, nil)
	repo.On("FindRecent", mock.Anything, maxHistoryLimit).Return([]*persistence.ChatRecord{}, nil)
	repo.On("FindByID", mock.Anything, id).Return(record, nil)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, persistence.ErrRecordNotFound)
	repo.On("Stats", mock.Anything).Return([]persistence.ProviderStats{{Provider: "deepseek", TotalRequests: 1}}, nil)

	w := serve(router, http.MethodGet, "/api/ai/requests?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]persistence.ChatRecord](t, w), 1)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/ai/requests?limit=100000", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/ai/requests?limit=-1", nil).Code)

	w = serve(router, http.MethodGet, "/api/ai/requests/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jazz", decode[persistence.ChatRecord](t, w).Prompt)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/ai/requests/"+uuid.New().String(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/ai/requests/not-a-uuid", nil).Code)

	w = serve(router, http.MethodGet, "/api/ai/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_requests":1`)
}
