package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crosspostme/crosspost-agent/internal/catalog"
	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/store"
)

// ============================================================================
// MOCKS
// ============================================================================

type MockConnectionService struct {
	mock.Mock
}

func (m *MockConnectionService) Connect(ctx context.Context, platformID string) (domain.ConnectionAttempt, error) {
	args := m.Called(ctx, platformID)
	return args.Get(0).(domain.ConnectionAttempt), args.Error(1)
}

func (m *MockConnectionService) SubmitCredentials(ctx context.Context, attemptID string, values map[string]string) (domain.ConnectionAttempt, error) {
	args := m.Called(ctx, attemptID, values)
	return args.Get(0).(domain.ConnectionAttempt), args.Error(1)
}

func (m *MockConnectionService) ConfirmOAuthCompletion(ctx context.Context, attemptID string) (domain.ConnectionAttempt, error) {
	args := m.Called(ctx, attemptID)
	return args.Get(0).(domain.ConnectionAttempt), args.Error(1)
}

func (m *MockConnectionService) Cancel(ctx context.Context, attemptID string) (domain.ConnectionAttempt, error) {
	args := m.Called(ctx, attemptID)
	return args.Get(0).(domain.ConnectionAttempt), args.Error(1)
}

func (m *MockConnectionService) Disconnect(ctx context.Context, platformID string) error {
	args := m.Called(ctx, platformID)
	return args.Error(0)
}

func (m *MockConnectionService) Attempts() []domain.ConnectionAttempt {
	args := m.Called()
	return args.Get(0).([]domain.ConnectionAttempt)
}

func (m *MockConnectionService) Attempt(attemptID string) (domain.ConnectionAttempt, error) {
	args := m.Called(attemptID)
	return args.Get(0).(domain.ConnectionAttempt), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) Load(ctx context.Context) (*catalog.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Catalog), args.Error(1)
}

func (m *MockCatalogService) Reload(ctx context.Context) (*catalog.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Catalog), args.Error(1)
}

func (m *MockCatalogService) Describe(ctx context.Context, platformID string) (domain.PlatformDescriptor, error) {
	args := m.Called(ctx, platformID)
	return args.Get(0).(domain.PlatformDescriptor), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) IsConnected(platformID string) bool {
	args := m.Called(platformID)
	return args.Bool(0)
}

func (m *MockStore) Snapshot() []domain.ConnectedPlatform {
	args := m.Called()
	return args.Get(0).([]domain.ConnectedPlatform)
}

func (m *MockStore) Apply(ctx context.Context, mut store.Mutation) {
	m.Called(ctx, mut)
}

func (m *MockStore) Subscribe(obs store.Observer) func() {
	args := m.Called(obs)
	return args.Get(0).(func())
}

// newTestRouter mounts the handlers the way the server does so URL params
// resolve through chi.
func newTestRouter(h *PlatformHandlers) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/v1/platforms", h.HandleListPlatforms())
	r.Get("/api/v1/platforms/connected", h.HandleConnectedPlatforms())
	r.Post("/api/v1/platforms/{platform}/connect", h.HandleConnect())
	r.Delete("/api/v1/platforms/{platform}", h.HandleDisconnect())
	r.Get("/api/v1/attempts", h.HandleListAttempts())
	r.Get("/api/v1/attempts/{attemptID}", h.HandleGetAttempt())
	r.Post("/api/v1/attempts/{attemptID}/credentials", h.HandleSubmitCredentials())
	r.Post("/api/v1/attempts/{attemptID}/confirm", h.HandleConfirmAttempt())
	r.Post("/api/v1/attempts/{attemptID}/cancel", h.HandleCancelAttempt())
	return r
}

func sampleAttempt(phase domain.AttemptPhase) domain.ConnectionAttempt {
	return domain.ConnectionAttempt{
		ID:         "11111111-2222-3333-4444-555555555555",
		PlatformID: domain.PlatformOfferUp,
		Phase:      phase,
		StartedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
}

// ============================================================================
// CATALOG TESTS
// ============================================================================

func TestHandleListPlatforms_Success(t *testing.T) {
	cat := new(MockCatalogService)
	cat.On("Load", mock.Anything).Return(&catalog.Catalog{
		Platforms: []domain.PlatformDescriptor{{ID: domain.PlatformFacebook, AuthMethod: domain.AuthMethodOAuth}},
	}, nil)
	router := newTestRouter(NewPlatformHandlers(cat, new(MockStore), new(MockConnectionService)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), domain.PlatformFacebook)
	cat.AssertNotCalled(t, "Reload", mock.Anything)
}

func TestHandleListPlatforms_RefreshUsesReload(t *testing.T) {
	cat := new(MockCatalogService)
	cat.On("Reload", mock.Anything).Return(&catalog.Catalog{Stale: true}, nil)
	router := newTestRouter(NewPlatformHandlers(cat, new(MockStore), new(MockConnectionService)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms?refresh=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stale":true`)
	cat.AssertNotCalled(t, "Load", mock.Anything)
}

func TestHandleListPlatforms_Unavailable(t *testing.T) {
	cat := new(MockCatalogService)
	cat.On("Load", mock.Anything).Return(nil, domain.ErrCatalogUnavailable)
	router := newTestRouter(NewPlatformHandlers(cat, new(MockStore), new(MockConnectionService)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgListPlatformsFailed)
}

// ============================================================================
// CONNECTED LIST TESTS
// ============================================================================

func TestHandleConnectedPlatforms_Success(t *testing.T) {
	st := new(MockStore)
	st.On("Snapshot").Return([]domain.ConnectedPlatform{
		{PlatformID: domain.PlatformEbay, ConnectedAt: time.Now().UTC()},
	})
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), st, new(MockConnectionService)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms/connected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ConnectedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, domain.PlatformEbay, resp.Connected[0].PlatformID)
	st.AssertNotCalled(t, "Refresh", mock.Anything)
}

func TestHandleConnectedPlatforms_RefreshFailure(t *testing.T) {
	st := new(MockStore)
	st.On("Refresh", mock.Anything).Return(domain.ErrFetchFailed)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), st, new(MockConnectionService)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms/connected?refresh=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgBackendUnavailable)
}

// ============================================================================
// CONNECT TESTS
// ============================================================================

func TestHandleConnect_Success(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Connect", mock.Anything, domain.PlatformOfferUp).
		Return(sampleAttempt(domain.PhaseAwaitingCredentials), nil)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/platforms/offerup/connect", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.PhaseAwaitingCredentials))
}

func TestHandleConnect_MalformedPlatformIDRejected(t *testing.T) {
	conn := new(MockConnectionService)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/platforms/OfferUp/connect", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid platform identifier")
	conn.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything)
}

func TestHandleDisconnect_MalformedPlatformIDRejected(t *testing.T) {
	conn := new(MockConnectionService)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/platforms/x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	conn.AssertNotCalled(t, "Disconnect", mock.Anything, mock.Anything)
}

func TestHandleConnect_UnknownPlatform(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Connect", mock.Anything, "myspace").
		Return(domain.ConnectionAttempt{}, domain.ErrUnknownPlatform)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/platforms/myspace/connect", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgUnknownPlatform)
}

func TestHandleConnect_AlreadyInProgress(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Connect", mock.Anything, domain.PlatformOfferUp).
		Return(sampleAttempt(domain.PhaseAwaitingCredentials), domain.ErrAlreadyInProgress)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/platforms/offerup/connect", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgAlreadyConnecting)
}

// ============================================================================
// CREDENTIALS TESTS
// ============================================================================

func TestHandleSubmitCredentials_Success(t *testing.T) {
	attempt := sampleAttempt(domain.PhaseSucceeded)
	conn := new(MockConnectionService)
	conn.On("SubmitCredentials", mock.Anything, attempt.ID, map[string]string{
		"username": "seller42",
		"password": "hunter2",
	}).Return(attempt, nil)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	body, _ := json.Marshal(SubmitCredentialsRequest{Credentials: map[string]string{
		"username": "seller42",
		"password": "hunter2",
	}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/credentials", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.PhaseSucceeded))
	// Credential values never echo back.
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestHandleSubmitCredentials_InvalidJSON(t *testing.T) {
	conn := new(MockConnectionService)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attempts/abc/credentials", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	conn.AssertNotCalled(t, "SubmitCredentials", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSubmitCredentials_MissingFields(t *testing.T) {
	attempt := sampleAttempt(domain.PhaseAwaitingCredentials)
	conn := new(MockConnectionService)
	conn.On("SubmitCredentials", mock.Anything, attempt.ID, mock.Anything).
		Return(attempt, domain.ErrMissingFields)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	body, _ := json.Marshal(SubmitCredentialsRequest{Credentials: map[string]string{"username": "x"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/credentials", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgMissingCredentials)
}

func TestHandleSubmitCredentials_Rejected(t *testing.T) {
	attempt := sampleAttempt(domain.PhaseFailed)
	conn := new(MockConnectionService)
	conn.On("SubmitCredentials", mock.Anything, attempt.ID, mock.Anything).
		Return(attempt, domain.ErrRejectedByBackend)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	body, _ := json.Marshal(SubmitCredentialsRequest{Credentials: map[string]string{"username": "x", "password": "y"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/credentials", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgCredentialsRejected)
}

// ============================================================================
// ATTEMPT LIFECYCLE TESTS
// ============================================================================

func TestHandleGetAttempt_NotFound(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Attempt", "missing").Return(domain.ConnectionAttempt{}, domain.ErrNoActiveAttempt)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgNoSuchAttempt)
}

func TestHandleListAttempts(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Attempts").Return([]domain.ConnectionAttempt{sampleAttempt(domain.PhaseAwaitingOAuthRedirect)})
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp AttemptsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestHandleConfirmAttempt_WrongPhase(t *testing.T) {
	attempt := sampleAttempt(domain.PhaseAwaitingCredentials)
	conn := new(MockConnectionService)
	conn.On("ConfirmOAuthCompletion", mock.Anything, attempt.ID).
		Return(attempt, domain.ErrInvalidPhase)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/confirm", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgWrongPhase)
}

func TestHandleCancelAttempt_Success(t *testing.T) {
	cancelled := sampleAttempt(domain.PhaseFailed)
	cancelled.Reason = domain.ReasonUserCancelled
	conn := new(MockConnectionService)
	conn.On("Cancel", mock.Anything, cancelled.ID).Return(cancelled, nil)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attempts/"+cancelled.ID+"/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.ReasonUserCancelled))
}

// ============================================================================
// DISCONNECT TESTS
// ============================================================================

func TestHandleDisconnect_Success(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Disconnect", mock.Anything, domain.PlatformEbay).Return(nil)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/platforms/ebay", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), MsgDisconnectedSuccess)
}

func TestHandleDisconnect_NotConnected(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Disconnect", mock.Anything, domain.PlatformEbay).Return(domain.ErrNotConnected)
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/platforms/ebay", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgNotConnectedHTTP)
}

func TestHandleDisconnect_BackendFailure(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Disconnect", mock.Anything, domain.PlatformEbay).
		Return(errors.Join(domain.ErrDisconnectFailed, errors.New("backend down")))
	router := newTestRouter(NewPlatformHandlers(new(MockCatalogService), new(MockStore), conn))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/platforms/ebay", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), ErrMsgDisconnectFailedHTTP)
}
