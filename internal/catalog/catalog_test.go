package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crosspostme/crosspost-agent/internal/backend"
	"github.com/crosspostme/crosspost-agent/internal/domain"
)

// Mock objects
type MockClient struct {
	mock.Mock
}

func (m *MockClient) SupportedPlatforms(ctx context.Context) (map[string]backend.SupportedPlatform, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]backend.SupportedPlatform), args.Error(1)
}
func (m *MockClient) ConnectedPlatforms(ctx context.Context) ([]backend.ConnectedRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]backend.ConnectedRecord), args.Error(1)
}
func (m *MockClient) InitiateConnect(ctx context.Context, platform, redirectURI string) (*backend.InitiateResponse, error) {
	args := m.Called(ctx, platform, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.InitiateResponse), args.Error(1)
}
func (m *MockClient) SubmitCredentials(ctx context.Context, platform string, credentials map[string]string) error {
	args := m.Called(ctx, platform, credentials)
	return args.Error(0)
}
func (m *MockClient) Disconnect(ctx context.Context, platform string) error {
	args := m.Called(ctx, platform)
	return args.Error(0)
}
func (m *MockClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testPlatforms() map[string]backend.SupportedPlatform {
	return map[string]backend.SupportedPlatform{
		"facebook": {
			Name:           "Facebook Marketplace",
			OAuthAvailable: true,
		},
		"offerup": {
			Name:              "OfferUp",
			OAuthAvailable:    false,
			CredentialsNeeded: []string{"username", "password"},
			SecurityNote:      "Credentials are encrypted at rest",
		},
	}
}

func TestLoad_FetchesOncePerSession(t *testing.T) {
	client := new(MockClient)
	client.On("SupportedPlatforms", mock.Anything).Return(testPlatforms(), nil).Once()

	svc := NewService(client)
	ctx := context.Background()

	first, err := svc.Load(ctx)
	require.NoError(t, err)
	second, err := svc.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Platforms, second.Platforms)
	assert.False(t, second.Stale)
	client.AssertNumberOfCalls(t, "SupportedPlatforms", 1)
}

func TestLoad_NoCacheAndBackendDown(t *testing.T) {
	client := new(MockClient)
	client.On("SupportedPlatforms", mock.Anything).Return(nil, errors.New("connection refused"))

	svc := NewService(client)
	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestReload_FailureServesStaleCache(t *testing.T) {
	client := new(MockClient)
	client.On("SupportedPlatforms", mock.Anything).Return(testPlatforms(), nil).Once()
	client.On("SupportedPlatforms", mock.Anything).Return(nil, errors.New("backend down")).Once()

	svc := NewService(client)
	ctx := context.Background()

	fresh, err := svc.Load(ctx)
	require.NoError(t, err)
	require.False(t, fresh.Stale)

	stale, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, stale.Stale)
	assert.Equal(t, fresh.Platforms, stale.Platforms)
}

func TestReload_FailureWithoutCacheErrs(t *testing.T) {
	client := new(MockClient)
	client.On("SupportedPlatforms", mock.Anything).Return(nil, errors.New("backend down"))

	svc := NewService(client)
	_, err := svc.Reload(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestDescribe(t *testing.T) {
	client := new(MockClient)
	client.On("SupportedPlatforms", mock.Anything).Return(testPlatforms(), nil)

	svc := NewService(client)
	ctx := context.Background()

	desc, err := svc.Describe(ctx, "offerup")
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodCredentials, desc.AuthMethod)
	require.Len(t, desc.RequiredCredentialFields, 2)
	assert.Equal(t, "username", desc.RequiredCredentialFields[0].Name)
	assert.False(t, desc.RequiredCredentialFields[0].Sensitive)
	assert.Equal(t, "password", desc.RequiredCredentialFields[1].Name)
	assert.True(t, desc.RequiredCredentialFields[1].Sensitive)

	fb, err := svc.Describe(ctx, "facebook")
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodOAuth, fb.AuthMethod)
	assert.Empty(t, fb.RequiredCredentialFields)
}

func TestDescribe_UnknownPlatform(t *testing.T) {
	client := new(MockClient)
	client.On("SupportedPlatforms", mock.Anything).Return(testPlatforms(), nil)

	svc := NewService(client)
	_, err := svc.Describe(context.Background(), "myspace")
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}

func TestDescriptorsSortedByID(t *testing.T) {
	client := new(MockClient)
	client.On("SupportedPlatforms", mock.Anything).Return(testPlatforms(), nil)

	svc := NewService(client)
	cat, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Platforms, 2)
	assert.Equal(t, "facebook", cat.Platforms[0].ID)
	assert.Equal(t, "offerup", cat.Platforms[1].ID)
}
