package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"home_compare/internal/config"
	"home_compare/internal/domain"
	"home_compare/internal/lib/llm"
	"home_compare/internal/lib/logger/handlers/slogdiscard"
	"home_compare/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLLMClient — мок llm.Client.
type MockLLMClient struct {
	Enabled             bool
	ExtractPropertyFunc func(ctx context.Context, req llm.ExtractPropertyRequest) (*llm.ExtractPropertyResponse, error)
	calls               int
}

func (m *MockLLMClient) SuggestScores(ctx context.Context, req llm.SuggestScoresRequest) (*llm.SuggestScoresResponse, error) {
	return nil, llm.ErrDisabled
}
func (m *MockLLMClient) ExtractProperty(ctx context.Context, req llm.ExtractPropertyRequest) (*llm.ExtractPropertyResponse, error) {
	m.calls++
	if m.ExtractPropertyFunc != nil {
		return m.ExtractPropertyFunc(ctx, req)
	}
	return &llm.ExtractPropertyResponse{}, nil
}
func (m *MockLLMClient) ClassifyProfile(ctx context.Context, req llm.ClassifyProfileRequest) (*llm.ClassifyProfileResponse, error) {
	return nil, llm.ErrDisabled
}
func (m *MockLLMClient) IsEnabled() bool { return m.Enabled }

// MockProfileReader — мок ProfileReader.
type MockProfileReader struct {
	Profile *domain.UserProfile
}

func (m *MockProfileReader) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	if m.Profile == nil {
		return nil, repository.ErrProfileNotFound
	}
	return m.Profile, nil
}

const completePage = `<html><head>
<title>Flat</title>
<script type="application/ld+json">
{"@type": "Apartment", "name": "Sunny flat", "numberOfRooms": 3,
 "address": "Rua Augusta, 100",
 "offers": {"@type": "Offer", "price": 3200},
 "image": "https://cdn.example.com/a.jpg"}
</script>
</head><body><p>Sunny flat</p></body></html>`

const plainPage = `<html><head>
<title>Studio downtown</title>
<meta property="og:image" content="https://cdn.example.com/og.jpg">
</head><body>
<p>Studio at Avenida Paulista 900. Rent 1800 per month, condo 300.</p>
</body></html>`

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(allowPrivate bool) config.ExtractionConfig {
	return config.ExtractionConfig{
		Timeout:           5 * time.Second,
		MaxBodyBytes:      1 << 20,
		UserAgent:         "test-agent",
		AllowPrivateHosts: allowPrivate,
	}
}

// newService собирает сервис, которому разрешено ходить на httptest-сервер в loopback.
func newService(profiles *MockProfileReader, llmClient llm.Client) *Service {
	return New(slogdiscard.NewDiscardLogger(), testConfig(true), profiles, llmClient, nil)
}

func subscriber() *MockProfileReader {
	return &MockProfileReader{Profile: &domain.UserProfile{SubscriptionActive: true}}
}

func TestExtractFromURL_StructuredData(t *testing.T) {
	srv := newServer(t, http.StatusOK, completePage)
	llmClient := &MockLLMClient{Enabled: true}
	svc := newService(subscriber(), llmClient)

	draft, err := svc.ExtractFromURL(context.Background(), uuid.New(), srv.URL+"/listing/1")
	require.NoError(t, err)

	assert.Equal(t, "Sunny flat", draft.Title)
	assert.Equal(t, "Rua Augusta, 100", draft.Address)
	assert.Equal(t, 3200.0, draft.Costs.Rent)
	assert.Equal(t, int32(3), draft.Bedrooms)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, draft.Images)
	require.NotNil(t, draft.SourceURL)
	assert.Equal(t, srv.URL+"/listing/1", *draft.SourceURL)
	assert.Zero(t, llmClient.calls, "complete structured data needs no LLM")
}

func TestExtractFromURL_LLMFillsMissingFields(t *testing.T) {
	srv := newServer(t, http.StatusOK, plainPage)
	llmClient := &MockLLMClient{
		Enabled: true,
		ExtractPropertyFunc: func(ctx context.Context, req llm.ExtractPropertyRequest) (*llm.ExtractPropertyResponse, error) {
			assert.Contains(t, req.PageText, "Avenida Paulista 900")
			title, address := "Ignored title", "Avenida Paulista, 900"
			rent, condo := 1800.0, 300.0
			return &llm.ExtractPropertyResponse{Title: &title, Address: &address, Rent: &rent, CondoFee: &condo}, nil
		},
	}
	svc := newService(subscriber(), llmClient)

	draft, err := svc.ExtractFromURL(context.Background(), uuid.New(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 1, llmClient.calls)
	assert.Equal(t, "Studio downtown", draft.Title, "page title is kept")
	assert.Equal(t, "Avenida Paulista, 900", draft.Address)
	assert.Equal(t, 2100.0, draft.Costs.Total())
	assert.Equal(t, []string{"https://cdn.example.com/og.jpg"}, draft.Images)
}

func TestExtractFromURL_NoSubscriptionSkipsLLM(t *testing.T) {
	srv := newServer(t, http.StatusOK, plainPage)
	llmClient := &MockLLMClient{Enabled: true}
	svc := newService(&MockProfileReader{}, llmClient)

	draft, err := svc.ExtractFromURL(context.Background(), uuid.New(), srv.URL)
	require.NoError(t, err)

	assert.Zero(t, llmClient.calls)
	assert.Equal(t, "Studio downtown", draft.Title)
	assert.Empty(t, draft.Address)
}

func TestExtractFromURL_Errors(t *testing.T) {
	empty := newServer(t, http.StatusOK, `<html><body><p>nothing here</p></body></html>`)
	missing := newServer(t, http.StatusNotFound, "gone")

	tests := []struct {
		name string
		url  string
		err  error
	}{
		{name: "relative url", url: "/listing/1", err: ErrInvalidURL},
		{name: "unsupported scheme", url: "ftp://example.com/x", err: ErrInvalidURL},
		{name: "not found", url: missing.URL, err: ErrFetchFailed},
		{name: "no data", url: empty.URL, err: ErrNoListingData},
	}

	svc := newService(&MockProfileReader{}, &MockLLMClient{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ExtractFromURL(context.Background(), uuid.New(), tt.url)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestExtractFromURL_RejectsInternalHosts(t *testing.T) {
	srv := newServer(t, http.StatusOK, completePage)
	svc := New(slogdiscard.NewDiscardLogger(), testConfig(false), &MockProfileReader{}, &MockLLMClient{}, nil)

	tests := []struct {
		name string
		url  string
	}{
		{name: "loopback test server", url: srv.URL},
		{name: "cloud metadata", url: "http://169.254.169.254/latest/meta-data/"},
		{name: "private network", url: "http://10.0.0.5/listing"},
		{name: "ipv6 loopback", url: "http://[::1]/listing"},
		{name: "ipv4-mapped loopback", url: "http://[::ffff:127.0.0.1]/listing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ExtractFromURL(context.Background(), uuid.New(), tt.url)
			assert.ErrorIs(t, err, ErrForbiddenHost)
		})
	}
}

func TestExtractFromURL_RedirectToInternalHostRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://127.0.0.2:1/internal", http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	svc := newService(&MockProfileReader{}, &MockLLMClient{})
	internal := netip.MustParseAddr("127.0.0.2")
	svc.guard.blocked = func(a netip.Addr) bool { return a == internal }

	_, err := svc.ExtractFromURL(context.Background(), uuid.New(), srv.URL)
	assert.ErrorIs(t, err, ErrForbiddenHost)
}

func TestIsForbiddenAddr(t *testing.T) {
	tests := []struct {
		addr      string
		forbidden bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"::1", true},
		{"fd00::1", true},
		{"fe80::1", true},
		{"::ffff:10.0.0.1", true},
		{"93.184.216.34", false},
		{"8.8.8.8", false},
		{"2606:4700:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.forbidden, isForbiddenAddr(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestHostGuard_Control(t *testing.T) {
	g := newHostGuard(false)

	assert.ErrorIs(t, g.control("tcp4", "127.0.0.1:80", nil), ErrForbiddenHost)
	assert.ErrorIs(t, g.control("tcp6", "[fe80::1]:443", nil), ErrForbiddenHost)
	assert.NoError(t, g.control("tcp4", "93.184.216.34:443", nil))

	assert.NoError(t, newHostGuard(true).control("tcp4", "127.0.0.1:80", nil))
}
