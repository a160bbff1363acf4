package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"home_compare/internal/domain"
	"home_compare/internal/lib/logger/handlers/slogdiscard"
	minio "home_compare/internal/lib/minio/core"
	"home_compare/internal/services/address"
	"home_compare/internal/services/extraction"
	"home_compare/internal/services/preferences"
	"home_compare/internal/services/property"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockPropertyService — мок PropertyService.
type MockPropertyService struct {
	CreatePropertyFunc func(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (domain.Property, error)
	GetPropertyFunc    func(ctx context.Context, userID, id uuid.UUID) (domain.Property, error)
	UpdatePropertyFunc func(ctx context.Context, userID, id uuid.UUID, update domain.PropertyUpdate) (domain.Property, error)
	DeletePropertyFunc func(ctx context.Context, userID, id uuid.UUID) error
	ListRankedFunc     func(ctx context.Context, userID uuid.UUID, opts domain.SortOptions) ([]domain.RankedProperty, error)
	SuggestScoresFunc  func(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (*property.ScoreSuggestion, error)
	AddImageFunc       func(ctx context.Context, userID, id uuid.UUID, image minio.Image) (string, error)
}

func (m *MockPropertyService) CreateProperty(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (domain.Property, error) {
	return m.CreatePropertyFunc(ctx, userID, draft)
}
func (m *MockPropertyService) GetProperty(ctx context.Context, userID, id uuid.UUID) (domain.Property, error) {
	return m.GetPropertyFunc(ctx, userID, id)
}
func (m *MockPropertyService) UpdateProperty(ctx context.Context, userID, id uuid.UUID, update domain.PropertyUpdate) (domain.Property, error) {
	return m.UpdatePropertyFunc(ctx, userID, id, update)
}
func (m *MockPropertyService) DeleteProperty(ctx context.Context, userID, id uuid.UUID) error {
	return m.DeletePropertyFunc(ctx, userID, id)
}
func (m *MockPropertyService) ListRanked(ctx context.Context, userID uuid.UUID, opts domain.SortOptions) ([]domain.RankedProperty, error) {
	return m.ListRankedFunc(ctx, userID, opts)
}
func (m *MockPropertyService) SuggestScores(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (*property.ScoreSuggestion, error) {
	return m.SuggestScoresFunc(ctx, userID, draft)
}
func (m *MockPropertyService) AddImage(ctx context.Context, userID, id uuid.UUID, image minio.Image) (string, error) {
	return m.AddImageFunc(ctx, userID, id, image)
}

// MockAddressService — мок AddressService.
type MockAddressService struct {
	CreateAddressFunc func(ctx context.Context, userID uuid.UUID, in address.Input) (domain.ReferenceAddress, error)
	Addresses         []domain.ReferenceAddress
}

func (m *MockAddressService) CreateAddress(ctx context.Context, userID uuid.UUID, in address.Input) (domain.ReferenceAddress, error) {
	return m.CreateAddressFunc(ctx, userID, in)
}
func (m *MockAddressService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.ReferenceAddress, error) {
	return m.Addresses, nil
}
func (m *MockAddressService) UpdateAddress(ctx context.Context, userID, id uuid.UUID, in address.Input) (domain.ReferenceAddress, error) {
	return domain.ReferenceAddress{}, address.ErrAddressNotFound
}
func (m *MockAddressService) DeleteAddress(ctx context.Context, userID, id uuid.UUID) error {
	return address.ErrAddressNotFound
}

// MockPreferenceService — мок PreferenceService.
type MockPreferenceService struct {
	Config                 domain.ResolvedConfiguration
	SaveCriteriaFunc       func(ctx context.Context, userID uuid.UUID, prefs []domain.CriterionWeight) (domain.ResolvedConfiguration, error)
	CompleteOnboardingFunc func(ctx context.Context, userID uuid.UUID, in preferences.OnboardingInput) (*preferences.OnboardingResult, error)
}

func (m *MockPreferenceService) ResolvedConfiguration(ctx context.Context, userID uuid.UUID) domain.ResolvedConfiguration {
	return m.Config
}
func (m *MockPreferenceService) SaveCriteria(ctx context.Context, userID uuid.UUID, prefs []domain.CriterionWeight) (domain.ResolvedConfiguration, error) {
	return m.SaveCriteriaFunc(ctx, userID, prefs)
}
func (m *MockPreferenceService) CompleteOnboarding(ctx context.Context, userID uuid.UUID, in preferences.OnboardingInput) (*preferences.OnboardingResult, error) {
	return m.CompleteOnboardingFunc(ctx, userID, in)
}

// MockExtractionService — мок ExtractionService.
type MockExtractionService struct {
	ExtractFromURLFunc func(ctx context.Context, userID uuid.UUID, rawURL string) (domain.PropertyDraft, error)
}

func (m *MockExtractionService) ExtractFromURL(ctx context.Context, userID uuid.UUID, rawURL string) (domain.PropertyDraft, error) {
	return m.ExtractFromURLFunc(ctx, userID, rawURL)
}

const testSecret = "test-secret"

type testEnv struct {
	router      http.Handler
	auth        *Authenticator
	properties  *MockPropertyService
	addresses   *MockAddressService
	preferences *MockPreferenceService
	extraction  *MockExtractionService
	userID      uuid.UUID
	token       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		auth:        NewAuthenticator(testSecret, false),
		properties:  &MockPropertyService{},
		addresses:   &MockAddressService{},
		preferences: &MockPreferenceService{},
		extraction:  &MockExtractionService{},
		userID:      uuid.New(),
	}

	token, err := env.auth.IssueToken(env.userID, time.Hour)
	require.NoError(t, err)
	env.token = token

	log := slogdiscard.NewDiscardLogger()
	h := NewHandler(log, env.properties, env.addresses, env.preferences, env.extraction)
	env.router = NewRouter(log, h, RouterOptions{Auth: env.auth, CORSOrigins: []string{"http://localhost:5173"}})
	return env
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)
	env.properties.ListRankedFunc = func(ctx context.Context, userID uuid.UUID, opts domain.SortOptions) ([]domain.RankedProperty, error) {
		return nil, nil
	}

	other := NewAuthenticator("other-secret", false)
	foreign, err := other.IssueToken(env.userID, time.Hour)
	require.NoError(t, err)
	expired, err := env.auth.IssueToken(env.userID, -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + env.token, want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuth_DisabledUsesHeader(t *testing.T) {
	auth := NewAuthenticator("", true)
	userID := uuid.New()

	var got uuid.UUID
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(userIDHeader, userID.String())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, userID, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListProperties_PassesSortOptions(t *testing.T) {
	env := newTestEnv(t)

	p := domain.Property{ID: uuid.New(), Title: "Flat", Costs: domain.MonthlyCosts{Rent: 1000, CondoFee: 200}}
	env.properties.ListRankedFunc = func(ctx context.Context, userID uuid.UUID, opts domain.SortOptions) ([]domain.RankedProperty, error) {
		assert.Equal(t, env.userID, userID)
		assert.Equal(t, domain.SortOptions{Key: domain.SortByTotalMonthlyCost, Direction: domain.OrderAsc}, opts)
		return []domain.RankedProperty{{Property: p, FinalScore: 7, AdjustedScore: 8}}, nil
	}

	w := env.do(http.MethodGet, "/api/v1/properties?sort=total_monthly_cost&order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Properties []rankedPropertyResponse `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Properties, 1)
	assert.Equal(t, 1200.0, resp.Properties[0].Property.TotalMonthlyCost)
	assert.Equal(t, 8.0, resp.Properties[0].AdjustedScore)
	assert.NotNil(t, resp.Properties[0].Bonuses)
}

func TestCreateProperty(t *testing.T) {
	env := newTestEnv(t)
	env.properties.CreatePropertyFunc = func(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (domain.Property, error) {
		if draft.Title == "" {
			return domain.Property{}, fmt.Errorf("create: %w", property.ErrInvalidProperty)
		}
		return domain.Property{ID: uuid.New(), OwnerUserID: userID, Title: draft.Title, Scores: draft.Scores, FinalScore: 6}, nil
	}

	w := env.do(http.MethodPost, "/api/v1/properties", map[string]any{
		"title":  "Loft",
		"scores": map[string]float64{"location": 6},
		"costs":  map[string]float64{"rent": 1500},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created propertyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Loft", created.Title)
	assert.Equal(t, 6.0, created.FinalScore)
	assert.Equal(t, []string{}, created.Images)

	w = env.do(http.MethodPost, "/api/v1/properties", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/v1/properties", map[string]any{"unknown": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPropertyErrorsMapToStatus(t *testing.T) {
	env := newTestEnv(t)
	env.properties.GetPropertyFunc = func(ctx context.Context, userID, id uuid.UUID) (domain.Property, error) {
		return domain.Property{}, fmt.Errorf("get: %w", property.ErrPropertyNotFound)
	}
	env.properties.DeletePropertyFunc = func(ctx context.Context, userID, id uuid.UUID) error {
		return fmt.Errorf("delete: db is down")
	}
	env.properties.SuggestScoresFunc = func(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (*property.ScoreSuggestion, error) {
		return nil, fmt.Errorf("suggest: %w", property.ErrFeatureRequiresSubscription)
	}

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/v1/properties/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/properties/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, env.do(http.MethodDelete, "/api/v1/properties/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/v1/properties/suggest-scores", map[string]any{"title": "x"}).Code)
}

func TestUpdateProperty_MapsCostsPatch(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()
	env.properties.UpdatePropertyFunc = func(ctx context.Context, userID, gotID uuid.UUID, update domain.PropertyUpdate) (domain.Property, error) {
		assert.Equal(t, id, gotID)
		require.NotNil(t, update.CondoFee)
		assert.Equal(t, 300.0, *update.CondoFee)
		assert.Nil(t, update.Rent)
		assert.Nil(t, update.Title)
		assert.Equal(t, domain.PropertyScores{"view": 9}, update.Scores)
		return domain.Property{ID: id, Title: "Flat"}, nil
	}

	w := env.do(http.MethodPatch, "/api/v1/properties/"+id.String(), map[string]any{
		"costs":  map[string]float64{"condo_fee": 300},
		"scores": map[string]float64{"view": 9},
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestExtractProperty(t *testing.T) {
	env := newTestEnv(t)
	env.extraction.ExtractFromURLFunc = func(ctx context.Context, userID uuid.UUID, rawURL string) (domain.PropertyDraft, error) {
		switch rawURL {
		case "https://example.com/ok":
			return domain.PropertyDraft{Title: "Found", SourceURL: &rawURL}, nil
		case "https://example.com/empty":
			return domain.PropertyDraft{}, fmt.Errorf("extract: %w", extraction.ErrNoListingData)
		case "http://169.254.169.254/latest":
			return domain.PropertyDraft{}, fmt.Errorf("extract: %w", extraction.ErrForbiddenHost)
		default:
			return domain.PropertyDraft{}, fmt.Errorf("extract: %w", extraction.ErrInvalidURL)
		}
	}

	w := env.do(http.MethodPost, "/api/v1/properties/extract", map[string]string{"url": "https://example.com/ok"})
	require.Equal(t, http.StatusOK, w.Code)
	var draft domain.PropertyDraft
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &draft))
	assert.Equal(t, "Found", draft.Title)

	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/api/v1/properties/extract", map[string]string{"url": "https://example.com/empty"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/properties/extract", map[string]string{"url": "nope"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/properties/extract", map[string]string{"url": "http://169.254.169.254/latest"}).Code)
}

func multipartImage(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()
	env.properties.AddImageFunc = func(ctx context.Context, userID, gotID uuid.UUID, image minio.Image) (string, error) {
		assert.Equal(t, id, gotID)
		assert.Equal(t, "photo.png", image.Filename)
		assert.Equal(t, "image/png", image.ContentType)
		data, err := io.ReadAll(image.Body)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
		return "https://cdn.example.com/properties/" + gotID.String() + "/x.png", nil
	}

	send := func(body *bytes.Buffer, ct string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/properties/"+id.String()+"/images", body)
		req.Header.Set("Authorization", "Bearer "+env.token)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	body, ct := multipartImage(t, "file", "photo.png", "image/png", []byte("png-bytes"))
	w := send(body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "x.png")

	body, ct = multipartImage(t, "file", "notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, send(body, ct).Code)

	body, ct = multipartImage(t, "other", "photo.png", "image/png", []byte("png-bytes"))
	assert.Equal(t, http.StatusBadRequest, send(body, ct).Code)
}

func TestUploadImage_StorageDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.properties.AddImageFunc = func(ctx context.Context, userID, id uuid.UUID, image minio.Image) (string, error) {
		return "", fmt.Errorf("add image: %w", minio.ErrDisabled)
	}

	body, ct := multipartImage(t, "file", "photo.jpg", "image/jpeg", []byte("jpg"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties/"+uuid.NewString()+"/images", body)
	req.Header.Set("Authorization", "Bearer "+env.token)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCriteriaEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.preferences.Config = domain.ResolvedConfiguration{
		ActiveCriteria: []domain.ActiveCriterion{{Key: "location", Label: "Location", Weight: 5}},
		Weights:        domain.CriteriaWeights{"location": 5},
		Source:         domain.SourceDefault,
	}
	env.preferences.SaveCriteriaFunc = func(ctx context.Context, userID uuid.UUID, prefs []domain.CriterionWeight) (domain.ResolvedConfiguration, error) {
		assert.Equal(t, []domain.CriterionWeight{{CriterionKey: "price", Weight: 80}}, prefs)
		return domain.ResolvedConfiguration{Source: domain.SourceCustom}, nil
	}
	env.preferences.CompleteOnboardingFunc = func(ctx context.Context, userID uuid.UUID, in preferences.OnboardingInput) (*preferences.OnboardingResult, error) {
		if !in.ProfileType.Known() && in.ProfileType != domain.ProfileUnspecified {
			return nil, fmt.Errorf("onboarding: %w", preferences.ErrInvalidProfileType)
		}
		return &preferences.OnboardingResult{ProfileType: domain.ProfileStudent, Confidence: 1}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/criteria", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "catalog is public")
	assert.Contains(t, w.Body.String(), `"public_transport"`)

	w = env.do(http.MethodGet, "/api/v1/me/criteria", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"default"`)

	w = env.do(http.MethodPut, "/api/v1/me/criteria", map[string]any{
		"criteria": []map[string]any{{"criterion_key": "price", "weight": 80}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"source":"custom"`)

	w = env.do(http.MethodPost, "/api/v1/me/onboarding", map[string]any{"profile_type": "student"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/v1/me/onboarding", map[string]any{"profile_type": "astronaut"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddresses(t *testing.T) {
	env := newTestEnv(t)
	lat, lng := -23.55, -46.63
	env.addresses.Addresses = []domain.ReferenceAddress{
		{ID: uuid.New(), Label: domain.AddressLabelWork, Address: "Av. Paulista, 1000", Latitude: &lat, Longitude: &lng},
	}
	env.addresses.CreateAddressFunc = func(ctx context.Context, userID uuid.UUID, in address.Input) (domain.ReferenceAddress, error) {
		if !in.Label.Valid() {
			return domain.ReferenceAddress{}, fmt.Errorf("create: %w", address.ErrInvalidLabel)
		}
		return domain.ReferenceAddress{ID: uuid.New(), UserID: userID, Label: in.Label, Address: in.Address}, nil
	}

	w := env.do(http.MethodGet, "/api/v1/addresses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"coordinates":{"lat":-23.55,"lng":-46.63}`)

	w = env.do(http.MethodPost, "/api/v1/addresses", map[string]string{"label": "school", "address": "Rua A, 1"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodPost, "/api/v1/addresses", map[string]string{"label": "gym", "address": "Rua B, 2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, "/api/v1/addresses/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
