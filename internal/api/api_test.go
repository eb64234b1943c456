package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/scholarwatch/scholarship-watcher/internal/catalog"
	"github.com/scholarwatch/scholarship-watcher/internal/domain"
	"github.com/scholarwatch/scholarship-watcher/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter(t *testing.T) (http.Handler, *store.JSONStore) {
	t.Helper()
	t.Setenv("COUNTRIES_CONFIG", "")
	s := store.NewJSONStore(filepath.Join(t.TempDir(), "subscribers.json"))
	loader := catalog.NewLoader(filepath.Join(t.TempDir(), "absent.json"))
	return NewRouter(s, loader, testLogger(), nil), s
}

func postJSON(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body["error"]
}

func TestSubscribe_NormalizesEmailAndCountries(t *testing.T) {
	router, s := newTestRouter(t)

	rec := postJSON(t, router, `{"email": "A@Example.com ", "countries": "no, se"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp domain.SubscribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if resp.Subscriber.Email != "a@example.com" {
		t.Errorf("email = %q, want %q", resp.Subscriber.Email, "a@example.com")
	}
	if !reflect.DeepEqual(resp.Subscriber.Countries, []string{"NO", "SE"}) {
		t.Errorf("countries = %v, want [NO SE]", resp.Subscriber.Countries)
	}

	stored, err := s.Load(context.Background(), true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored) != 1 || stored[0].Email != "a@example.com" || !stored[0].Active {
		t.Errorf("stored = %+v", stored)
	}
}

func TestSubscribe_CountriesAsNativeArray(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, `{"email": "x@y.com", "countries": ["no", "DE"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp domain.SubscribeResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !reflect.DeepEqual(resp.Subscriber.Countries, []string{"NO", "DE"}) {
		t.Errorf("countries = %v, want [NO DE]", resp.Subscriber.Countries)
	}
}

func TestSubscribe_CountriesAsStringifiedArray(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, `{"email": "x@y.com", "countries": "[\"no\",\"se\"]"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp domain.SubscribeResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !reflect.DeepEqual(resp.Subscriber.Countries, []string{"NO", "SE"}) {
		t.Errorf("countries = %v, want [NO SE]", resp.Subscriber.Countries)
	}
}

func TestSubscribe_FormEncodedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	form := url.Values{}
	form.Set("email", "form@example.com")
	form.Set("countries", "no,fi")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestSubscribe_WrongMethodIs405(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Method not allowed" {
		t.Errorf("error = %q, want %q", msg, "Method not allowed")
	}
}

func TestSubscribe_InvalidEmailIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, email := range []string{"bad", "no-at.example.com", "missing@dot", ""} {
		rec := postJSON(t, router, `{"email": "`+email+`", "countries": ["NO"]}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("email %q: status = %d, want 400", email, rec.Code)
			continue
		}
		if msg := decodeError(t, rec); msg != "Invalid email address" {
			t.Errorf("email %q: error = %q", email, msg)
		}
	}
}

func TestSubscribe_EmptyCountriesIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, `{"email": "x@y.com", "countries": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "At least one country must be selected" {
		t.Errorf("error = %q", msg)
	}
}

func TestSubscribe_ResubscribeMergesCountries(t *testing.T) {
	router, s := newTestRouter(t)

	postJSON(t, router, `{"email": "x@y.com", "countries": ["A", "B"]}`)
	rec := postJSON(t, router, `{"email": "x@y.com", "countries": ["B", "C"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	stored, err := s.Load(context.Background(), true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d records, want 1", len(stored))
	}
	if !reflect.DeepEqual(stored[0].Countries, []string{"A", "B", "C"}) {
		t.Errorf("countries = %v, want [A B C]", stored[0].Countries)
	}
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, sub domain.Subscriber) error {
	return errors.New("disk full")
}
func (failingStore) Load(ctx context.Context, activeOnly bool) ([]domain.Subscriber, error) {
	return nil, errors.New("disk full")
}
func (failingStore) Deactivate(ctx context.Context, email string) error {
	return errors.New("disk full")
}
func (failingStore) Close() {}

func TestSubscribe_StoreFailureIs500(t *testing.T) {
	t.Setenv("COUNTRIES_CONFIG", "")
	loader := catalog.NewLoader(filepath.Join(t.TempDir(), "absent.json"))
	router := NewRouter(failingStore{}, loader, testLogger(), nil)

	rec := postJSON(t, router, `{"email": "x@y.com", "countries": ["NO"]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Failed to save subscription" {
		t.Errorf("error = %q", msg)
	}
}

func TestCountries_DefaultListSortedWithCacheHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}

	var resp domain.CountriesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Countries) != 18 {
		t.Fatalf("got %d countries, want 18", len(resp.Countries))
	}
	if resp.Countries[0].Name != "Austria" {
		t.Errorf("first country = %q, want Austria (sorted by name)", resp.Countries[0].Name)
	}
	for i := 1; i < len(resp.Countries); i++ {
		if resp.Countries[i-1].Name > resp.Countries[i].Name {
			t.Errorf("countries not sorted: %q before %q",
				resp.Countries[i-1].Name, resp.Countries[i].Name)
		}
	}
}

func TestCountries_DisabledEntriesExcluded(t *testing.T) {
	t.Setenv("COUNTRIES_CONFIG", `{"countries": [
		{"code": "NO", "name": "Norway"},
		{"code": "SE", "name": "Sweden", "enabled": false}
	]}`)
	s := store.NewJSONStore(filepath.Join(t.TempDir(), "subscribers.json"))
	router := NewRouter(s, catalog.NewLoader("unused.json"), testLogger(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp domain.CountriesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Countries) != 1 || resp.Countries[0].Code != "NO" {
		t.Errorf("countries = %v, want only NO", resp.Countries)
	}
}
