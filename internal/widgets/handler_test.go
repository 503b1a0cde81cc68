package widgets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/sendrec/vidwidget/internal/widget"
)

type mockStorage struct {
	signed  map[string]string
	missing map[string]bool
	signErr error
}

func (m *mockStorage) ResolveSource(_ context.Context, src string, _ time.Duration) (string, error) {
	if m.signErr != nil {
		return "", m.signErr
	}
	if url, ok := m.signed[src]; ok {
		return url, nil
	}
	return src, nil
}

func (m *mockStorage) HeadObject(_ context.Context, key string) (int64, string, error) {
	if m.missing[key] {
		return 0, "", errors.New("not found")
	}
	return 1024, "video/mp4", nil
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func newRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/widgets/{id}/config", h.Config)
	r.Put("/api/widgets/{id}", h.Put)
	return r
}

const storedConfig = `{
	"name": "Support",
	"videos": [
		{"id": "intro", "title": "Intro", "src": "s3://videos/intro.mp4"},
		{"id": "demo", "title": "Demo", "src": "https://cdn.example.com/demo.mp4"}
	],
	"options": [{"id": "o1", "text": "Watch intro", "action": "playVideo", "payload": "intro"}]
}`

func TestConfigPresignsBucketSources(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT config FROM widgets`).
		WithArgs("w1").
		WillReturnRows(pgxmock.NewRows([]string{"config"}).AddRow([]byte(storedConfig)))

	store := &mockStorage{signed: map[string]string{"s3://videos/intro.mp4": "https://bucket.example.com/videos/intro.mp4?sig=abc"}}
	h := NewHandler(NewRepository(mock), store, "https://widgets.example.com")

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/widgets/w1/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cfg widget.Config
	if err := json.NewDecoder(rec.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := cfg.Videos[0].Source.URL; got != "https://bucket.example.com/videos/intro.mp4?sig=abc" {
		t.Errorf("expected presigned intro source, got %q", got)
	}
	if got := cfg.Videos[1].Source.URL; got != "https://cdn.example.com/demo.mp4" {
		t.Errorf("expected public source unchanged, got %q", got)
	}
	if cfg.RemoteEndpoint != "https://widgets.example.com" {
		t.Errorf("expected remote endpoint to default to base URL, got %q", cfg.RemoteEndpoint)
	}
	if cfg.Position.Vertical != "bottom" || cfg.Style.Width != 320 {
		t.Errorf("expected defaults applied, got %+v %+v", cfg.Position, cfg.Style)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet mock expectations: %v", err)
	}
}

func TestConfigUnknownWidget(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT config FROM widgets`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	rec := httptest.NewRecorder()
	newRouter(NewHandler(NewRepository(mock), nil, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/widgets/nope/config", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestConfigPresignFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT config FROM widgets`).
		WithArgs("w1").
		WillReturnRows(pgxmock.NewRows([]string{"config"}).AddRow([]byte(storedConfig)))

	h := NewHandler(NewRepository(mock), &mockStorage{signErr: errors.New("no credentials")}, "")
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/widgets/w1/config", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestPutStoresConfig(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO widgets`).
		WithArgs("w1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(true))

	h := NewHandler(NewRepository(mock), &mockStorage{}, "")
	req := httptest.NewRequest(http.MethodPut, "/api/widgets/w1", strings.NewReader(storedConfig))
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet mock expectations: %v", err)
	}
}

func TestPutRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		storage ObjectStorage
	}{
		{"duplicate video", `{"videos":[{"id":"a","src":"https://x/a.mp4"},{"id":"a","src":"https://x/b.mp4"}]}`, nil},
		{"missing source", `{"videos":[{"id":"a"}]}`, nil},
		{"bad position", `{"position":{"vertical":"middle"}}`, nil},
		{"bad option", `{"options":[{"id":"o","text":"x","action":"playVideo","payload":""}]}`, nil},
		{"bucket source without storage", `{"videos":[{"id":"a","src":"s3://a.mp4"}]}`, nil},
		{"bucket object missing", `{"videos":[{"id":"a","src":"s3://a.mp4"}]}`, &mockStorage{missing: map[string]bool{"a.mp4": true}}},
		{"name too long", `{"name":"` + strings.Repeat("n", 101) + `"}`, nil},
	}
	for _, tt := range tests {
		mock := newMock(t)
		h := NewHandler(NewRepository(mock), tt.storage, "")
		req := httptest.NewRequest(http.MethodPut, "/api/widgets/w1", strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		newRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d: %s", tt.name, rec.Code, rec.Body.String())
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("%s: unexpected database call: %v", tt.name, err)
		}
	}
}

func TestRepositoryExists(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("w1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewRepository(mock).Exists(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected widget to exist")
	}
}
