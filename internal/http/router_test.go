package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"corpusqa/internal/rag"
	"corpusqa/internal/storage"
	"corpusqa/internal/storage/mocks"
)

type stubEngine struct {
	resp rag.AskResponse
}

func (s *stubEngine) Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	return s.resp, nil
}

type stubCounter struct{}

func (stubCounter) Count(ctx context.Context) (int, error) { return 7, nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctrl := gomock.NewController(t)
	sourceRepo := mocks.NewMockSourceStore(ctrl)
	sourceRepo.EXPECT().ListAll(gomock.Any()).Return([]*storage.SourceRecord{}, nil).AnyTimes()

	return NewRouter(&Deps{
		RAGEngine:    &stubEngine{resp: rag.AskResponse{Answer: "ok"}},
		SourceRepo:   sourceRepo,
		ChunkCounter: stubCounter{},
		// StatsReader nil: the stats route is not mounted.
	})
}

func TestNewRouter_Routes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "health",
			method:     http.MethodGet,
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "ask",
			method:     http.MethodPost,
			path:       "/api/v1/ask",
			body:       `{"question": "what is a chunk?"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "sources",
			method:     http.MethodGet,
			path:       "/api/v1/sources",
			wantStatus: http.StatusOK,
		},
		{
			name:       "stats not mounted without a reader",
			method:     http.MethodGet,
			path:       "/api/v1/stats",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown path",
			method:     http.MethodGet,
			path:       "/api/v1/nope",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "ask rejects GET",
			method:     http.MethodGet,
			path:       "/api/v1/ask",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the request origin", got)
	}
}

func TestNewRouter_PanicRecovered(t *testing.T) {
	ctrl := gomock.NewController(t)
	sourceRepo := mocks.NewMockSourceStore(ctrl)

	router := NewRouter(&Deps{
		RAGEngine:    panickyEngine{},
		SourceRepo:   sourceRepo,
		ChunkCounter: stubCounter{},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader([]byte(`{"question": "q"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d after recovered panic", rec.Code, http.StatusInternalServerError)
	}
}

type panickyEngine struct{}

func (panickyEngine) Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	panic("boom")
}
