package httpapi

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/domain/clientreg"
	"github.com/tmacam/dcrawl/internal/domain/scheduler"
	"github.com/tmacam/dcrawl/internal/domain/taskqueue"
	"github.com/tmacam/dcrawl/internal/protocol"
	"github.com/tmacam/dcrawl/internal/store/fsstore"
)

type testDeps struct {
	Deps
	articleDone *fsstore.Store
}

func newTestDeps(t *testing.T) testDeps {
	t.Helper()
	root := t.TempDir()
	sched := scheduler.New(config.SchedulerConfig{
		Interval:             time.Minute,
		SleepDelaySeconds:    10,
		MaxReadyWorks:        4,
		MinLivenessIntervals: 10,
		MinLivenessCycles:    2,
	})

	openStore := func(name string) *fsstore.Store {
		s, err := fsstore.Open(filepath.Join(root, name))
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		return s
	}

	articlePending := openStore("article/pending")
	articleDone := openStore("article/done")
	articleErr := openStore("article/erroneous")
	articleCtrl := taskqueue.New("ARTICLE", articlePending, articleDone, articleErr, sched, filepath.Join(root, "artifacts"))

	clientsStore := openStore("clients")
	registry := clientreg.New(clientsStore, sched)

	return testDeps{
		Deps: Deps{
			Scheduler:   sched,
			Clients:     registry,
			Controllers: map[string]*taskqueue.Controller{"ARTICLE": articleCtrl},
		},
		articleDone: articleDone,
	}
}

func TestPingRejectsMissingClientID(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps.Deps)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPingReturnsSleepWhenNoWork(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps.Deps)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("client-id", "peer-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "SLEEP ") {
		t.Fatalf("body = %q, want SLEEP command", rec.Body.String())
	}
}

func TestTaskResultUploadRoundTrip(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps.Deps)

	if err := deps.Controllers["ARTICLE"].AddJob(t.Context(), "1105010/423"); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	body := protocol.EncodeResult("1105010/423", "article.xml.gz", []byte("compressed-bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/ARTICLE/1105010/423", strings.NewReader(string(body)))
	req.Header.Set("client-id", "peer-1")
	req.Header.Set("Content-Type", protocol.ResultContentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "SLEEP ") {
		t.Fatalf("body = %q, want SLEEP command", rec.Body.String())
	}

	done, ok, err := deps.articleDone.Get(t.Context(), "1105010/423")
	if err != nil || !ok || done != "1" {
		t.Fatalf("expected article marked done in done store: %q %v %v", done, ok, err)
	}
}

func TestTaskErrorMarksJobErroneous(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps.Deps)

	if err := deps.Controllers["ARTICLE"].AddJob(t.Context(), "1105010/999"); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/error/ARTICLE/1105010/999", nil)
	req.Header.Set("client-id", "peer-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "SLEEP ") {
		t.Fatalf("body = %q, want SLEEP command", rec.Body.String())
	}
}

func TestClientsPageRendersAfterPing(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps.Deps)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("client-id", "peer-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/clients", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "peer-1") {
		t.Fatalf("expected peer-1 in clients page, got %s", rec.Body.String())
	}
}

func TestManageReschedulesInterval(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps.Deps)

	req := httptest.NewRequest(http.MethodPost, "/manage", strings.NewReader("interval=30"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if deps.Scheduler.Interval() != 30*time.Second {
		t.Fatalf("interval = %v, want 30s", deps.Scheduler.Interval())
	}
}

func TestManageRequiresAdminTokenWhenConfigured(t *testing.T) {
	deps := newTestDeps(t)
	deps.AdminToken = "secret"
	router := NewRouter(deps.Deps)

	req := httptest.NewRequest(http.MethodGet, "/manage", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/manage", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with correct token", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps.Deps)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}
