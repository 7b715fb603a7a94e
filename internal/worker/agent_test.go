package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/apperr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAgentDispatchesUploadsAndClampsSleepAfterUpload(t *testing.T) {
	var pingCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pingCalls, 1)
		fmt.Fprint(w, "ARTICLE 1 #")
	})
	mux.HandleFunc("/ARTICLE/1", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		fmt.Fprint(w, "SLEEP 1 #")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.WorkerConfig{
		BaseURL:        srv.URL,
		MinSleep:       5 * time.Second,
		MaxAttempts:    5,
		BackoffStep:    15 * time.Minute,
		ClientVersion:  "1",
		HandlerVersion: "1",
	}

	agent := New(cfg, "peer-1", "host-1", discardLogger())
	agent.Register("ARTICLE", HandlerFunc(func(ctx context.Context, params string) (Result, error) {
		if params != "1" {
			t.Fatalf("handler params = %q, want 1", params)
		}
		return Result{Filename: "a.dat", Data: []byte("payload")}, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	var gotSleep time.Duration
	agent.sleepFn = func(_ context.Context, d time.Duration) {
		gotSleep = d
		cancel()
	}

	err := agent.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if gotSleep != cfg.MinSleep {
		t.Fatalf("sleep = %v, want clamp to MinSleep %v (server said 1s)", gotSleep, cfg.MinSleep)
	}
	if atomic.LoadInt32(&pingCalls) != 1 {
		t.Fatalf("ping calls = %d, want 1", pingCalls)
	}
}

func TestAgentReportsPermanentFailureThenClampsSleep(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ARTICLE 2 #")
	})
	mux.HandleFunc("/error/ARTICLE/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "SLEEP 1 #")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.WorkerConfig{
		BaseURL:        srv.URL,
		MinSleep:       3 * time.Second,
		MaxAttempts:    5,
		BackoffStep:    15 * time.Minute,
		ClientVersion:  "1",
		HandlerVersion: "1",
	}

	agent := New(cfg, "peer-1", "host-1", discardLogger())
	agent.Register("ARTICLE", HandlerFunc(func(ctx context.Context, params string) (Result, error) {
		return Result{}, apperr.HandlerPermanentFailure(errors.New("no such page"), "nothing for you to see")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	var gotSleep time.Duration
	agent.sleepFn = func(_ context.Context, d time.Duration) {
		gotSleep = d
		cancel()
	}

	if err := agent.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if gotSleep != cfg.MinSleep {
		t.Fatalf("sleep = %v, want clamp to MinSleep %v", gotSleep, cfg.MinSleep)
	}
}

func TestAgentGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.WorkerConfig{
		BaseURL:        srv.URL,
		MinSleep:       time.Second,
		MaxAttempts:    2,
		BackoffStep:    time.Millisecond,
		ClientVersion:  "1",
		HandlerVersion: "1",
	}

	agent := New(cfg, "peer-1", "host-1", discardLogger())
	agent.sleepFn = func(context.Context, time.Duration) {}

	err := agent.Run(context.Background())
	if err == nil {
		t.Fatalf("expected Run to give up and return an error")
	}
	if agent.State() != StateDead {
		t.Fatalf("state = %v, want DEAD", agent.State())
	}
	if got, want := atomic.LoadInt32(&calls), int32(cfg.MaxAttempts+1); got != want {
		t.Fatalf("ping calls = %d, want %d", got, want)
	}
}
