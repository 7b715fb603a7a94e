// Package httpapi binds the wire protocol (spec.md §4.4) to the
// Scheduler, Client Registry, and Task Controllers: a thin layer of
// net/http handlers over http.ServeMux's pattern routing, in the
// teacher's style of hand-registered routes rather than a third-party
// router.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tmacam/dcrawl/internal/apperr"
	"github.com/tmacam/dcrawl/internal/protocol"
)

// handlePing answers GET /ping: refresh the caller's liveness, and
// return the Command it should act on next.
func handlePing(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		peerID, err := deps.Clients.UpdateClientStats(ctx, r.Header, false)
		if err != nil {
			writeAppError(w, deps, err)
			return
		}

		cmd := deps.Scheduler.Ping(peerID, false, deps.Admit)
		writeCommand(w, cmd)
	}
}

// handleTaskResult answers POST /{task}/{params...}: decode the
// uploaded multipart result, hand it to the owning Task Controller,
// and return the Command piggybacked on the response.
func handleTaskResult(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		task := r.PathValue("task")
		params := r.PathValue("params")

		controller, ok := deps.Controllers[task]
		if !ok {
			http.NotFound(w, r)
			return
		}

		peerID, err := deps.Clients.UpdateClientStats(ctx, r.Header, true)
		if err != nil {
			writeAppError(w, deps, err)
			return
		}

		upload, err := protocol.DecodeResult(r)
		if err != nil {
			writeAppError(w, deps, err)
			return
		}
		if params == "" {
			params = upload.SID
		}

		cmd, err := controller.HandleResult(ctx, peerID, params, upload)
		if err != nil {
			deps.logger().Error("handling task result", "task", task, "params", params, "error", err)
			writeAppError(w, deps, err)
			return
		}
		writeCommand(w, cmd)
	}
}

// handleTaskError answers GET /error/{task}/{params...}: a worker
// reports that params is a known-permanent failure for task (the
// "nothing-here" endpoint of spec.md §7), grounded on the legacy
// client's "/nothing-error/" call. The controller moves the job to
// its erroneous store; the response carries the next Command, exactly
// like a result upload.
func handleTaskError(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		task := r.PathValue("task")
		params := r.PathValue("params")

		controller, ok := deps.Controllers[task]
		if !ok {
			http.NotFound(w, r)
			return
		}

		peerID, err := deps.Clients.UpdateClientStats(ctx, r.Header, false)
		if err != nil {
			writeAppError(w, deps, err)
			return
		}

		if err := controller.MarkJobAsErroneous(ctx, params); err != nil {
			deps.logger().Error("marking job erroneous", "task", task, "params", params, "error", err)
			writeAppError(w, deps, err)
			return
		}

		cmd := deps.Scheduler.Ping(peerID, true, nil)
		writeCommand(w, cmd)
	}
}

// handleManage answers GET/POST /manage: a POST with form field
// interval=<seconds> reconfigures the beat period; both verbs then
// render the current status.
func handleManage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			if raw := r.PostForm.Get("interval"); raw != "" {
				seconds, err := parsePositiveSeconds(raw)
				if err != nil {
					http.Error(w, "invalid interval", http.StatusBadRequest)
					return
				}
				deps.Scheduler.Reschedule(time.Duration(seconds) * time.Second)
			}
		}

		renderManageStatus(w, deps)
	}
}

// handleClients answers GET /clients: the Client Registry's rendered
// ALIVE/DEAD status table.
func handleClients(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := deps.Clients.Render(r.Context())
		if err != nil {
			deps.logger().Error("rendering client registry", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		renderClientsPage(w, statuses)
	}
}

// handleQuitQuitQuit answers GET /quitquitquit: triggers a graceful
// shutdown of the process.
func handleQuitQuitQuit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.logger().Info("quitquitquit received, shutting down")
		fmt.Fprintln(w, "shutting down")
		if deps.Shutdown != nil {
			go deps.Shutdown()
		}
	}
}

// handleHealthz answers GET /healthz: an unconditional liveness probe
// for process supervisors, modeled on the teacher's health handler.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

func writeCommand(w http.ResponseWriter, cmd protocol.Command) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, cmd.String())
}

func writeAppError(w http.ResponseWriter, deps Deps, err error) {
	status := http.StatusInternalServerError
	switch apperr.GetCode(err) {
	case apperr.CodeInvalidClientID:
		status = http.StatusBadRequest
	case apperr.CodeWrongCommandFormat:
		status = http.StatusBadRequest
	case apperr.CodeUnknownJob:
		status = http.StatusNotFound
	}
	deps.logger().Warn("request rejected", "error", err, "status", status)
	http.Error(w, err.Error(), status)
}

func parsePositiveSeconds(raw string) (seconds int, err error) {
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %d", n)
	}
	return n, nil
}
