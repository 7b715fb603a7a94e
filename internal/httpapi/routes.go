package httpapi

import "net/http"

// NewRouter builds the Coordinator Service's request router: the
// bit-exact wire endpoints from spec.md §4.4, plus the ambient-stack
// additions (logging, panic recovery, an admin-token guard on the two
// control routes, and a liveness probe), following the teacher's
// pattern of a plain http.ServeMux with hand-registered routes.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /ping", http.HandlerFunc(handlePing(deps)))
	mux.Handle("POST /{task}/{params...}", http.HandlerFunc(handleTaskResult(deps)))
	mux.Handle("GET /error/{task}/{params...}", http.HandlerFunc(handleTaskError(deps)))
	mux.Handle("GET /clients", http.HandlerFunc(handleClients(deps)))
	mux.Handle("GET /healthz", http.HandlerFunc(handleHealthz))

	adminGuard := RequireAdminToken(deps.AdminToken)
	mux.Handle("GET /manage", adminGuard(http.HandlerFunc(handleManage(deps))))
	mux.Handle("POST /manage", adminGuard(http.HandlerFunc(handleManage(deps))))
	mux.Handle("GET /quitquitquit", adminGuard(http.HandlerFunc(handleQuitQuitQuit(deps))))

	handler := Recover(deps.logger())(Logging(deps.logger())(mux))
	return handler
}
