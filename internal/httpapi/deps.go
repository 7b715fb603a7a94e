package httpapi

import (
	"log/slog"

	"github.com/tmacam/dcrawl/internal/domain/clientreg"
	"github.com/tmacam/dcrawl/internal/domain/scheduler"
	"github.com/tmacam/dcrawl/internal/domain/taskqueue"
)

// Deps collects everything NewRouter needs to bind the wire protocol
// to the domain layer.
type Deps struct {
	Scheduler   *scheduler.Scheduler
	Clients     *clientreg.Registry
	Controllers map[string]*taskqueue.Controller

	// Admit, when non-nil, is consulted before every job assignment
	// (the server-side pacing guard). Nil always admits.
	Admit scheduler.AdmitFunc

	// AdminToken gates /manage and /quitquitquit when non-empty.
	AdminToken string

	// Shutdown is invoked by /quitquitquit to begin a graceful stop. If
	// nil, /quitquitquit responds but takes no action.
	Shutdown func()

	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
