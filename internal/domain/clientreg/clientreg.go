// Package clientreg implements the Client Registry: a durable record
// of every worker peer that has ever contacted the coordinator, and a
// status view classifying each against the Scheduler's live peer map.
package clientreg

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tmacam/dcrawl/internal/apperr"
	"github.com/tmacam/dcrawl/internal/domain/scheduler"
	"github.com/tmacam/dcrawl/internal/store"
)

const unknownField = "UNKNOWN"

const recordFieldCount = 4

// Registry durably tracks per-peer client metadata and renders a
// liveness-classified status view.
type Registry struct {
	store store.Store
	sched *scheduler.Scheduler
}

// New builds a Registry backed by store and checking liveness against
// sched's peer map.
func New(s store.Store, sched *scheduler.Scheduler) *Registry {
	return &Registry{store: s, sched: sched}
}

// record is the in-memory form of the delimited string persisted per
// peer: "hostname#worker_version#handler_version#lifetime_jobs_done".
type record struct {
	hostname         string
	workerVersion    string
	handlerVersion   string
	lifetimeJobsDone int
}

func (r record) encode() string {
	return strings.Join([]string{
		r.hostname,
		r.workerVersion,
		r.handlerVersion,
		strconv.Itoa(r.lifetimeJobsDone),
	}, "#")
}

func decodeRecord(s string) (record, error) {
	fields := strings.Split(s, "#")
	if len(fields) != recordFieldCount {
		return record{}, fmt.Errorf("clientreg: malformed record %q", s)
	}
	n, err := strconv.Atoi(fields[3])
	if err != nil {
		return record{}, fmt.Errorf("clientreg: malformed lifetime_jobs_done in %q: %w", s, err)
	}
	return record{hostname: fields[0], workerVersion: fields[1], handlerVersion: fields[2], lifetimeJobsDone: n}, nil
}

// headerOrUnknown returns header's value, or the literal UNKNOWN if
// absent or empty.
func headerOrUnknown(h http.Header, name string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	return unknownField
}

// UpdateClientStats extracts the peer identifier from the client-id
// header, rewrites the peer's durable record with the current
// client-hostname/client-version/client-arver headers, optionally
// incrementing its lifetime job count, and returns the peer
// identifier. It fails with apperr.InvalidClientID if client-id is
// missing or empty.
func (r *Registry) UpdateClientStats(ctx context.Context, headers http.Header, jobDone bool) (string, error) {
	peerID := headers.Get("client-id")
	if peerID == "" {
		return "", apperr.InvalidClientID("missing or empty client-id header")
	}

	rec := record{hostname: unknownField, workerVersion: unknownField, handlerVersion: unknownField}
	if existing, ok, err := r.store.Get(ctx, peerID); err != nil {
		return "", fmt.Errorf("clientreg: reading record for %s: %w", peerID, err)
	} else if ok {
		if decoded, err := decodeRecord(existing); err == nil {
			rec = decoded
		}
	}

	rec.hostname = headerOrUnknown(headers, "client-hostname")
	rec.workerVersion = headerOrUnknown(headers, "client-version")
	rec.handlerVersion = headerOrUnknown(headers, "client-arver")
	if jobDone {
		rec.lifetimeJobsDone++
	}

	if err := r.store.Set(ctx, peerID, rec.encode()); err != nil {
		return "", fmt.Errorf("clientreg: persisting record for %s: %w", peerID, err)
	}
	return peerID, nil
}

// Status is one peer's rendered state: its durable record plus its
// liveness classification against the Scheduler's peer map.
type Status struct {
	PeerID           string
	Hostname         string
	WorkerVersion    string
	HandlerVersion   string
	LifetimeJobsDone int
	Alive            bool
	LastSeen         time.Time
}

// Render returns the status of every known peer, sorted by peer
// identifier, for the /clients view.
func (r *Registry) Render(ctx context.Context) ([]Status, error) {
	livePeers := r.sched.Peers()

	var statuses []Status
	err := r.store.IterateKeys(ctx, func(peerID string) error {
		raw, ok, err := r.store.Get(ctx, peerID)
		if err != nil {
			return fmt.Errorf("clientreg: reading record for %s: %w", peerID, err)
		}
		if !ok {
			return nil
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil
		}
		lastSeen, alive := livePeers[peerID]
		statuses = append(statuses, Status{
			PeerID:           peerID,
			Hostname:         rec.hostname,
			WorkerVersion:    rec.workerVersion,
			HandlerVersion:   rec.handlerVersion,
			LifetimeJobsDone: rec.lifetimeJobsDone,
			Alive:            alive,
			LastSeen:         lastSeen,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].PeerID < statuses[j].PeerID })
	return statuses, nil
}
