package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/apperr"
	"github.com/tmacam/dcrawl/internal/protocol"
)

// Transport speaks the Coordinator Service's wire protocol over HTTP:
// ping, result upload, and permanent-failure reporting. Every request
// carries the standard client-id/client-hostname/client-version/
// client-arver headers.
type Transport struct {
	baseURL string
	client  *http.Client
	headers http.Header
}

// NewTransport builds a Transport for the given worker identity.
func NewTransport(cfg config.WorkerConfig, peerID, hostname string) *Transport {
	return &Transport{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		headers: http.Header{
			"Client-Id":       {peerID},
			"Client-Hostname": {hostname},
			"Client-Version":  {cfg.ClientVersion},
			"Client-Arver":    {cfg.HandlerVersion},
		},
	}
}

func (t *Transport) applyHeaders(req *http.Request) {
	for k, v := range t.headers {
		req.Header[k] = v
	}
}

// Ping requests the next Command from the Coordinator.
func (t *Transport) Ping(ctx context.Context) (protocol.Command, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/ping", nil)
	if err != nil {
		return protocol.Command{}, apperr.TransportError(err, "build ping request")
	}
	t.applyHeaders(req)
	return t.doAndParse(req)
}

// Upload posts a task result to "/<task>/<params>" and returns the
// Command carried in the response body.
func (t *Transport) Upload(ctx context.Context, task, params string, result Result) (protocol.Command, error) {
	body := protocol.EncodeResult(params, result.Filename, result.Data, result.Extra)
	url := t.baseURL + "/" + task + "/" + params
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return protocol.Command{}, apperr.TransportError(err, "build upload request")
	}
	t.applyHeaders(req)
	req.Header.Set("Content-Type", protocol.ResultContentType)
	return t.doAndParse(req)
}

// ReportFailure tells the Coordinator that params is a known-permanent
// failure for task, grounded on the legacy client's "/nothing-error/"
// endpoint. The response carries the next Command, same as a ping.
func (t *Transport) ReportFailure(ctx context.Context, task, params string) (protocol.Command, error) {
	url := t.baseURL + "/error/" + task + "/" + params
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return protocol.Command{}, apperr.TransportError(err, "build error-report request")
	}
	t.applyHeaders(req)
	return t.doAndParse(req)
}

func (t *Transport) doAndParse(req *http.Request) (protocol.Command, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return protocol.Command{}, apperr.TransportError(err, "request to %s failed", req.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.Command{}, apperr.TransportError(err, "reading response body from %s", req.URL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return protocol.Command{}, apperr.TransportError(fmt.Errorf("status %s", resp.Status), "%s returned %s: %s", req.URL, resp.Status, strings.TrimSpace(string(body)))
	}

	cmd, err := protocol.ParseCommand(string(body))
	if err != nil {
		return protocol.Command{}, apperr.TransportError(err, "parsing command body %q from %s", string(body), req.URL)
	}
	return cmd, nil
}
