package httpapi

import (
	"html/template"
	"net/http"
	"time"

	"github.com/tmacam/dcrawl/internal/domain/clientreg"
	"github.com/tmacam/dcrawl/internal/util"
)

var manageTemplate = template.Must(template.New("manage").Parse(`<html>
<head><title>Manage Scheduler Parameters</title></head>
<body>
<h1>Current Settings</h1>
<dl>
	<dt>Interval</dt><dd>{{.IntervalSeconds}} seconds</dd>
</dl>
<form action="manage" method="post">
	New Interval: <input type="text" name="interval" />
	<input type="submit" value="Update"/>
</form>
<h1>Scheduler Status</h1>
<dl>
	<dt>Ready jobs</dt><dd>{{.Ready}}</dd>
	<dt>Active jobs</dt><dd>{{.Active}}</dd>
	<dt>Queued jobs</dt><dd>{{.Queued}}</dd>
	<dt>Active Clients</dt><dd>{{.Peers}}</dd>
</dl>
</body>
</html>`))

type manageView struct {
	IntervalSeconds int
	Ready           int
	Active          int
	Queued          int
	Peers           int
}

func renderManageStatus(w http.ResponseWriter, deps Deps) {
	stats := deps.Scheduler.Stats()
	view := manageView{
		IntervalSeconds: int(stats.Interval.Seconds()),
		Ready:           stats.ReadyQueueLen,
		Active:          stats.ActiveQueueLen,
		Queued:          stats.WorkQueueLen,
		Peers:           stats.PeerCount,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := manageTemplate.Execute(w, view); err != nil {
		deps.logger().Error("rendering manage status", "error", err)
	}
}

var clientsTemplate = template.Must(template.New("clients").Parse(`<html>
<head><title>Client Status</title></head>
<body>
<h1>Clients</h1>
<table class="clientState">
<thead>
<tr>
	<th>client-id</th><th>hostname</th><th>worker-version</th>
	<th>handler-version</th><th># jobs</th><th>state</th><th>last seen</th>
</tr>
</thead>
<tbody>
{{range .}}
<tr class="{{if .Alive}}ALIVE{{else}}DEAD{{end}}">
	<td>{{.PeerID}}</td>
	<td>{{.Hostname}}</td>
	<td>{{.WorkerVersion}}</td>
	<td>{{.HandlerVersion}}</td>
	<td>{{.LifetimeJobsDone}}</td>
	<td>{{if .Alive}}ALIVE{{else}}DEAD{{end}}</td>
	<td>{{.LastSeenAgo}}</td>
</tr>
{{end}}
</tbody>
</table>
</body>
</html>`))

type clientRow struct {
	clientreg.Status
	LastSeenAgo string
}

func renderClientsPage(w http.ResponseWriter, statuses []clientreg.Status) {
	now := time.Now()
	rows := make([]clientRow, 0, len(statuses))
	for _, s := range statuses {
		lastSeenAgo := "—"
		if s.Alive {
			lastSeenAgo = util.FormatProcessingDuration(now.Sub(s.LastSeen)) + " ago"
		}
		rows = append(rows, clientRow{Status: s, LastSeenAgo: lastSeenAgo})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = clientsTemplate.Execute(w, rows)
}
