package api

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
)

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="30">
<title>Violet Sync Status</title>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 2rem; background: #f7f7fb; color: #222; }
h1 { font-size: 1.4rem; }
.cards { display: flex; flex-wrap: wrap; gap: 1rem; margin: 1rem 0; }
.card { background: #fff; border-radius: 8px; padding: 1rem 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); min-width: 9rem; }
.card .num { font-size: 1.6rem; font-weight: 600; }
.ok { color: #1a7f37; } .bad { color: #cf222e; }
table { border-collapse: collapse; width: 100%; background: #fff; border-radius: 8px; overflow: hidden; }
th, td { text-align: left; padding: .5rem .75rem; border-bottom: 1px solid #eee; font-size: .9rem; }
th { background: #fafafa; }
.tag { padding: .1rem .5rem; border-radius: 999px; font-size: .75rem; }
.tag-created { background: #dafbe1; color: #1a7f37; }
.tag-error { background: #ffebe9; color: #cf222e; }
.tag-duplicate { background: #fff8c5; color: #9a6700; }
.tag-skip { background: #eaeef2; color: #57606a; }
</style>
</head>
<body>
<h1>Violet Sync</h1>
<p>
Uptime: {{.Uptime}} ·
Salesforce: {{if .SFConnected}}<span class="ok">connected</span> ({{.SFInstance}}){{else}}<span class="bad">disconnected</span>{{end}} ·
Dead letters: {{.DeadLetterCount}}
</p>
<div class="cards">
<div class="card"><div class="num">{{.Stats.WebhooksReceived}}</div>webhooks</div>
<div class="card"><div class="num">{{.Stats.Created}}</div>created</div>
<div class="card"><div class="num">{{.Stats.Duplicates}}</div>duplicates</div>
<div class="card"><div class="num">{{.Stats.Skipped}}</div>skipped</div>
<div class="card"><div class="num">{{.Stats.Errors}}</div>errors</div>
</div>
<p>Last webhook: {{.Stats.LastWebhook}} · Last created: {{.Stats.LastCreated}}</p>
<table>
<tr><th>Time</th><th>Type</th><th>Chat</th><th>Detail</th></tr>
{{range .Stats.Recent}}
<tr><td>{{.Time}}</td><td><span class="tag tag-{{.Type}}">{{.Type}}</span></td><td>{{.ChatID}}</td><td>{{.Detail}}</td></tr>
{{else}}
<tr><td colspan="4">No events yet</td></tr>
{{end}}
</table>
</body>
</html>
`))

// StatusHandler renders the monitoring dashboard
// @Summary Status dashboard
// @Description HTML view of counters, Salesforce connectivity, and recent events
// @Tags ops
// @Produce html
// @Success 200 {string} string "HTML"
// @Router /status [get]
func (a *API) StatusHandler(w http.ResponseWriter, r *http.Request) {
	instance, err := a.sf.CheckConnection(r.Context())
	sfOK := err == nil

	dlCount, err := a.store.Count(r.Context())
	if err != nil {
		log.Printf("[Status] dead letter count failed: %v", err)
	}

	snap := a.stats.Snapshot()
	data := struct {
		Uptime          string
		SFConnected     bool
		SFInstance      string
		DeadLetterCount int
		Stats           Snapshot
	}{
		Uptime:          fmt.Sprintf("%dh %dm", snap.UptimeSeconds/3600, (snap.UptimeSeconds%3600)/60),
		SFConnected:     sfOK,
		SFInstance:      instance,
		DeadLetterCount: dlCount,
		Stats:           snap,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTemplate.Execute(w, data); err != nil {
		log.Printf("[Status] template render failed: %v", err)
	}
}
