package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/wol-switch/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"switchState": status.SwitchState,
	"rfc3339": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Wake-on-LAN Switch</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
form { display: inline; }
button { font-family: monospace; padding: 4px 12px; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.failures { color: red; }
</style>
</head>
<body>
<h1>Wake-on-LAN Switch</h1>

<h2>Switch</h2>
<table>
<tr><th>State</th><td class="{{if .On}}on{{else}}off{{end}}">{{switchState .On}}</td></tr>
<tr><th>Target</th><td>{{.Config.TargetMAC}}{{if .Config.Interface}} via {{.Config.Interface}}{{end}}</td></tr>
<tr><th>Last wake</th><td>{{rfc3339 .LastWake}}</td></tr>
{{with .LastEvent}}<tr><th>Last event</th><td>{{.Type}} from {{.Source}}{{if .Failures}} <span class="failures">({{.Failures}} failed sends)</span>{{end}}</td></tr>{{end}}
</table>
<form method="post" action="/api/wake"><button type="submit">Wake</button></form>
<form method="post" action="/api/clear"><button type="submit">Clear</button></form>

<h2>Activity</h2>
<table>
<tr><th>Wakes</th><td>{{.Counts.Wakes}}</td></tr>
<tr><th>Clears</th><td>{{.Counts.Clears}}</td></tr>
<tr><th>Send failures</th><td{{if .Counts.SendFailures}} class="failures"{{end}}>{{.Counts.SendFailures}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{rfc3339 .StartTime}}</td></tr>
<tr><th>Broadcast</th><td>{{.Config.Broadcast}}</td></tr>
<tr><th>Window</th><td>{{.Config.WindowMs}}ms</td></tr>
<tr><th>Burst</th><td>{{.Config.Burst}}</td></tr>
<tr><th>Heartbeat</th><td>{{if le .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Button</th><td>{{if .Config.ButtonPin}}GPIO {{.Config.ButtonPin}}{{else}}disabled{{end}}</td></tr>
{{range .Config.Schedule}}<tr><th>Schedule</th><td>{{.}}</td></tr>{{end}}
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
