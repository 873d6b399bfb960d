package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/sweeney/dht-sensor/internal/dht"
	"github.com/sweeney/dht-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": fmtDuration,
	"valid": func(v float64) bool {
		return !math.IsNaN(v)
	},
	"reading": fmtReading,
	"age": func(now, last time.Time) string {
		if last.IsZero() {
			return "never"
		}
		return fmtDuration(now.Sub(last)) + " ago"
	},
	"rate": func(st dht.Stats) string {
		attempts := st.Reads - st.CacheHits
		if attempts <= 0 {
			return "n/a"
		}
		return fmt.Sprintf("%.0f%%", 100*float64(st.Successes)/float64(attempts))
	},
	"meanRead": func(st dht.Stats) string {
		if st.Successes == 0 {
			return "n/a"
		}
		mean := st.SuccessTime / time.Duration(st.Successes)
		return fmt.Sprintf("%.1fms", float64(mean.Microseconds())/1000)
	},
}).Parse(indexHTML))

// fmtDuration renders a duration in the largest useful units.
func fmtDuration(d time.Duration) string {
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
}

// fmtReading renders a sensor value to one decimal, or "n/a" while no
// valid reading exists.
func fmtReading(v float64, unit string) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + unit
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DHT Sensor</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.ok { color: green; font-weight: bold; }
.stale { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>DHT Sensor</h1>

<h2>Sensors</h2>
<table>
<tr><th>Sensor</th><th>Model</th><th>Pin</th><th>Temperature</th><th>Humidity</th><th>Last reading</th></tr>
{{range .Sensors}}
<tr>
<td>{{.Name}}</td>
<td>{{.Model}}</td>
<td>{{.Pin}}</td>
<td class="{{if valid .Temperature}}ok{{else}}stale{{end}}">{{reading .Temperature "°C"}}</td>
<td class="{{if valid .Humidity}}ok{{else}}stale{{end}}">{{reading .Humidity "%"}}</td>
<td>{{age $.Now .LastSuccess}}</td>
</tr>
{{end}}
</table>

<h2>Read Statistics</h2>
<table>
<tr><th>Sensor</th><th>Reads</th><th>Successes</th><th>Cache hits</th><th>Success rate</th><th>Mean read</th></tr>
{{range .Sensors}}
<tr>
<td>{{.Name}}</td>
<td>{{.Stats.Reads}}</td>
<td>{{.Stats.Successes}}</td>
<td>{{.Stats.CacheHits}}</td>
<td>{{rate .Stats}}</td>
<td>{{meanRead .Stats}}</td>
</tr>
{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}{{if .Config.Chip}} ({{.Config.Chip}}){{end}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
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
	indexTmpl.Execute(w, data)
}
