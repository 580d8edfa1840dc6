package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/solar-tracker/internal/motor"
	"github.com/sweeney/solar-tracker/internal/status"
	"github.com/sweeney/solar-tracker/internal/tracker"
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
	"ohms": func(v float64) string {
		switch {
		case v >= 1e6:
			return fmt.Sprintf("%.2f MΩ", v/1e6)
		case v >= 1e3:
			return fmt.Sprintf("%.1f kΩ", v/1e3)
		}
		return fmt.Sprintf("%.0f Ω", v)
	},
	"ms": func(d time.Duration) string {
		return fmt.Sprintf("%dms", d.Milliseconds())
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Solar Tracker</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
img { max-width: 100%; }
.moving { color: #c60; font-weight: bold; }
.night { color: #448; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; background: orange; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
</style>
</head>
<body>
<h1>Solar Tracker<span id="live-dot" class="live-dot" title="connecting"></span></h1>

<h2>Tracker</h2>
<table>
<tr><th>State</th><td id="state" class="{{if .Status.Night}}night{{end}}">{{.Status.Tracker}}</td></tr>
<tr><th>Motor</th><td id="motor" class="{{if .Moving}}moving{{end}}">{{.Status.Motor}}</td></tr>
<tr><th>Direction</th><td id="direction">{{.Status.Direction}}</td></tr>
<tr><th>Next adjustment</th><td id="next">{{uptime .Status.UntilNextAdjustment}}</td></tr>
<tr><th>In state for</th><td>{{uptime .Status.SinceStateChange}}</td></tr>
<tr><th>Last movement</th><td>{{ms .Status.LastMovement}}</td></tr>
<tr><th>Movement history</th><td>{{.Status.HistoryCount}} moves, avg {{ms .Status.HistoryAverage}}</td></tr>
<tr><th>Reversal tries</th><td>{{.Status.ReversalTries}}</td></tr>
{{if .LastEvent}}<tr><th>Last event</th><td>{{.LastEvent}} at {{.LastEventAt.UTC.Format "15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Sensors</h2>
<table>
<tr><th>East</th><td id="east">{{ohms .Measurements.EastFiltered}} (raw {{.Measurements.EastRaw}})</td></tr>
<tr><th>West</th><td id="west">{{ohms .Measurements.WestFiltered}} (raw {{.Measurements.WestRaw}})</td></tr>
<tr><th>Brightness</th><td id="brightness">{{ohms .Measurements.Brightness}}</td></tr>
<tr><th>Read errors</th><td>{{.Status.SensorErrors}}</td></tr>
</table>
<img id="graph" src="/graph.png" alt="resistance history">

<h2>Faults</h2>
<table>
<tr><th>Interlock trips</th><td>{{.Status.InterlockTrips}}</td></tr>
<tr><th>Max move stops</th><td>{{.Status.MaxMoveStops}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
{{range .Counts}}<tr><th>{{.Name}}</th><td>{{.Count}}</td></tr>
{{end}}</table>

{{if .Params}}<h2>Parameters</h2>
<table>
{{range .Params}}<tr><th>{{.Name}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Outputs</th><td>{{.Config.GPIOBackend}} east={{.Config.PinEast}} west={{.Config.PinWest}}</td></tr>
<tr><th>Converter</th><td>{{.Config.ADCBackend}}</td></tr>
<tr><th>Parameter store</th><td>{{.Config.Store}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var graph = document.getElementById("graph");
  var frames = 0;

  function setText(id, v) {
    var el = document.getElementById(id);
    if (el) { el.textContent = v; }
  }

  function ohms(v) {
    if (v >= 1e6) { return (v / 1e6).toFixed(2) + " MΩ"; }
    if (v >= 1e3) { return (v / 1e3).toFixed(1) + " kΩ"; }
    return v.toFixed(0) + " Ω";
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { dot.className = "live-dot ok"; dot.title = "live"; };
    ws.onclose = function() {
      dot.className = "live-dot err";
      dot.title = "offline";
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        setText("state", s.tracker.state);
        setText("motor", s.tracker.motor);
        setText("direction", s.tracker.direction);
        setText("east", ohms(s.sensors.east.filtered_ohms) + " (raw " + s.sensors.east.raw_ohms + ")");
        setText("west", ohms(s.sensors.west.filtered_ohms) + " (raw " + s.sensors.west.raw_ohms + ")");
        setText("brightness", ohms(s.sensors.brightness_ohms));
        setText("next", s.tracker.next_adjustment_seconds + "s");
        if (++frames % 10 === 0) { graph.src = "/graph.png?" + Date.now(); }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

type countRow struct {
	Name  string
	Count int
}

type paramRow struct {
	Name  string
	Value float64
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	counts := make([]countRow, 0, len(tracker.EventTypes))
	for _, typ := range tracker.EventTypes {
		counts = append(counts, countRow{Name: string(typ), Count: snap.Counts[typ]})
	}

	names := make([]string, 0, len(snap.Params))
	for name := range snap.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	params := make([]paramRow, 0, len(names))
	for _, name := range names {
		params = append(params, paramRow{Name: name, Value: snap.Params[name]})
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Moving bool
		Counts []countRow
		Params []paramRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Moving:   snap.Status.Motor == motor.MovingEast || snap.Status.Motor == motor.MovingWest,
		Counts:   counts,
		Params:   params,
	}
	indexTmpl.Execute(w, data)
}
