package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/test-input/internal/logic"
	"github.com/sweeney/test-input/internal/status"
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
	"held": func(st logic.State) string {
		out := ""
		for _, b := range logic.Buttons {
			if st.Buttons[b] {
				if out != "" {
					out += " "
				}
				out += b.String()
			}
		}
		if out == "" {
			return "-"
		}
		return out
	},
	"phaseClass": func(p logic.Phase) string {
		switch p {
		case logic.PhaseQuiet:
			return "quiet"
		case logic.PhaseJoining:
			return "joining"
		}
		return "free"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Test Input</title>
<style>
body { font-family: monospace; max-width: 800px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.free { color: #888; }
.quiet { color: orange; }
.joining { color: green; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Test Input{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Devices</h2>
<table>
<tr><th>Handle</th><th>Phase</th><th>Join presses</th><th>Stick (lr, ud)</th><th>Held</th><th>Last event</th></tr>
{{range .Devices}}<tr id="dev-{{.Handle}}">
<td>{{.Handle}}</td>
<td class="{{phaseClass .Phase}}">{{.Phase}}</td>
<td>{{.State.JoinPressCount}}</td>
<td>{{.State.AxisLR}}, {{.State.AxisUD}}</td>
<td>{{held .State}}</td>
<td class="last">-</td>
</tr>{{else}}<tr><td colspan="6">no devices</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Axis</th><td>{{.Totals.AxisEvents}}</td></tr>
<tr><th>Button down</th><td>{{.Totals.ButtonDowns}}</td></tr>
<tr><th>Button up</th><td>{{.Totals.ButtonUps}}</td></tr>
<tr><th>Suppressed</th><td>{{.Totals.Suppressed}}</td></tr>
<tr><th>Resets</th><td>{{.Totals.Resets}}</td></tr>
<tr><th>Trigger presses</th><td>{{.TriggerPresses}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Reset every</th><td>{{if eq .Config.ResetEveryMs 0}}never{{else}}{{.Config.ResetEveryMs}}ms{{end}}</td></tr>
<tr><th>Reset pin</th><td>{{if eq .Config.ResetPin 0}}disabled{{else}}GPIO{{.Config.ResetPin}}{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var names = ["jump", "punch", "bomb", "pickup"];

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var f = JSON.parse(ev.data);
        var row = document.getElementById("dev-" + f.handle);
        if (!row) { return; }
        var cell = row.querySelector(".last");
        if (f.type === "axis") {
          cell.textContent = "axis " + f.id + " = " + f.value;
        } else if (f.type === "button") {
          cell.textContent = names[f.id] + (f.pressed ? " down" : " up");
        } else {
          cell.textContent = f.type;
        }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	// Snapshot has Uptime() and Totals() methods but the template needs fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Totals logic.Stats
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Totals:   snap.Totals(),
		Live:     live,
	}
	indexTmpl.Execute(w, data)
}
