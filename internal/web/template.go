package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/garden-relay/internal/status"
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
	"countdown": func(ms int64) string {
		if ms <= 0 {
			return "—"
		}
		d := time.Duration(ms) * time.Millisecond
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("auto-off in %dm %02ds", m, s)
	},
	"lower": func(s string) string {
		if s == "ON" {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Garden Relay</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
small { color: #888; }
</style>
</head>
<body>
<h1>Garden Relay</h1>
<table>
<tr><th>Relay 1</th><td><span class="{{lower (printf "%s" .R1)}}">{{.R1}}</span> <small>{{countdown (index .RemainingMs 0)}}</small></td></tr>
<tr><th>Relay 2</th><td><span class="{{lower (printf "%s" .R2)}}">{{.R2}}</span> <small>{{countdown (index .RemainingMs 1)}}</small></td></tr>
<tr><th>Bitmask</th><td>0x{{printf "%02X" .Bits}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>BLE name</th><td>{{.Config.DeviceName}}</td></tr>
<tr><th>BLE central</th><td><span class="{{if .BLECentral}}connected{{else}}off{{end}}">{{if .BLECentral}}connected{{else}}none{{end}}</span></td></tr>
<tr><th>MQTT</th><td><span class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</span> <small>{{.Config.Broker}}</small></td></tr>
</table>
<h1>Event counts</h1>
<table>
<tr><th>Relay 1 on / off</th><td>{{.Counts.R1On}} / {{.Counts.R1Off}}</td></tr>
<tr><th>Relay 2 on / off</th><td>{{.Counts.R2On}} / {{.Counts.R2Off}}</td></tr>
<tr><th>Auto-off expiries</th><td>{{.Counts.Expired}}</td></tr>
</table>
<p><small>poll {{.Config.PollMs}}ms · auto-off {{.Config.AutoOffMs}}ms · <a href="/index.json">json</a></small></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render template: %v", err)
	}
}
