package web

// homeTemplate is a single page front-end: it connects the websocket
// and posts json commands.
const homeTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>tivalink {{.Version}}</title>
<style>
body { font-family: monospace; margin: 2em; }
.open { color: green; } .closed { color: grey; } .err { color: red; }
input { width: 8em; }
</style>
</head>
<body>
<h3>tivalink <small>{{.Version}}</small></h3>
<p>
  <input id="port" value="{{.Device}}" placeholder="COM3">
  <button onclick="post('/connect', {Port: val('port')})">Start</button>
  <button onclick="post('/disconnect', {})">Stop</button>
  <span id="state" class="closed">Closed</span>
</p>
<p>
  <input id="time" placeholder="HH:MM:SS">
  <button onclick="post('/time', {Time: val('time')})">Set time</button>
  <input id="msg" maxlength="3" placeholder="ABC">
  <button onclick="post('/message', {Text: val('msg')})">Set message</button>
</p>
<table>
  <tr><td>Time</td><td id="t-time">-</td></tr>
  <tr><td>Reading</td><td id="t-reading">-</td></tr>
  <tr><td>Button</td><td id="t-button">-</td></tr>
</table>
<p id="error" class="err"></p>
<script>
function val(id) { return document.getElementById(id).value; }
function set(id, v) { document.getElementById(id).textContent = v; }
function post(path, body) {
  fetch(path, {method: 'POST', body: JSON.stringify(body)})
    .then(r => r.ok ? set('error', '') : r.text().then(t => set('error', t)));
}
var ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/websocket');
ws.onmessage = function(m) {
  var e = JSON.parse(m.data);
  var st = document.getElementById('state');
  st.textContent = e.State + (e.Port ? ' ' + e.Port : '');
  st.className = e.State === 'Open' ? 'open' : 'closed';
  if (e.Type === 'telemetry') {
    set('t-time', e.Telemetry.Time);
    set('t-reading', e.Telemetry.Reading);
    set('t-button', e.Telemetry.Button);
  } else if (e.Type === 'error') {
    set('error', e.Message);
  }
};
</script>
</body>
</html>
`
