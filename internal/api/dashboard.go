package api

import "net/http"

// serveDashboard serves the single-page operator dashboard. The page itself
// is public; every data endpoint it calls requires a valid session, so an
// unauthenticated visitor only sees the login form.
func (s *Server) serveDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>SolarView</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<style>
  body { font-family: system-ui, sans-serif; margin: 0; background: #10141a; color: #e6e8eb; }
  header { padding: 12px 20px; background: #1a2029; display: flex; justify-content: space-between; align-items: center; }
  header h1 { font-size: 18px; margin: 0; }
  main { max-width: 960px; margin: 0 auto; padding: 20px; }
  .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 12px; margin-bottom: 20px; }
  .card { background: #1a2029; border-radius: 8px; padding: 14px; }
  .card .label { font-size: 12px; color: #8a94a3; text-transform: uppercase; }
  .card .value { font-size: 24px; margin-top: 4px; }
  .panel { background: #1a2029; border-radius: 8px; padding: 16px; margin-bottom: 20px; }
  .panel h2 { font-size: 14px; margin: 0 0 12px; color: #8a94a3; text-transform: uppercase; }
  label { display: block; margin: 8px 0; font-size: 14px; }
  input[type=number], input[type=text], input[type=password] { background: #10141a; border: 1px solid #2b3442; color: #e6e8eb; border-radius: 4px; padding: 6px 8px; }
  button { background: #2f81f7; color: #fff; border: none; border-radius: 4px; padding: 8px 16px; cursor: pointer; }
  button:hover { background: #4593ff; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #2b3442; }
  #login { position: fixed; inset: 0; background: #10141a; display: flex; align-items: center; justify-content: center; }
  #login form { background: #1a2029; padding: 24px; border-radius: 8px; width: 280px; }
  .hidden { display: none !important; }
  #gateway-state.ok { color: #3fb950; }
  #gateway-state.bad { color: #f85149; }
</style>
</head>
<body>
<div id="login" class="hidden">
  <form id="login-form">
    <h2>SolarView</h2>
    <label>Username <input type="text" id="login-user" autocomplete="username"></label>
    <label>Password <input type="password" id="login-pass" autocomplete="current-password"></label>
    <label><input type="checkbox" id="login-remember"> Remember me</label>
    <button type="submit">Sign in</button>
    <p id="login-error" style="color:#f85149"></p>
  </form>
</div>

<header>
  <h1>SolarView</h1>
  <div>
    <span id="gateway-state">-</span>
    <button id="logout" style="margin-left:12px">Logout</button>
  </div>
</header>

<main>
  <div class="cards">
    <div class="card"><div class="label">Solar production</div><div class="value" id="v-solar">-</div></div>
    <div class="card"><div class="label">Grid consumption</div><div class="value" id="v-grid">-</div></div>
    <div class="card"><div class="label">Home consumption</div><div class="value" id="v-home">-</div></div>
    <div class="card"><div class="label">Scale factor</div><div class="value" id="v-scale">-</div></div>
  </div>

  <div class="panel">
    <h2>Power</h2>
    <canvas id="chart" height="110"></canvas>
  </div>

  <div class="panel">
    <h2>Export control</h2>
    <form id="control-form">
      <label><input type="checkbox" id="c-limit"> Limit export</label>
      <label><input type="checkbox" id="c-auto"> Auto mode</label>
      <label>Power limit (W) <input type="number" id="c-power" min="0" step="100"></label>
      <label>Auto mode threshold (W) <input type="number" id="c-threshold" min="0" step="50"></label>
      <button type="submit">Apply</button>
    </form>
  </div>

  <div class="panel">
    <h2>Events</h2>
    <table><thead><tr><th>Time</th><th>Type</th><th>User</th><th>Details</th></tr></thead>
    <tbody id="events"></tbody></table>
  </div>
</main>

<script>
const maxPoints = 50;
const chart = new Chart(document.getElementById('chart'), {
  type: 'line',
  data: { labels: [], datasets: [
    { label: 'Solar (W)', data: [], borderColor: '#e3b341', tension: 0.3 },
    { label: 'Grid (W)', data: [], borderColor: '#f85149', tension: 0.3 },
    { label: 'Home (W)', data: [], borderColor: '#3fb950', tension: 0.3 },
  ]},
  options: { animation: false, scales: { x: { ticks: { color: '#8a94a3' } }, y: { ticks: { color: '#8a94a3' } } } }
});

function pushSample(s) {
  const t = new Date(s.timestamp).toLocaleTimeString();
  chart.data.labels.push(t);
  chart.data.datasets[0].data.push(s.solar_production_w);
  chart.data.datasets[1].data.push(s.grid_consumption_w);
  chart.data.datasets[2].data.push(s.home_consumption_w);
  while (chart.data.labels.length > maxPoints) {
    chart.data.labels.shift();
    chart.data.datasets.forEach(d => d.data.shift());
  }
  chart.update();
  document.getElementById('v-solar').textContent = s.solar_production_w.toFixed(0) + ' W';
  document.getElementById('v-grid').textContent = s.grid_consumption_w.toFixed(0) + ' W';
  document.getElementById('v-home').textContent = s.home_consumption_w.toFixed(0) + ' W';
  document.getElementById('v-scale').textContent = s.scale_factor + ' %';
}

async function api(path, opts) {
  const res = await fetch(path, opts);
  if (res.status === 401) {
    document.getElementById('login').classList.remove('hidden');
    throw new Error('unauthorized');
  }
  return res.json();
}

async function refresh() {
  const status = await api('/api/status');
  const el = document.getElementById('gateway-state');
  el.textContent = status.gateway_state;
  el.className = status.gateway_state === 'connected' ? 'ok' : 'bad';
  if (status.last_sample) pushSample(status.last_sample);

  const hist = await api('/api/history');
  chart.data.labels = [];
  chart.data.datasets.forEach(d => d.data = []);
  hist.samples.forEach(pushSample);

  const ctl = await api('/api/control');
  document.getElementById('c-limit').checked = ctl.limit_export;
  document.getElementById('c-auto').checked = ctl.auto_mode;
  document.getElementById('c-power').value = ctl.power_limit_w;
  document.getElementById('c-threshold').value = ctl.auto_mode_threshold_w;

  const ev = await api('/api/events?limit=20');
  document.getElementById('events').innerHTML = ev.events.map(e =>
    '<tr><td>' + new Date(e.timestamp).toLocaleString() + '</td><td>' + e.type +
    '</td><td>' + (e.username || '') + '</td><td>' + (e.details || '') + '</td></tr>').join('');
}

function connectLive() {
  const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  const ws = new WebSocket(proto + location.host + '/api/live');
  ws.onmessage = ev => pushSample(JSON.parse(ev.data));
  ws.onclose = () => setTimeout(connectLive, 5000);
}

document.getElementById('login-form').addEventListener('submit', async ev => {
  ev.preventDefault();
  const res = await fetch('/api/auth/login', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({
      username: document.getElementById('login-user').value,
      password: document.getElementById('login-pass').value,
      remember: document.getElementById('login-remember').checked,
    }),
  });
  const body = await res.json();
  if (body.success) {
    document.getElementById('login').classList.add('hidden');
    refresh();
  } else {
    document.getElementById('login-error').textContent = body.message || 'Login failed';
  }
});

document.getElementById('control-form').addEventListener('submit', async ev => {
  ev.preventDefault();
  await api('/api/control', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({
      limit_export: document.getElementById('c-limit').checked,
      auto_mode: document.getElementById('c-auto').checked,
      power_limit_w: parseFloat(document.getElementById('c-power').value) || 0,
      auto_mode_threshold_w: parseFloat(document.getElementById('c-threshold').value) || 0,
    }),
  });
  refresh();
});

document.getElementById('logout').addEventListener('click', async () => {
  await fetch('/api/auth/logout', { method: 'POST' });
  location.reload();
});

refresh().then(connectLive).catch(() => {});
setInterval(() => refresh().catch(() => {}), 30000);
</script>
</body>
</html>
`
