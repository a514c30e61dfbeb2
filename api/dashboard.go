package api

import (
	"net/http"
)

// Dashboard serves a self-refreshing HTML view of /metrics
func Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>relaygate</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #0f172a;
            color: #e2e8f0;
            padding: 24px;
        }
        .container { max-width: 1100px; margin: 0 auto; }
        h1 { font-size: 1.8em; margin-bottom: 4px; }
        .sub { color: #94a3b8; margin-bottom: 24px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
            gap: 16px;
            margin-bottom: 24px;
        }
        .card { background: #1e293b; border-radius: 10px; padding: 18px; }
        .label { color: #94a3b8; font-size: 0.8em; text-transform: uppercase; letter-spacing: 0.05em; }
        .value { font-size: 1.9em; font-weight: 600; margin-top: 6px; }
        .ok { color: #4ade80; }
        .bad { color: #f87171; }
        .warn { color: #facc15; }
        table { width: 100%; border-collapse: collapse; background: #1e293b; border-radius: 10px; overflow: hidden; }
        th, td { padding: 10px 14px; text-align: left; }
        th { background: #334155; font-size: 0.8em; text-transform: uppercase; color: #cbd5e1; }
        tr:nth-child(even) td { background: #24324a; }
        .empty { text-align: center; color: #64748b; }
    </style>
</head>
<body>
<div class="container">
    <h1>relaygate</h1>
    <p class="sub">Up <span id="uptime">0s</span>, refreshing every 2s</p>

    <div class="grid">
        <div class="card"><div class="label">Requests</div><div class="value" id="total">0</div></div>
        <div class="card"><div class="label">Admitted</div><div class="value ok" id="admitted">0</div></div>
        <div class="card"><div class="label">Rate limited</div><div class="value bad" id="rejected">0</div></div>
        <div class="card"><div class="label">Relayed</div><div class="value" id="relayed">0</div></div>
        <div class="card"><div class="label">Upstream errors</div><div class="value bad" id="upstreamErrors">0</div></div>
        <div class="card"><div class="label">Redirects blocked</div><div class="value warn" id="redirectsBlocked">0</div></div>
        <div class="card"><div class="label">Active windows</div><div class="value" id="windows">0</div></div>
    </div>

    <table>
        <thead>
        <tr><th>Client</th><th>Requests</th><th>Admitted</th><th>Limited</th><th>Last seen</th></tr>
        </thead>
        <tbody id="clients">
        <tr><td colspan="5" class="empty">No requests yet</td></tr>
        </tbody>
    </table>
</div>

<script>
    const set = (id, n) => { document.getElementById(id).textContent = n.toLocaleString(); };

    function render(data) {
        set('total', data.total_requests);
        set('admitted', data.admitted_requests);
        set('rejected', data.rejected_requests);
        set('relayed', data.relayed);
        set('upstreamErrors', data.upstream_errors);
        set('redirectsBlocked', data.redirects_blocked);
        set('windows', data.active_windows);
        document.getElementById('uptime').textContent = data.uptime_seconds + 's';

        const body = document.getElementById('clients');
        const clients = data.top_clients || [];
        if (clients.length === 0) {
            body.innerHTML = '<tr><td colspan="5" class="empty">No requests yet</td></tr>';
            return;
        }
        body.replaceChildren(...clients.map(c => {
            const row = document.createElement('tr');
            const cells = [
                c.client_id,
                c.total_requests.toLocaleString(),
                c.admitted_requests.toLocaleString(),
                c.rejected_requests.toLocaleString(),
                new Date(c.last_request_at).toLocaleTimeString(),
            ];
            for (const text of cells) {
                const td = document.createElement('td');
                td.textContent = text;
                row.appendChild(td);
            }
            return row;
        }));
    }

    async function refresh() {
        try {
            const resp = await fetch('metrics');
            render(await resp.json());
        } catch (err) {
            console.error('metrics fetch failed:', err);
        }
    }

    refresh();
    setInterval(refresh, 2000);
</script>
</body>
</html>`
