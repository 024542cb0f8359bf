package web

import (
	"net/http"
)

// serveDashboard serves a minimal live page built on the JSON and SSE endpoints.
func serveDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Face Attendance</title>
    <style>
        body { font-family: system-ui, sans-serif; margin: 0; padding: 24px; background: #1a1a2e; color: #eee; }
        h1 { color: #00d9ff; margin-top: 0; }
        .grid { display: grid; grid-template-columns: 2fr 1fr; gap: 24px; }
        img { width: 100%; border-radius: 6px; background: #2a2a3e; min-height: 240px; }
        table { width: 100%; border-collapse: collapse; }
        td { padding: 4px 8px; border-bottom: 1px solid #2a2a3e; }
        #log { font-family: monospace; font-size: 13px; height: 240px; overflow-y: auto; background: #2a2a3e; padding: 8px; border-radius: 6px; }
        .recognized { color: #5f5; } .not_recognized, .no_face { color: #f77; } .free_period, .suppressed { color: #fc5; }
    </style>
</head>
<body>
    <h1>Face Attendance</h1>
    <div class="grid">
        <div>
            <img id="frame" alt="live frame">
            <h3>Events</h3>
            <div id="log"></div>
        </div>
        <div>
            <h3 id="period">Attendance</h3>
            <table id="counts"></table>
        </div>
    </div>
    <script>
        const frame = document.getElementById('frame');
        setInterval(() => { frame.src = '/api/v1/frame.jpg?t=' + Date.now(); }, 1000);

        async function refresh() {
            const res = await fetch('/api/v1/attendance');
            if (!res.ok) return;
            const data = await res.json();
            document.getElementById('period').textContent = data.period
                ? 'Period ' + data.period.period + (data.free ? ' (attendance disabled)' : '')
                : 'Attendance';
            const rows = data.counts.map(c => '<tr><td>' + c.identity + '</td><td>' + c.count + '</td></tr>');
            document.getElementById('counts').innerHTML = rows.join('');
        }
        refresh();
        setInterval(refresh, 3000);

        const log = document.getElementById('log');
        const es = new EventSource('/api/v1/events');
        ['recognized', 'not_recognized', 'no_face', 'free_period', 'suppressed'].forEach(type => {
            es.addEventListener(type, e => {
                const sig = JSON.parse(e.data);
                if (type === 'no_face') return;
                const line = document.createElement('div');
                line.className = type;
                line.textContent = new Date(sig.at).toLocaleTimeString() + ' ' + type + ' ' + (sig.identity || '') + (sig.count ? ' #' + sig.count : '');
                log.prepend(line);
            });
        });
    </script>
</body>
</html>`
