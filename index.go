package main

import (
	"net/http"
	"os"
	"path/filepath"
)

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>CodeCanvas Sync Server</title>
<meta name="description" content="Realtime sync server for the CodeCanvas collaborative editor and whiteboard">
<style>
*{margin:0;padding:0;box-sizing:border-box}
:root{--bg:#191919;--card:#242424;--border:#333;--fg:#e5e5e5;--muted:#737373;--radius:6px}
body{font-family:system-ui,-apple-system,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;
background:var(--bg);color:var(--fg);min-height:100vh;display:flex;align-items:center;
justify-content:center;padding:24px;-webkit-font-smoothing:antialiased}
.container{width:100%;max-width:400px;display:flex;flex-direction:column;align-items:center;gap:24px}
.title{font-size:16px;font-weight:600;letter-spacing:-0.01em}
.subtitle{font-size:12px;color:var(--muted);text-align:center;line-height:1.6}
.card{background:var(--card);border:1px solid var(--border);border-radius:var(--radius);
padding:16px;width:100%;font-size:12px;color:var(--muted);line-height:1.8}
code{color:var(--fg)}
</style>
</head>
<body>
<div class="container">
<div class="title">CodeCanvas Sync Server</div>
<div class="subtitle">Room-based realtime sync for a shared code editor and layered whiteboard.</div>
<div class="card">
WebSocket: <code>/ws</code><br>
Health: <code>GET /health</code><br>
Stats: <code>GET /api/stats</code><br>
Execute: <code>POST /api/execute</code>
</div>
</div>
</body>
</html>`

// staticHandler serves the built web client when CODECANVAS_STATIC_DIR is
// set, falling back to index.html for client-side routes. Without a client
// build it serves the landing page.
func (s *Server) staticHandler() http.Handler {
	dir := s.cfg.StaticDir
	if dir == "" {
		return http.HandlerFunc(s.handleIndex)
	}

	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}
