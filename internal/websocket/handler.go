package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a hub client. Each new
// client first receives a "sync_hello" message so it knows to refetch state.
// originPatterns empty means any origin is accepted.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	logger = logger.With("component", "websocket")
	return func(w http.ResponseWriter, r *http.Request) {
		opts := &ws.AcceptOptions{OriginPatterns: originPatterns}
		if len(originPatterns) == 0 {
			opts.InsecureSkipVerify = true
		}
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("accept", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.CloseNow()

		hello, err := json.Marshal(NewMessage("sync", "hello", "", nil))
		if err != nil {
			logger.Error("marshal hello", "error", err)
			hello = nil
		}

		NewClient(hub, conn).Run(r.Context(), hello)
	}
}
