package transport

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// upgrader builds a WebSocket upgrader whose origin check consults the
// server's configured allowed origins, grounded on the teacher's
// getAxUpgrader/checkOrigin pair in server/util.go.
func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.GetServerAllowedOrigins() {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}
