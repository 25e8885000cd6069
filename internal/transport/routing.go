package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/jongik-sv/kirosync/internal/auth"
	"github.com/jongik-sv/kirosync/internal/errors"
	"github.com/jongik-sv/kirosync/internal/store"
)

// registerRoutes wires the WebSocket hub and REST surface, grounded on the
// teacher's setupHTTPRoutes (server/routing.go) narrowed to this domain's
// auth/diagram endpoints.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.corsMiddleware(s.handleWebSocket))
	mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))

	mux.HandleFunc("/api/users/register", s.corsMiddleware(s.handleRegister))
	mux.HandleFunc("/api/users/login", s.corsMiddleware(s.handleLogin))

	mux.HandleFunc("/api/diagrams", s.corsMiddleware(s.handleDiagrams))
	mux.HandleFunc("/api/diagrams/", s.corsMiddleware(s.handleDiagramByPath))
}

// corsMiddleware mirrors the teacher's origin-restricted CORS wrapper
// (server/routing.go's corsMiddleware), using this server's configured
// allowed origins instead of a dev-mode escape hatch.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	c := newClient(s, conn)
	s.registerClient(c)

	go c.writePump()
	go c.readPump()
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeWrappedError(w, s.log, err, "hash password", http.StatusInternalServerError)
		return
	}

	u, err := s.users.Create(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		writeWrappedError(w, s.log, err, "register user", http.StatusInternalServerError)
		return
	}

	resp, err := s.issueTokens(u)
	if err != nil {
		writeWrappedError(w, s.log, err, "issue tokens", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	u, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		writeWrappedError(w, s.log, err, "login", http.StatusUnauthorized)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	resp, err := s.issueTokens(u)
	if err != nil {
		writeWrappedError(w, s.log, err, "issue tokens", http.StatusInternalServerError)
		return
	}
	if err := s.users.Touch(r.Context(), u.ID); err != nil {
		s.log.Warnw("failed to touch last_seen_at", "user_id", u.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) issueTokens(u *store.User) (authResponse, error) {
	token, err := s.jwt.GenerateToken(auth.Claims{UserID: u.ID, Email: u.Email})
	if err != nil {
		return authResponse{}, err
	}
	refresh, err := s.jwt.GenerateRefreshToken()
	if err != nil {
		return authResponse{}, err
	}
	return authResponse{Token: token, RefreshToken: refresh, UserID: u.ID, Username: u.Username}, nil
}

func (s *Server) authenticatedUserID(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.Wrap(errors.ErrValidation, "missing bearer token")
	}
	claims, err := s.jwt.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

type diagramResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	BpmnXML       string    `json:"bpmnXml"`
	Version       int       `json:"version"`
	OwnerID       string    `json:"ownerId"`
	Collaborators []string  `json:"collaborators"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toDiagramResponse(d *store.Diagram) diagramResponse {
	collaborators := d.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}
	return diagramResponse{
		ID: d.ID, Title: d.Title, Description: d.Description, BpmnXML: d.BpmnXML,
		Version: d.Version, OwnerID: d.OwnerID, Collaborators: collaborators, UpdatedAt: d.UpdatedAt,
	}
}

type createDiagramRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleDiagrams serves GET /api/diagrams (list for the caller) and POST
// /api/diagrams (create).
func (s *Server) handleDiagrams(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticatedUserID(r)
	if err != nil {
		writeWrappedError(w, s.log, err, "authenticate", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		diagrams, err := s.diagrams.ListForUser(r.Context(), userID)
		if err != nil {
			writeWrappedError(w, s.log, err, "list diagrams", http.StatusInternalServerError)
			return
		}
		out := make([]diagramResponse, 0, len(diagrams))
		for _, d := range diagrams {
			out = append(out, toDiagramResponse(d))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req createDiagramRequest
		if err := readJSON(w, r, &req); err != nil {
			return
		}
		d, err := s.diagrams.Create(r.Context(), req.Title, req.Description, userID)
		if err != nil {
			writeWrappedError(w, s.log, err, "create diagram", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, toDiagramResponse(d))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type updateDiagramRequest struct {
	BpmnXML string `json:"bpmnXml"`
	Version int    `json:"version"`
}

type collaboratorRequest struct {
	UserID string `json:"userId"`
}

// handleDiagramByPath serves everything under /api/diagrams/{id} and
// /api/diagrams/{id}/collaborators.
func (s *Server) handleDiagramByPath(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticatedUserID(r)
	if err != nil {
		writeWrappedError(w, s.log, err, "authenticate", http.StatusUnauthorized)
		return
	}

	parts := extractPathParts(r.URL.Path, "/api/diagrams/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "diagram id required")
		return
	}
	diagramID := parts[0]

	if len(parts) >= 2 && parts[1] == "collaborators" {
		s.handleCollaborators(w, r, diagramID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		d, err := s.diagrams.GetByID(r.Context(), diagramID)
		if err != nil {
			writeWrappedError(w, s.log, err, "get diagram", http.StatusInternalServerError)
			return
		}
		if !canAccessDiagram(d, userID) {
			writeError(w, http.StatusNotFound, "diagram not found")
			return
		}
		writeJSON(w, http.StatusOK, toDiagramResponse(d))

	case http.MethodPut, http.MethodPatch:
		d, err := s.diagrams.GetByID(r.Context(), diagramID)
		if err != nil {
			writeWrappedError(w, s.log, err, "get diagram", http.StatusInternalServerError)
			return
		}
		if !canAccessDiagram(d, userID) {
			writeError(w, http.StatusNotFound, "diagram not found")
			return
		}
		var req updateDiagramRequest
		if err := readJSON(w, r, &req); err != nil {
			return
		}
		newVersion, err := s.diagrams.Update(r.Context(), diagramID, req.BpmnXML, req.Version)
		if err != nil {
			writeWrappedError(w, s.log, err, "update diagram", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"version": newVersion})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// canAccessDiagram reports whether userID is the diagram's owner or one of
// its collaborators.
func canAccessDiagram(d *store.Diagram, userID string) bool {
	if d.OwnerID == userID {
		return true
	}
	for _, c := range d.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}

func (s *Server) handleCollaborators(w http.ResponseWriter, r *http.Request, diagramID string) {
	var req collaboratorRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	var err error
	switch r.Method {
	case http.MethodPost:
		err = s.diagrams.AddCollaborator(r.Context(), diagramID, req.UserID)
	case http.MethodDelete:
		err = s.diagrams.RemoveCollaborator(r.Context(), diagramID, req.UserID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err != nil {
		writeWrappedError(w, s.log, err, "update collaborators", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
