// Package fakeapi serves an in-memory auth service and note service over
// HTTP for tests. It mimics the status codes and payload shapes of the real
// services, including the gateway's newline-delimited note stream.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ListMode selects the shape of GET /api/notes responses.
type ListMode int

const (
	// ListStream answers with one {"result":{...}} line per note, or a
	// plain {"result":{...}} object when there is exactly one.
	ListStream ListMode = iota
	// ListBatch answers with {"notes":[...]}.
	ListBatch
)

// Note is the server-side record.
type Note struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	UserID         string     `json:"userId"`
	CreatedAt      time.Time  `json:"createdAt"`
	Priority       string     `json:"priority,omitempty"`
	CompletionTime *time.Time `json:"completionTime,omitempty"`
}

var signingKey = []byte("fakeapi")

// Server is a running fake. All exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]string // username -> password
	userIDs   map[string]string // username -> user id
	access    map[string]string // access token -> user id
	refresh   map[string]string // refresh token -> user id
	notes     map[string][]Note // user id -> notes
	failures  map[string]int    // route name -> forced status
	calls     map[string]int    // route name -> request count
	listMode  ListMode
	authPath  string
	accessTTL time.Duration
}

// New starts a fake with the auth endpoints under authPath, e.g. "/api/oauth2".
func New(authPath string) *Server {
	s := &Server{
		users:     make(map[string]string),
		userIDs:   make(map[string]string),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		notes:     make(map[string][]Note),
		failures:  make(map[string]int),
		calls:     make(map[string]int),
		authPath:  authPath,
		accessTTL: 15 * time.Minute,
	}

	r := mux.NewRouter()
	auth := r.PathPrefix(authPath).Subrouter()
	auth.HandleFunc("/sign-up", s.route("sign-up", s.signUp)).Methods(http.MethodPost)
	auth.HandleFunc("/sign-in", s.route("sign-in", s.signIn)).Methods(http.MethodPost)
	auth.HandleFunc("/sign-out", s.route("sign-out", s.signOut)).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", s.route("refresh", s.refreshToken)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/notes", s.route("list", s.authed(s.listNotes))).Methods(http.MethodGet)
	api.HandleFunc("/note", s.route("create", s.authed(s.createNote))).Methods(http.MethodPost)
	api.HandleFunc("/note", s.route("update", s.authed(s.updateNote))).Methods(http.MethodPut)
	api.HandleFunc("/note/{id}", s.route("get", s.authed(s.getNote))).Methods(http.MethodGet)
	api.HandleFunc("/note/{id}", s.route("delete", s.authed(s.deleteNote))).Methods(http.MethodDelete)

	s.Server = httptest.NewServer(r)
	return s
}

// AuthURL is the auth base URL including the oauth2 prefix.
func (s *Server) AuthURL() string { return s.URL + s.authPath }

// NoteURL is the note service base URL including /api.
func (s *Server) NoteURL() string { return s.URL + "/api" }

// AddUser registers an account directly and returns its user id.
func (s *Server) AddUser(username, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password)
}

func (s *Server) addUserLocked(username, password string) string {
	id := uuid.NewString()
	s.users[username] = password
	s.userIDs[username] = id
	return id
}

// Issue creates a token pair for a registered user without a request.
func (s *Server) Issue(username string) (accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(s.userIDs[username])
}

func (s *Server) issueLocked(userID string) (string, string) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"sub":     userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.accessTTL).Unix(),
		"jti":     uuid.NewString(),
	}
	at, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	rt := uuid.NewString()
	s.access[at] = userID
	s.refresh[rt] = userID
	return at, rt
}

// ExpireAccessTokens invalidates every issued access token, the way a
// short-lived token lapses.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

// SeedNote stores a note for the user directly and returns its id.
func (s *Server) SeedNote(username string, n Note) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := s.userIDs[username]
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.UserID = uid
	s.notes[uid] = append(s.notes[uid], n)
	return n.ID
}

// Notes returns the stored notes of a user, sorted by id.
func (s *Server) Notes(username string) []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Note(nil), s.notes[s.userIDs[username]]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetListMode selects the /notes response shape.
func (s *Server) SetListMode(m ListMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listMode = m
}

// Fail forces a route ("sign-in", "refresh", "list", "create", ...) to answer
// with status until cleared with status 0.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Calls reports how many requests reached a route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		status, fail := s.failures[name]
		s.mu.Unlock()
		if fail {
			writeError(w, status, "forced failure")
			return
		}
		h(w, r)
	}
}

type ctxHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (s *Server) authed(h ctxHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		uid, ok := s.access[token]
		s.mu.Unlock()
		if token == "" || !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		h(w, r, uid)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "message": msg})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Username) < 4 || len(in.Password) < 8 {
		writeError(w, http.StatusBadRequest, "invalid format")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[in.Username]; taken {
		writeError(w, http.StatusConflict, "user already exist")
		return
	}
	s.addUserLocked(in.Username, in.Password)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid format")
		return
	}
	s.mu.Lock()
	pw, ok := s.users[in.Username]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if pw != in.Password {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "invalid user password")
		return
	}
	at, rt := s.issueLocked(s.userIDs[in.Username])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"access_token": at, "refresh_token": rt})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "access_token is required")
		return
	}
	s.mu.Lock()
	uid, ok := s.access[in.AccessToken]
	if ok {
		delete(s.access, in.AccessToken)
		for rt, owner := range s.refresh {
			if owner == uid {
				delete(s.refresh, rt)
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	rt := r.URL.Query().Get("t")
	s.mu.Lock()
	uid, ok := s.refresh[rt]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	delete(s.refresh, rt)
	at, nrt := s.issueLocked(uid)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"access_token": at, "refresh_token": nrt})
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request, uid string) {
	s.mu.Lock()
	notes := append([]Note(nil), s.notes[uid]...)
	mode := s.listMode
	s.mu.Unlock()

	if len(notes) == 0 {
		writeError(w, http.StatusNotFound, "notes not found")
		return
	}
	if mode == ListBatch {
		writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
		return
	}
	if len(notes) == 1 {
		writeJSON(w, http.StatusOK, map[string]any{"result": notes[0]})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	for _, n := range notes {
		enc.Encode(map[string]any{"result": n})
	}
}

type createRequest struct {
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Priority       string     `json:"priority,omitempty"`
	CompletionTime *time.Time `json:"completionTime,omitempty"`
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request, uid string) {
	var in createRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	n := Note{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Content:        in.Content,
		UserID:         uid,
		CreatedAt:      time.Now().UTC(),
		Priority:       in.Priority,
		CompletionTime: in.CompletionTime,
	}
	s.mu.Lock()
	s.notes[uid] = append(s.notes[uid], n)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"id": n.ID, "userId": uid})
}

type updateRequest struct {
	ID                string     `json:"id"`
	NewTitle          string     `json:"newTitle"`
	NewContent        string     `json:"newContent"`
	NewPriority       string     `json:"newPriority,omitempty"`
	NewCompletionTime *time.Time `json:"newCompletionTime,omitempty"`
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request, uid string) {
	var in updateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.ID == "" || in.NewTitle == "" {
		writeError(w, http.StatusBadRequest, "id and newTitle are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notes[uid] {
		if n.ID != in.ID {
			continue
		}
		n.Title = in.NewTitle
		n.Content = in.NewContent
		n.Priority = in.NewPriority
		n.CompletionTime = in.NewCompletionTime
		s.notes[uid][i] = n
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
		return
	}
	writeError(w, http.StatusNotFound, "note not found")
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request, uid string) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes[uid] {
		if n.ID == id {
			writeJSON(w, http.StatusOK, n)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("note %s not found", id))
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request, uid string) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.notes[uid]
	for i, n := range notes {
		if n.ID == id {
			s.notes[uid] = append(notes[:i:i], notes[i+1:]...)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("{}"))
			return
		}
	}
	writeError(w, http.StatusNotFound, "note not found")
}
