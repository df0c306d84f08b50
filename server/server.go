package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"mystery_story_studio/generator"
	"mystery_story_studio/publisher"
)

type Server struct {
	agent    *generator.Agent
	narrator generator.Narrator
	pub      *publisher.Publisher
	logger   *log.Logger
	store    *sessionStore
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*generator.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*generator.Session)}
}

func (s *sessionStore) set(id string, sess *generator.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) get(id string) (*generator.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// New wires the HTTP API. narrator may be nil, in which case WAV exports fail
// with 502.
func New(agent *generator.Agent, narrator generator.Narrator, pub *publisher.Publisher, logger *log.Logger) (*Server, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	if pub == nil {
		return nil, errors.New("publisher required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		agent:    agent,
		narrator: narrator,
		pub:      pub,
		logger:   logger,
		store:    newStore(),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleSessionGet))
	mux.HandleFunc("POST /api/sessions/{id}/idea", s.withSession(s.handleIdea))
	mux.HandleFunc("POST /api/sessions/{id}/story", s.withSession(s.handleStoryCreate))
	mux.HandleFunc("PUT /api/sessions/{id}/story", s.withSession(s.handleStoryEdit))
	mux.HandleFunc("POST /api/sessions/{id}/revisions", s.withSession(s.handleRevision))
	mux.HandleFunc("GET /api/sessions/{id}/preview", s.withSession(s.handlePreview))
	mux.HandleFunc("POST /api/sessions/{id}/exports/doc", s.withSession(s.handleExportDoc))
	mux.HandleFunc("POST /api/sessions/{id}/exports/wav", s.withSession(s.handleExportWAV))
	mux.HandleFunc("GET /api/sessions/{id}/ws", s.withSession(s.handleWebSocket))
	mux.HandleFunc("GET /api/exports/{name}", s.handleExportGet)
	return s.logMiddleware(mux)
}

// --- Handlers ---

type sessionCreateReq struct {
	Premise string `json:"premise"`
}

type storyReq struct {
	Premise string `json:"premise"`
}

type editReq struct {
	Story string `json:"story"`
}

type reviseReq struct {
	Instruction string `json:"instruction"`
}

type exportResp struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	URL      string `json:"url"`
	Size     int    `json:"size"`
}

type errorResp struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := uuid.New().String()
	sess := generator.NewSession(id, s.agent, s.narrator, s.logger)
	if req.Premise != "" {
		if err := sess.SetPremise(req.Premise); err != nil {
			writeError(w, err)
			return
		}
	}
	s.store.set(id, sess)
	s.logger.Info("session created", "session", id)
	w.Header().Set("Location", "/api/sessions/"+id)
	writeJSONStatus(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleSessionGet(w http.ResponseWriter, _ *http.Request, sess *generator.Session) {
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handleIdea(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	if _, err := sess.GenerateIdea(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sess.Snapshot())
}

// 生成是同步的：请求在故事完成后返回，过程中的片段通过 ws 推送。
func (s *Server) handleStoryCreate(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	var req storyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	premise := req.Premise
	if premise == "" {
		premise = sess.Snapshot().Premise
	}
	if err := sess.BeginGeneration(r.Context(), premise); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handleStoryEdit(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	var req editReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := sess.Edit(req.Story); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handleRevision(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	var req reviseReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := sess.BeginRevision(r.Context(), req.Instruction); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request, sess *generator.Session) {
	out, err := publisher.RenderPreview(sess.Snapshot().Story)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

func (s *Server) handleExportDoc(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	story := sess.Snapshot().Story
	if strings.TrimSpace(story) == "" {
		writeError(w, fmt.Errorf("%w: there is no story to export", generator.ErrValidation))
		return
	}
	s.publish(w, r, publisher.DocumentArtifact(story))
}

func (s *Server) handleExportWAV(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	narration, err := sess.GenerateAudio(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	artifact, err := publisher.AudioArtifact(narration)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(w, r, artifact)
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request, a publisher.Artifact) {
	location, err := s.pub.Publish(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, exportResp{
		Name:     a.Name,
		Location: location,
		URL:      "/api/exports/" + a.Name,
		Size:     len(a.Data),
	})
}

func (s *Server) handleExportGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := s.pub.Fetch(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", mediaTypeFor(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(data)
}

// --- Helpers ---

func (s *Server) withSession(h func(http.ResponseWriter, *http.Request, *generator.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.store.get(r.PathValue("id"))
		if !ok {
			writeJSONStatus(w, http.StatusNotFound, errorResp{Error: "session not found"})
			return
		}
		h(w, r, sess)
	}
}

func mediaTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".doc":
		return publisher.DocumentMediaType
	case ".wav":
		return publisher.AudioMediaType
	default:
		return "application/octet-stream"
	}
}

// decodeJSON accepts an empty body as the zero value.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %w", generator.ErrValidation, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, generator.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, generator.ErrIdea),
		errors.Is(err, generator.ErrGeneration),
		errors.Is(err, generator.ErrRevision),
		errors.Is(err, generator.ErrAudio),
		errors.Is(err, generator.ErrDecode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := generator.UserMessage(err)
	if status == http.StatusNotFound {
		msg = "not found"
	}
	writeJSONStatus(w, status, errorResp{Error: msg, Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"size", humanize.Bytes(uint64(rec.bytes)),
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	})
}
