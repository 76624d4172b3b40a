package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	imagesquarer "github.com/menta2k/image-squarer"
	"github.com/menta2k/image-squarer/internal/utils"
	"github.com/menta2k/image-squarer/pkg/types"
)

// Options configures the HTTP shell
type Options struct {
	MaxUploadBytes int64
	SuffixEnabled  bool
	Suffix         string
}

// Server exposes sessions over HTTP
type Server struct {
	squarer *imagesquarer.Squarer
	log     logrus.FieldLogger
	opts    Options

	mu       sync.RWMutex
	sessions map[string]*imagesquarer.Session
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SessionResponse describes a session
type SessionResponse struct {
	ID     string `json:"id"`
	Size   int    `json:"size"`
	Count  int    `json:"count"`
	Locked bool   `json:"locked"`
}

// UploadResult reports one uploaded file
type UploadResult struct {
	Name  string             `json:"name"`
	Index *int               `json:"index,omitempty"`
	Box   *types.BoundingBox `json:"box,omitempty"`
	Code  string             `json:"code,omitempty"`
	Error string             `json:"error,omitempty"`
}

// ImageEntry lists a stored result
type ImageEntry struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	DownloadName string `json:"download_name"`
	Bytes        int    `json:"bytes"`
}

type sizeRequest struct {
	Size int `json:"size"`
}

// New creates a server around sq
func New(sq *imagesquarer.Squarer, log logrus.FieldLogger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	return &Server{
		squarer:  sq,
		log:      log,
		opts:     opts,
		sessions: make(map[string]*imagesquarer.Session),
	}
}

// Router returns the HTTP routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	r.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	r.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/size", s.handleSetSize).Methods("PUT")
	r.HandleFunc("/sessions/{id}/images", s.handleUpload).Methods("POST")
	r.HandleFunc("/sessions/{id}/images", s.handleListImages).Methods("GET")
	r.HandleFunc("/sessions/{id}/images", s.handleClear).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/images/{index:[0-9]+}", s.handleDownload).Methods("GET")
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": imagesquarer.GetVersion(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "invalid_request", "body must be {\"size\": N}", http.StatusBadRequest)
		return
	}

	session, err := s.squarer.NewSession(req.Size, s.log)
	if err != nil {
		sendValidationError(w, err)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"session": id, "size": req.Size}).Info("session created")
	sendJSON(w, http.StatusCreated, describe(id, session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sendJSON(w, http.StatusOK, describe(id, session))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		sendErrorResponse(w, "not_found", "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetSize(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req sizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "invalid_request", "body must be {\"size\": N}", http.StatusBadRequest)
		return
	}

	if err := session.SetOutputSize(req.Size); err != nil {
		sendValidationError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, describe(id, session))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		sendErrorResponse(w, "invalid_request", "expected multipart form with files", http.StatusBadRequest)
		return
	}

	var inputs []types.Input
	for _, field := range []string{"files", "file"} {
		for _, fh := range r.MultipartForm.File[field] {
			f, err := fh.Open()
			if err != nil {
				sendErrorResponse(w, "invalid_request", "failed to open upload", http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				sendErrorResponse(w, "invalid_request", "failed to read upload", http.StatusBadRequest)
				return
			}
			inputs = append(inputs, types.Input{Name: fh.Filename, Data: data})
		}
	}
	if len(inputs) == 0 {
		sendErrorResponse(w, "invalid_request", "no files uploaded", http.StatusBadRequest)
		return
	}

	outcomes, err := session.Process(r.Context(), inputs)
	if err != nil {
		s.log.WithError(err).WithField("session", id).Warn("upload interrupted")
	}

	results := make([]UploadResult, 0, len(outcomes))
	for _, o := range outcomes {
		res := UploadResult{Name: o.Name}
		if o.OK() {
			index, box := o.Index, o.Box
			res.Index = &index
			res.Box = &box
		} else {
			res.Code = errorCode(o.Err)
			res.Error = o.Err.Error()
		}
		results = append(results, res)
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"session": describe(id, session),
		"results": results,
	})
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	_, session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	suffix := s.suffixFor(r)
	results := session.Results()
	entries := make([]ImageEntry, 0, len(results))
	for i, res := range results {
		entries = append(entries, ImageEntry{
			Index:        i,
			Name:         res.Name,
			DownloadName: utils.OutputFilename(res.Name, suffix),
			Bytes:        len(res.Data),
		})
	}
	sendJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	_, session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		sendErrorResponse(w, "invalid_request", "bad index", http.StatusBadRequest)
		return
	}
	res, ok := session.Result(index)
	if !ok {
		sendErrorResponse(w, "not_found", "image not found", http.StatusNotFound)
		return
	}

	name := utils.SanitizeFilename(utils.OutputFilename(res.Name, s.suffixFor(r)))
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Write(res.Data)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	session.Reset()
	sendJSON(w, http.StatusOK, describe(id, session))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *imagesquarer.Session, bool) {
	id := mux.Vars(r)["id"]

	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		sendErrorResponse(w, "not_found", "session not found", http.StatusNotFound)
		return id, nil, false
	}
	return id, session, true
}

// suffixFor applies the configured suffix, overridable with ?optimg=true|false
func (s *Server) suffixFor(r *http.Request) string {
	enabled := s.opts.SuffixEnabled
	if v := r.URL.Query().Get("optimg"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			enabled = b
		}
	}
	if !enabled {
		return ""
	}
	return s.opts.Suffix
}

func describe(id string, session *imagesquarer.Session) SessionResponse {
	count := session.Len()
	return SessionResponse{
		ID:     id,
		Size:   session.OutputSize(),
		Count:  count,
		Locked: count > 0,
	}
}

func errorCode(err error) string {
	switch {
	case types.IsKind(err, types.KindDecode):
		return "decode_error"
	case types.IsKind(err, types.KindEncode):
		return "encode_error"
	default:
		return "processing_error"
	}
}

func sendValidationError(w http.ResponseWriter, err error) {
	if errors.Is(err, types.ErrSessionLocked) {
		sendErrorResponse(w, "session_locked", "clear the generated images before changing the size", http.StatusConflict)
		return
	}
	msg := fmt.Sprintf("output size must be between %d and %d", types.MinOutputSize, types.MaxOutputSize)
	sendErrorResponse(w, "invalid_size", msg, http.StatusBadRequest)
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	sendJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
