// Package server is the HTTP glue around the workflows: chat and analysis
// endpoints, document upload and indexing, and index management.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docuchat/server/internal/agent/analysis"
	"github.com/docuchat/server/internal/agent/llm"
	"github.com/docuchat/server/internal/agent/model"
	"github.com/docuchat/server/internal/agent/qa"
	errx "github.com/docuchat/server/internal/core/error"
	"github.com/docuchat/server/internal/ingestion"
	"github.com/docuchat/server/internal/retrieval"
	logx "github.com/docuchat/server/pkg/logger"
)

const maxUploadBytes = 64 << 20

type Config struct {
	FilesDir string
	MaxTurns int
}

type Server struct {
	router   *mux.Router
	engine   *qa.Engine
	pipeline *analysis.Pipeline
	conv     model.ConversationRepository
	indexer  *ingestion.Indexer
	store    *retrieval.Store
	cfg      Config
}

func New(engine *qa.Engine, pipeline *analysis.Pipeline, conv model.ConversationRepository,
	indexer *ingestion.Indexer, store *retrieval.Store, cfg Config) *Server {

	s := &Server{
		router:   mux.NewRouter(),
		engine:   engine,
		pipeline: pipeline,
		conv:     conv,
		indexer:  indexer,
		store:    store,
		cfg:      cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	s.router.HandleFunc("/chat/stream", s.handleChatStream).Methods(http.MethodPost)
	s.router.HandleFunc("/analysis", s.handleAnalysis).Methods(http.MethodPost)
	s.router.HandleFunc("/documents/upload", s.handleUpload).Methods(http.MethodPost)
	s.router.HandleFunc("/database/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/database/reset", s.handleReset).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ================ Handlers ================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type chatResponse struct {
	ConversationID string   `json:"conversation_id"`
	Content        string   `json:"content"`
	Sources        []string `json:"sources"`
	ResponseTime   float64  `json:"response_time"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	defer func() { countRequest("chat", err) }()
	if err != nil || strings.TrimSpace(req.Content) == "" {
		err = fmt.Errorf("invalid chat request")
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	ctx := r.Context()

	// Reconstruct bounded history from the persisted log. A load failure
	// degrades to an empty history rather than failing the turn.
	history, histErr := s.conv.LoadRecent(ctx, req.ConversationID, s.cfg.MaxTurns)
	if histErr != nil {
		logx.Warn().Err(histErr).Str("conversation_id", req.ConversationID).
			Msg("history unavailable, continuing without it")
		history = nil
	}

	started := time.Now()
	var result *qa.Result
	result, err = s.engine.Run(ctx, req.Content, history)
	if err != nil {
		logx.Error().Err(err).Msg("QA workflow failed")
		writeError(w, errx.StatusOf(err, http.StatusBadGateway), "failed to answer question")
		return
	}

	if saveErr := s.conv.AppendExchange(ctx, req.ConversationID, model.Exchange{
		Question: req.Content,
		Answer:   result.Answer,
	}); saveErr != nil {
		logx.Error().Err(saveErr).Str("conversation_id", req.ConversationID).
			Msg("failed to persist exchange")
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: req.ConversationID,
		Content:        result.Answer,
		Sources:        result.SourceFiles,
		ResponseTime:   time.Since(started).Seconds(),
	})
}

// handleChatStream answers over server-sent events. Fragments stream out as
// the generator produces them, so this path skips the grading loop; the
// source block and a completion event follow the content.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	defer func() { countRequest("chat_stream", err) }()
	if err != nil || strings.TrimSpace(req.Content) == "" {
		err = fmt.Errorf("invalid chat request")
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	ctx := r.Context()
	history, histErr := s.conv.LoadRecent(ctx, req.ConversationID, s.cfg.MaxTurns)
	if histErr != nil {
		logx.Warn().Err(histErr).Str("conversation_id", req.ConversationID).
			Msg("history unavailable, continuing without it")
		history = nil
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		err = fmt.Errorf("streaming unsupported")
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	started := time.Now()
	var stream llm.TextStream
	var sources []string
	stream, sources, err = s.engine.RunStream(ctx, req.Content, history)
	if err != nil {
		logx.Error().Err(err).Msg("QA stream failed")
		writeError(w, errx.StatusOf(err, http.StatusBadGateway), "failed to answer question")
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var answer strings.Builder
	for {
		frag, recvErr := stream.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			err = recvErr
			logx.Error().Err(recvErr).Msg("QA stream interrupted")
			writeEvent(w, flusher, map[string]any{"type": "error", "message": "stream interrupted"})
			return
		}
		if frag == "" {
			continue
		}
		answer.WriteString(frag)
		writeEvent(w, flusher, map[string]any{"type": "chunk", "content": frag})
	}

	if block := qa.FormatSourceList(sources); block != "" {
		answer.WriteString("\n\n" + block)
		writeEvent(w, flusher, map[string]any{"type": "chunk", "content": "\n\n" + block})
	}
	writeEvent(w, flusher, map[string]any{
		"type":          "complete",
		"response_time": time.Since(started).Seconds(),
	})

	if saveErr := s.conv.AppendExchange(ctx, req.ConversationID, model.Exchange{
		Question: req.Content,
		Answer:   answer.String(),
	}); saveErr != nil {
		logx.Error().Err(saveErr).Str("conversation_id", req.ConversationID).
			Msg("failed to persist exchange")
	}
}

type analysisRequest struct {
	Content string `json:"content"`
}

type analysisResponse struct {
	Content      string  `json:"content"`
	ResponseTime float64 `json:"response_time"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	defer func() { countRequest("analysis", err) }()
	if err != nil || strings.TrimSpace(req.Content) == "" {
		err = fmt.Errorf("invalid analysis request")
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if s.pipeline == nil {
		err = fmt.Errorf("analysis disabled")
		writeError(w, http.StatusServiceUnavailable, "no analysis dataset configured")
		return
	}

	started := time.Now()
	var result *analysis.Result
	result, err = s.pipeline.Run(r.Context(), req.Content)
	if err != nil {
		logx.Error().Err(err).Msg("analysis pipeline failed")
		writeError(w, errx.StatusOf(err, http.StatusBadGateway), "failed to run analysis")
		return
	}

	writeJSON(w, http.StatusOK, analysisResponse{
		Content:      result.Answer,
		ResponseTime: time.Since(started).Seconds(),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(maxUploadBytes)
	defer func() { countRequest("upload", err) }()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		err = fmt.Errorf("no files")
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	total := 0
	for _, fh := range files {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			err = fmt.Errorf("not a pdf: %s", fh.Filename)
			writeError(w, http.StatusBadRequest, fmt.Sprintf("only pdf files allowed: %s", fh.Filename))
			return
		}

		var path string
		path, err = s.saveUpload(fh)
		if err != nil {
			logx.Error().Err(err).Str("file", fh.Filename).Msg("failed to save upload")
			writeError(w, http.StatusInternalServerError, "failed to save file")
			return
		}

		var n int
		n, err = s.indexer.IndexPDF(r.Context(), path)
		if err != nil {
			logx.Error().Err(err).Str("file", fh.Filename).Msg("failed to index document")
			writeError(w, errx.StatusOf(err, http.StatusInternalServerError), "failed to index document")
			return
		}
		passagesIndexed.Add(float64(n))
		total += n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"files":    len(files),
		"passages": total,
	})
}

func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(s.cfg.FilesDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.FilesDir, filepath.Base(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	defer countRequest("status", err)
	if err != nil {
		writeError(w, errx.StatusOf(err, http.StatusBadGateway), "failed to query index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exists":        count > 0,
		"passage_count": count,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	err := s.store.Reset(r.Context())
	defer countRequest("reset", err)
	if err != nil {
		writeError(w, errx.StatusOf(err, http.StatusBadGateway), "failed to reset index")
		return
	}
	if rmErr := os.RemoveAll(s.cfg.FilesDir); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		logx.Warn().Err(rmErr).Msg("failed to remove uploaded files")
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "database reset successfully",
	})
}

// ================ Helpers ================

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeEvent(w io.Writer, flusher http.Flusher, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		logx.Error().Err(err).Msg("failed to encode stream event")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
	flusher.Flush()
}
