package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"lifewood-support-backend/internal/config"
	"lifewood-support-backend/internal/db"
	"lifewood-support-backend/internal/responder"
	"lifewood-support-backend/internal/store"
	"lifewood-support-backend/internal/types"
)

type topicClassifier interface {
	Classify(ctx context.Context, utterance string, topics []string) (string, error)
}

type Server struct {
	router      *chi.Mux
	responder   *responder.Responder
	classifier  topicClassifier
	transcripts store.Transcripts
	terms       store.TermsStore
	// OpenAI client for speech-to-text; nil when no API key is configured
	client  *openai.Client
	cfg     config.Config
	logger  *zap.Logger
	closers []func() error
}

// NewServer wires storage, the rule table and optional OpenAI features from cfg.
func NewServer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	rules := responder.DefaultRules()
	if cfg.RulesFile != "" {
		var err error
		if rules, err = responder.LoadRules(cfg.RulesFile); err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		logger.Info("loaded rule table", zap.String("file", cfg.RulesFile), zap.Int("rules", len(rules.Topics)))
	}

	s := &Server{
		responder: responder.New(rules),
		cfg:       cfg,
		logger:    logger,
	}

	if cfg.OpenAIAPIKey != "" {
		s.client = openai.NewClient(cfg.OpenAIAPIKey)
		if cfg.LLMFallback() {
			s.classifier = responder.NewClassifier(s.client, cfg.Model)
			logger.Info("llm topic fallback enabled", zap.String("model", cfg.Model))
		}
	} else {
		logger.Warn("OPENAI_API_KEY is not set; voice input is disabled")
	}

	mem := store.NewMemoryStore(cfg.MaxTranscript, cfg.TranscriptTTL)
	s.transcripts, s.terms = mem, mem

	if cfg.RedisURL != "" {
		rc, err := store.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, rc.Close)
		s.transcripts = store.NewRedisTranscriptStore(rc, cfg.MaxTranscript, cfg.TranscriptTTL)
		logger.Info("using redis transcript store")
	}

	switch {
	case cfg.DatabaseURL != "":
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.closers = append(s.closers, database.Close)
		if err := database.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		s.terms = store.NewDatabaseStore(database)
		logger.Info("database connection established")
	case cfg.TermsFile != "":
		s.terms = store.NewFileTermsStore(cfg.TermsFile)
		logger.Info("using file terms store", zap.String("file", cfg.TermsFile))
	default:
		logger.Warn("DB_URL and TERMS_FILE not set; terms acceptance is kept in memory only")
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)
	// Credentialed requests are only allowed for an explicit origin.
	wildcard := s.cfg.AllowedOrigin == "" || s.cfg.AllowedOrigin == "*"
	if wildcard {
		s.logger.Warn("ALLOWED_ORIGIN is '*'; cross-origin requests will not carry the session cookie")
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Route("/api/support", func(r chi.Router) {
		r.Get("/terms", s.handleTermsStatus)
		r.Post("/terms", s.handleAcceptTerms)
		r.Delete("/terms", s.handleRevokeTerms)
		r.Get("/transcript", s.handleTranscript)
		r.Delete("/transcript", s.handleClearTranscript)
		r.Post("/chat", s.handleChat)
		r.Post("/voice", s.handleVoice)
	})
	s.router = r
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases database and redis connections.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTermsStatus(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	ok, err := s.terms.HasAccepted(r.Context(), sid)
	if err != nil {
		s.storageError(w, "terms lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, types.TermsResponse{SessionID: sid, Accepted: ok})
}

func (s *Server) handleAcceptTerms(w http.ResponseWriter, r *http.Request) {
	var req types.TermsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Accepted {
		s.writeError(w, http.StatusBadRequest, "terms must be accepted")
		return
	}
	sid := s.getOrCreateSessionID(w, r)
	if err := s.terms.Accept(r.Context(), sid); err != nil {
		s.storageError(w, "terms accept", err)
		return
	}
	s.logger.Info("terms accepted", zap.String("session", sid))
	writeJSON(w, http.StatusOK, types.TermsResponse{SessionID: sid, Accepted: true})
}

func (s *Server) handleRevokeTerms(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	if err := s.terms.Revoke(r.Context(), sid); err != nil {
		s.storageError(w, "terms revoke", err)
		return
	}
	writeJSON(w, http.StatusOK, types.TermsResponse{SessionID: sid, Accepted: false})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	if !s.requireTerms(w, r, sid) {
		return
	}
	msgs, err := s.ensureWelcome(r.Context(), sid)
	if err != nil {
		s.storageError(w, "transcript read", err)
		return
	}
	writeJSON(w, http.StatusOK, types.TranscriptResponse{SessionID: sid, Messages: msgs})
}

func (s *Server) handleClearTranscript(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	if err := s.transcripts.Clear(r.Context(), sid); err != nil {
		s.storageError(w, "transcript clear", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := s.getOrCreateSessionID(w, r)
	if !s.requireTerms(w, r, sid) {
		return
	}

	// Blank submissions get the prompt reply but are not recorded.
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusOK, types.ChatResponse{SessionID: sid, Reply: s.responder.Respond(req.Message)})
		return
	}

	reply, err := s.converse(r.Context(), sid, req.Message)
	if err != nil {
		s.storageError(w, "transcript append", err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{SessionID: sid, Reply: reply})
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if s.client == nil {
		s.writeError(w, http.StatusServiceUnavailable, "voice input is not configured")
		return
	}
	sid := s.getOrCreateSessionID(w, r)
	if !s.requireTerms(w, r, sid) {
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file is required (field 'file')")
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	tr, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.STTModel,
		Reader:   file,
		FilePath: header.Filename,
	})
	if err != nil {
		s.logger.Error("transcription failed", zap.String("session", sid), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	transcribed := strings.TrimSpace(tr.Text)
	if transcribed == "" {
		s.writeError(w, http.StatusBadGateway, "empty transcription")
		return
	}

	reply, err := s.converse(r.Context(), sid, transcribed)
	if err != nil {
		s.storageError(w, "transcript append", err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{SessionID: sid, Reply: reply, Transcript: transcribed})
}

// converse answers text and records both sides of the exchange.
func (s *Server) converse(ctx context.Context, sid, text string) (responder.Reply, error) {
	text = strings.TrimSpace(text)
	if _, err := s.ensureWelcome(ctx, sid); err != nil {
		return responder.Reply{}, err
	}
	reply := s.answer(ctx, sid, text)
	_, err := s.transcripts.Append(ctx, sid,
		store.Message{Sender: store.SenderUser, Text: text},
		botMessage(reply),
	)
	return reply, err
}

// answer runs the rule table and, for unmatched input, the optional classifier.
// Classifier failures keep the deterministic fallback reply.
func (s *Server) answer(ctx context.Context, sid, text string) responder.Reply {
	reply := s.responder.Respond(text)
	if reply.Topic != responder.TopicFallback || s.classifier == nil {
		s.logger.Debug("rule reply", zap.String("session", sid), zap.String("topic", reply.Topic))
		return reply
	}
	topic, err := s.classifier.Classify(ctx, text, s.responder.Topics())
	if err != nil {
		s.logger.Warn("topic classifier failed", zap.String("session", sid), zap.Error(err))
		return reply
	}
	if classified, ok := s.responder.ReplyFor(topic); ok && topic != responder.NoTopic {
		s.logger.Debug("classifier reply", zap.String("session", sid), zap.String("topic", topic))
		return classified
	}
	return reply
}

// ensureWelcome seeds a new transcript with the welcome message.
func (s *Server) ensureWelcome(ctx context.Context, sid string) ([]store.Message, error) {
	return s.transcripts.Seed(ctx, sid, botMessage(responder.Welcome()))
}

func botMessage(reply responder.Reply) store.Message {
	msg := store.Message{Sender: store.SenderBot, Text: reply.Text, QuickReplies: reply.QuickReplies}
	if reply.CTA != nil {
		msg.CTALabel = reply.CTA.Label
		msg.CTAPath = reply.CTA.Path
	}
	return msg
}

// requireTerms writes a 403 carrying the require_terms intent when the session
// has not accepted the terms yet.
func (s *Server) requireTerms(w http.ResponseWriter, r *http.Request, sid string) bool {
	ok, err := s.terms.HasAccepted(r.Context(), sid)
	if err != nil {
		s.storageError(w, "terms lookup", err)
		return false
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, types.ErrorResponse{
			Error:  "please accept the terms and conditions to use support chat",
			Intent: &types.IntentResponse{Type: types.IntentRequireTerms},
		})
		return false
	}
	return true
}

func (s *Server) storageError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("storage error", zap.String("op", op), zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "support chat is temporarily unavailable")
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())))
	})
}

func newSessionID() string {
	return "s_" + uuid.NewString()
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// getSessionID retrieves the session ID from cookie, header or query parameter.
// Malformed IDs are ignored so the caller gets a fresh session.
func getSessionID(r *http.Request) string {
	if cookie, err := GetSessionCookie(r); err == nil && validSessionID(cookie) {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); validSessionID(sid) {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); validSessionID(sid) {
		return sid
	}
	return ""
}

func validSessionID(sid string) bool {
	return sessionIDPattern.MatchString(sid)
}

// getOrCreateSessionID returns the caller's session, minting one if needed, and
// refreshes the cookie.
func (s *Server) getOrCreateSessionID(w http.ResponseWriter, r *http.Request) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
		s.logger.Debug("creating new session", zap.String("session", sid), zap.String("path", r.URL.Path))
	}
	SetSessionCookie(w, sid, s.cfg.CookieSecure)
	w.Header().Set("X-Session-Id", sid)
	return sid
}
