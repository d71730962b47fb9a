package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
	agentuc "github.com/ducdang03/money-ez-ai/internal/usecase/agent"
	healthuc "github.com/ducdang03/money-ez-ai/internal/usecase/health"
)

// Wire error codes. The MoneyEZ backend dispatches on these.
const (
	codeInvalidRequest       = "INVALID_REQUEST"
	codeUnauthorized         = "UNAUTHORIZED"
	codeConversationExists   = "CONVERSATION_EXISTS"
	codeConversationNotFound = "CONVERSATION_NOT_FOUND"
	codeDocumentNotFound     = "DOCUMENT_NOT_FOUND"
	codeDocumentProcessing   = "DOCUMENT_PROCESSING_ERROR"
	codeDocumentList         = "DOCUMENT_LIST_ERROR"
	codeInvalidJSON          = "INVALID_JSON"
	codeSuggestionError      = "SUGGESTION_ERROR"
	codeInternalError        = "INTERNAL_ERROR"
)

// AgentRunner executes chat turns.
type AgentRunner interface {
	Run(ctx context.Context, input agentuc.RunInput) (string, error)
	RunStream(ctx context.Context, input agentuc.RunInput, stream domain.StreamFunc) (string, error)
	DropThread(conversationID string)
}

// KnowledgeManager manages knowledge base documents.
type KnowledgeManager interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (domain.DocumentInfo, error)
	List(ctx context.Context) ([]domain.DocumentInfo, error)
	Delete(ctx context.Context, id string) error
}

// Suggester recommends spending models from a questionnaire profile.
type Suggester interface {
	Suggest(ctx context.Context, pairs []domain.QAPair) (domain.Suggestion, error)
}

// ConversationRegistry manages conversation threads.
type ConversationRegistry interface {
	Create(ctx context.Context, id, title string) (domain.Conversation, error)
	Get(ctx context.Context, id string) (domain.Conversation, error)
	List(ctx context.Context) ([]domain.Conversation, error)
	UpdateTitle(ctx context.Context, id string, title *string) (domain.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// HealthChecker reports component readiness.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API of the MoneyEZ AI service.
type Server struct {
	agent          AgentRunner
	knowledge      KnowledgeManager
	suggester      Suggester
	conversations  ConversationRegistry
	health         HealthChecker
	externalSecret string
	logger         *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	agent AgentRunner,
	knowledge KnowledgeManager,
	suggester Suggester,
	conversations ConversationRegistry,
	health HealthChecker,
	externalSecret string,
	logger *zap.Logger,
) *Server {
	return &Server{
		agent:          agent,
		knowledge:      knowledge,
		suggester:      suggester,
		conversations:  conversations,
		health:         health,
		externalSecret: externalSecret,
		logger:         logger,
	}
}

// Routes registers all endpoints on the router. /health and /metrics
// stay outside /api: no CORS, no auth. The external secret guards only
// the two chat routes, everything else under /api is open.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(api gochi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowOriginFunc:  func(_ *http.Request, _ string) bool { return true },
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		api.Group(func(chat gochi.Router) {
			chat.Use(ExternalSecretMiddleware(s.externalSecret))
			chat.Post("/receive_message", s.handleReceiveMessage)
			chat.Post("/receive_message/stream", s.handleReceiveMessageStream)
		})

		api.Post("/knowledge/upload", s.handleKnowledgeUpload)
		api.Delete("/knowledge/delete/{documentID}", s.handleKnowledgeDelete)
		api.Get("/knowledge/documents", s.handleKnowledgeList)

		api.Post("/suggestion", s.handleSuggestion)

		api.Route("/conversations", func(conv gochi.Router) {
			conv.Post("/", s.handleConversationCreate)
			conv.Get("/", s.handleConversationList)
			conv.Get("/{conversationID}", s.handleConversationGet)
			conv.Put("/{conversationID}", s.handleConversationUpdate)
			conv.Delete("/{conversationID}", s.handleConversationDelete)
		})
	})
}

// --- Wire types ---

// BaseResponse is the service envelope: the HTTP status mirrored in
// status, an optional machine-readable error code, and the payload.
type BaseResponse struct {
	Status    int    `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
}

// MessageResponse is the chat payload inside the envelope. Message is
// an assistantMessage on success and a bare error string on failure.
type MessageResponse struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id"`
	Message        any    `json:"message"`
}

type assistantMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// dataEnvelope is the outer body of chat and suggestion requests: a
// JSON document packed into a string field.
type dataEnvelope struct {
	Data string `json:"data"`
}

type chatPayload struct {
	UserID           string           `json:"UserId" validate:"required"`
	Message          string           `json:"Message" validate:"required"`
	ConversationID   string           `json:"ConversationId"`
	PreviousMessages []historyMessage `json:"PreviousMessages"`
}

// validate checks decoded chat payloads for required fields.
var validate = validator.New()

type historyMessage struct {
	ConversationID string `json:"ConversationId"`
	Content        string `json:"Content"`
	Role           string `json:"Role"`
	Timestamp      string `json:"Timestamp"`
}

type documentResponse struct {
	DocumentID  string    `json:"document_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	ContentType string    `json:"content_type"`
}

type documentListItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	CreatedDate time.Time `json:"createdDate"`
	ContentType string    `json:"contentType"`
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type suggestionResponse struct {
	RecommendedModel  spendingModelItem   `json:"recommendedModel"`
	AlternativeModels []spendingModelItem `json:"alternativeModels"`
	Reasoning         string              `json:"reasoning"`
}

type spendingModelItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createConversationRequest struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

type updateConversationRequest struct {
	Title *string `json:"title"`
}

type conversationResponse struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// --- Chat ---

// handleReceiveMessage handles POST /api/receive_message. Agent
// failures are reported inside an HTTP 200 envelope, the backend reads
// the inner status.
func (s *Server) handleReceiveMessage(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	answer, err := s.agent.Run(ctx, input)
	setUsageHeader(w, usage)
	if err != nil {
		s.logger.Error("Agent turn failed",
			zap.String("conversation_id", input.ConversationID),
			zap.Error(err))
		writeJSON(w, http.StatusOK, BaseResponse{
			Status:  http.StatusInternalServerError,
			Message: "Error generating response: " + err.Error(),
			Data: MessageResponse{
				Status:         "error",
				ConversationID: input.ConversationID,
				Message:        err.Error(),
			},
		})
		return
	}

	writeJSON(w, http.StatusOK, BaseResponse{
		Status:  http.StatusOK,
		Message: "Response generated successfully",
		Data: MessageResponse{
			Status:         "success",
			ConversationID: input.ConversationID,
			Message: assistantMessage{
				Role:    "assistant",
				Content: []contentPart{{Type: "text", Text: answer}},
			},
		},
	})
}

// handleReceiveMessageStream handles POST /api/receive_message/stream.
// Deltas go out as data-stream frames: 0:<json text> per chunk,
// d:{"finishReason":"stop"} at the end, 3:<json message> on error.
func (s *Server) handleReceiveMessageStream(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.internalError(w, errors.New("connection does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx, _ := domain.NewContextWithUsage(r.Context())
	_, err := s.agent.RunStream(ctx, input, func(delta string) error {
		payload, merr := json.Marshal(delta)
		if merr != nil {
			return fmt.Errorf("encode delta: %w", merr)
		}
		if _, werr := fmt.Fprintf(w, "0:%s\n", payload); werr != nil {
			return fmt.Errorf("write delta: %w", werr)
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		s.logger.Error("Streaming turn failed",
			zap.String("conversation_id", input.ConversationID),
			zap.Error(err))
		payload, _ := json.Marshal(err.Error())
		fmt.Fprintf(w, "3:%s\n", payload)
		flusher.Flush()
		return
	}

	fmt.Fprint(w, "d:{\"finishReason\":\"stop\"}\n")
	flusher.Flush()
}

// decodeChatRequest unpacks the double-encoded chat body. Reports the
// 400 envelope itself and returns ok=false when the body is unusable.
func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (agentuc.RunInput, bool) {
	var env dataEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request format: "+err.Error())
		return agentuc.RunInput{}, false
	}

	var payload chatPayload
	if err := json.Unmarshal([]byte(env.Data), &payload); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request format: "+err.Error())
		return agentuc.RunInput{}, false
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request format: "+err.Error())
		return agentuc.RunInput{}, false
	}

	s.logger.Info("Chat message received",
		zap.String("user_id", payload.UserID),
		zap.String("conversation_id", payload.ConversationID),
		zap.Int("previous_messages", len(payload.PreviousMessages)))

	return agentuc.RunInput{
		UserID:         payload.UserID,
		ConversationID: payload.ConversationID,
		Message:        payload.Message,
		History:        historyToMessages(payload.PreviousMessages),
	}, true
}

// historyToMessages maps backend history turns onto internal messages,
// skipping roles the model cannot replay.
func historyToMessages(history []historyMessage) []domain.Message {
	if len(history) == 0 {
		return nil
	}
	out := make([]domain.Message, 0, len(history))
	for _, h := range history {
		role, ok := domain.ParseHistoryRole(h.Role)
		if !ok {
			continue
		}
		out = append(out, domain.Message{Role: role, Content: h.Content})
	}
	return out
}

// --- Knowledge ---

// handleKnowledgeUpload handles POST /api/knowledge/upload. Success
// answers with the bare document info, not the envelope.
func (s *Server) handleKnowledgeUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeDocumentProcessing,
			"Error processing document: "+err.Error())
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeDocumentProcessing,
			"Error processing document: "+err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	info, err := s.knowledge.Upload(ctx, header.Filename, data, contentType)
	setUsageHeader(w, usage)
	if err != nil {
		s.logger.Warn("Document upload failed",
			zap.String("name", header.Filename),
			zap.String("content_type", contentType),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeDocumentProcessing,
			"Error processing document: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{
		DocumentID:  info.ID,
		Name:        info.Name,
		Size:        info.Size,
		CreatedAt:   info.CreatedAt,
		ContentType: info.ContentType,
	})
}

// handleKnowledgeDelete handles DELETE /api/knowledge/delete/{documentID}.
func (s *Server) handleKnowledgeDelete(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "documentID")

	if err := s.knowledge.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, codeDocumentNotFound,
				fmt.Sprintf("Document %s not found", id))
			return
		}
		s.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusMessage{
		Status:  "success",
		Message: fmt.Sprintf("Document %s deleted successfully", id),
	})
}

// handleKnowledgeList handles GET /api/knowledge/documents.
func (s *Server) handleKnowledgeList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.knowledge.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeDocumentList,
			"Error getting document list: "+err.Error())
		return
	}

	items := make([]documentListItem, len(docs))
	for i, d := range docs {
		items[i] = documentListItem{
			ID:          d.ID,
			Name:        d.Name,
			Size:        d.Size,
			CreatedDate: d.CreatedAt,
			ContentType: d.ContentType,
		}
	}

	writeJSON(w, http.StatusOK, BaseResponse{
		Status:  http.StatusOK,
		Message: "Document list retrieved successfully",
		Data:    items,
	})
}

// --- Suggestion ---

// handleSuggestion handles POST /api/suggestion. The route always
// answers HTTP 200, outcomes ride in the envelope status.
func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	var env dataEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSON(w, http.StatusOK, BaseResponse{
			Status:    http.StatusBadRequest,
			ErrorCode: codeInvalidJSON,
			Message:   "Invalid JSON format in 'data' field: " + err.Error(),
		})
		return
	}

	var parsed any
	if err := json.Unmarshal([]byte(env.Data), &parsed); err != nil {
		writeJSON(w, http.StatusOK, BaseResponse{
			Status:    http.StatusBadRequest,
			ErrorCode: codeInvalidJSON,
			Message:   "Invalid JSON format in 'data' field: " + err.Error(),
		})
		return
	}

	pairs := collectQAPairs(parsed)

	ctx, usage := domain.NewContextWithUsage(r.Context())
	suggestion, err := s.suggester.Suggest(ctx, pairs)
	setUsageHeader(w, usage)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, domain.ErrNoQAPairs) {
			reason = "No valid Q&A pairs found in the data"
		}
		s.logger.Warn("Suggestion failed", zap.Error(err))
		writeJSON(w, http.StatusOK, BaseResponse{
			Status:    http.StatusInternalServerError,
			ErrorCode: codeSuggestionError,
			Message:   "Error generating spending model suggestion: " + reason,
		})
		return
	}

	writeJSON(w, http.StatusOK, BaseResponse{
		Status:  http.StatusOK,
		Message: "Spending model suggestion generated successfully",
		Data:    suggestionToWire(suggestion),
	})
}

// collectQAPairs keeps list items that are objects carrying both a
// question and an answer key, any other shape is skipped.
func collectQAPairs(parsed any) []domain.QAPair {
	items, ok := parsed.([]any)
	if !ok {
		return nil
	}
	pairs := make([]domain.QAPair, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q, hasQ := entry["question"]
		a, hasA := entry["answer"]
		if !hasQ || !hasA {
			continue
		}
		pairs = append(pairs, domain.QAPair{Question: jsonString(q), Answer: jsonString(a)})
	}
	return pairs
}

// jsonString renders a decoded JSON value as prompt text. Strings pass
// through, everything else is re-encoded.
func jsonString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func suggestionToWire(sg domain.Suggestion) suggestionResponse {
	alts := make([]spendingModelItem, len(sg.AlternativeModels))
	for i, m := range sg.AlternativeModels {
		alts[i] = spendingModelToWire(m)
	}
	return suggestionResponse{
		RecommendedModel:  spendingModelToWire(sg.RecommendedModel),
		AlternativeModels: alts,
		Reasoning:         sg.Reasoning,
	}
}

func spendingModelToWire(m domain.SpendingModel) spendingModelItem {
	return spendingModelItem{ID: m.ID, Name: m.Name, Description: m.Description}
}

// --- Conversations ---

// handleConversationCreate handles POST /api/conversations.
func (s *Server) handleConversationCreate(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "conversation_id is required")
		return
	}

	conv, err := s.conversations.Create(r.Context(), req.ConversationID, req.Title)
	if err != nil {
		if errors.Is(err, domain.ErrConversationExists) {
			writeError(w, http.StatusBadRequest, codeConversationExists,
				fmt.Sprintf("Conversation with ID %s already exists", req.ConversationID))
			return
		}
		s.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conversationToWire(conv))
}

// handleConversationList handles GET /api/conversations.
func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	convs, err := s.conversations.List(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}

	// Registration order, ids break creation-time ties.
	sort.Slice(convs, func(i, j int) bool {
		if convs[i].CreatedAt.Equal(convs[j].CreatedAt) {
			return convs[i].ID < convs[j].ID
		}
		return convs[i].CreatedAt.Before(convs[j].CreatedAt)
	})

	items := make([]conversationResponse, len(convs))
	for i, c := range convs {
		items[i] = conversationToWire(c)
	}
	writeJSON(w, http.StatusOK, items)
}

// handleConversationGet handles GET /api/conversations/{conversationID}.
func (s *Server) handleConversationGet(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversations.Get(r.Context(), gochi.URLParam(r, "conversationID"))
	if err != nil {
		s.handleConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationToWire(conv))
}

// handleConversationUpdate handles PUT /api/conversations/{conversationID}.
// A nil title keeps the current one, the update time bumps either way.
func (s *Server) handleConversationUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}

	conv, err := s.conversations.UpdateTitle(r.Context(), gochi.URLParam(r, "conversationID"), req.Title)
	if err != nil {
		s.handleConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationToWire(conv))
}

// handleConversationDelete handles DELETE /api/conversations/{conversationID}.
// Dropping the agent thread frees the in-process chat memory with it.
func (s *Server) handleConversationDelete(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "conversationID")

	if err := s.conversations.Delete(r.Context(), id); err != nil {
		s.handleConversationError(w, err)
		return
	}
	s.agent.DropThread(id)

	writeJSON(w, http.StatusOK, statusMessage{
		Status:  "success",
		Message: fmt.Sprintf("Conversation %s deleted", id),
	})
}

func (s *Server) handleConversationError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, codeConversationNotFound, "Conversation not found")
		return
	}
	s.internalError(w, err)
}

func conversationToWire(c domain.Conversation) conversationResponse {
	return conversationResponse{
		ConversationID: c.ID,
		Title:          c.Title,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// --- Operational ---

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Helpers ---

func setUsageHeader(w http.ResponseWriter, usage *domain.ModelUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Model-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, BaseResponse{
		Status:    status,
		ErrorCode: code,
		Message:   message,
	})
}

// internalError answers unexpected failures without leaking their text.
func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
