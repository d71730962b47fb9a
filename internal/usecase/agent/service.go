package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
	"github.com/ducdang03/money-ez-ai/internal/metrics"
)

// RunInput is one chat turn addressed to the agent.
type RunInput struct {
	UserID         string
	ConversationID string
	Message        string
	History        []domain.Message // client-provided previous turns
	UseRAG         *bool            // nil enables automatic detection
}

// Service runs the conversational agent: RAG decision, knowledge
// retrieval, the model loop with tool execution, and per-conversation
// memory.
type Service struct {
	model           Generator
	streamer        Streamer
	retriever       Retriever
	backend         Backend
	threads         *Threads
	logger          *zap.Logger
	systemPrompt    string
	classifierModel string
	maxToolRounds   int
}

// New creates an agent service.
func New(model Generator, retriever Retriever, backend Backend, logger *zap.Logger) *Service {
	return &Service{
		model:           model,
		retriever:       retriever,
		backend:         backend,
		threads:         NewThreads(),
		logger:          logger,
		systemPrompt:    defaultSystemPrompt,
		classifierModel: "gemini-1.5-flash",
		maxToolRounds:   10,
	}
}

// WithStreamer enables streaming turns.
func (s *Service) WithStreamer(st Streamer) *Service {
	s.streamer = st
	return s
}

// WithSystemPrompt overrides the assistant persona. Empty keeps the default.
func (s *Service) WithSystemPrompt(prompt string) *Service {
	if prompt != "" {
		s.systemPrompt = prompt
	}
	return s
}

// WithClassifierModel overrides the expense classifier model.
func (s *Service) WithClassifierModel(model string) *Service {
	if model != "" {
		s.classifierModel = model
	}
	return s
}

// WithMaxToolRounds bounds the tool loop.
func (s *Service) WithMaxToolRounds(n int) *Service {
	if n > 0 {
		s.maxToolRounds = n
	}
	return s
}

// DropThread discards the in-process memory of a conversation.
func (s *Service) DropThread(conversationID string) {
	s.threads.Drop(conversationID)
}

// Run executes one turn and returns the assistant's final answer.
func (s *Service) Run(ctx context.Context, input RunInput) (string, error) {
	return s.run(ctx, input, nil)
}

// RunStream executes one turn, forwarding text deltas to stream as they
// arrive. The final answer is returned as well.
func (s *Service) RunStream(ctx context.Context, input RunInput, stream domain.StreamFunc) (string, error) {
	return s.run(ctx, input, stream)
}

func (s *Service) run(ctx context.Context, input RunInput, stream domain.StreamFunc) (string, error) {
	start := time.Now()
	msgs := s.seed(input)

	system := s.systemPrompt
	if s.ragAllowed(input) && shouldUseRAG(msgs) {
		queries := buildQueries(input.Message)
		docs := s.retrieve(ctx, queries)
		system = enhanceSystem(system, docs)
		s.logger.Debug("Knowledge context prepared",
			zap.String("conversation_id", input.ConversationID),
			zap.Strings("queries", queries),
			zap.Int("documents", len(docs)))
	}

	var answer string
	for round := 0; ; round++ {
		if round >= s.maxToolRounds {
			return "", fmt.Errorf("tool loop exceeded %d rounds", s.maxToolRounds)
		}

		result, err := s.invoke(ctx, system, msgs, stream)
		if err != nil {
			return "", fmt.Errorf("generate reply: %w", err)
		}
		domain.UsageFromContext(ctx).AddTokens(result.PromptTokens, result.OutputTokens)

		assistant := result.Message
		msgs = append(msgs, assistant)
		answer = assistant.Content

		if len(assistant.ToolCalls) == 0 {
			break
		}
		for _, call := range assistant.ToolCalls {
			obs, toolErr := s.executeTool(ctx, input.UserID, call)
			if toolErr != nil {
				return "", toolErr
			}
			msgs = append(msgs, domain.Message{
				Role:     domain.RoleTool,
				Content:  obs,
				ToolID:   call.ID,
				ToolName: call.Name,
			})
		}
	}

	s.threads.Put(input.ConversationID, msgs)
	s.logger.Info("Conversation turn completed",
		zap.String("conversation_id", input.ConversationID),
		zap.String("user_id", input.UserID),
		zap.Int("messages", len(msgs)),
		zap.Duration("duration", time.Since(start)))
	return answer, nil
}

// seed builds the model input: checkpointed history plus the new user
// message. Client-provided history only seeds a thread with no
// checkpoint yet, resent history must not duplicate remembered turns.
func (s *Service) seed(input RunInput) []domain.Message {
	checkpoint := s.threads.History(input.ConversationID)
	newMsg := domain.Message{Role: domain.RoleUser, Content: input.Message}

	if len(checkpoint) == 0 && len(input.History) > 0 {
		msgs := make([]domain.Message, 0, len(input.History)+1)
		msgs = append(msgs, input.History...)
		return append(msgs, newMsg)
	}
	return append(checkpoint, newMsg)
}

func (s *Service) ragAllowed(input RunInput) bool {
	return input.UseRAG == nil || *input.UseRAG
}

// invoke runs one model round, streaming deltas when both a sink and a
// streaming-capable model are present. Without a streamer the full
// round text is forwarded as a single delta.
func (s *Service) invoke(ctx context.Context, system string, msgs []domain.Message, stream domain.StreamFunc) (*domain.GenerateResult, error) {
	req := domain.GenerateRequest{
		System:   system,
		Messages: msgs,
		Tools:    []domain.Tool{expenseToolDef()},
	}

	if stream != nil && s.streamer != nil {
		return s.streamer.GenerateStream(ctx, req, stream)
	}

	result, err := s.model.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if stream != nil && result.Message.Content != "" {
		if serr := stream(result.Message.Content); serr != nil {
			return nil, fmt.Errorf("stream callback: %w", serr)
		}
	}
	return result, nil
}

// executeTool dispatches one tool call. An unknown tool becomes an
// error observation so the model can correct itself instead of failing
// the whole turn.
func (s *Service) executeTool(ctx context.Context, userID string, call domain.ToolCall) (string, error) {
	switch call.Name {
	case expenseToolName:
		obs, err := s.runExpenseTool(ctx, userID, call.Args)
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(expenseToolName, "error").Inc()
			return "", err
		}
		metrics.ToolCallsTotal.WithLabelValues(expenseToolName, "success").Inc()
		return obs, nil
	default:
		metrics.ToolCallsTotal.WithLabelValues("unknown", "error").Inc()
		s.logger.Warn("Model requested an unknown tool", zap.String("tool", call.Name))
		return fmt.Sprintf("Error: %s is not a valid tool, try one of [%s].", call.Name, expenseToolName), nil
	}
}
