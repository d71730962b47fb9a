package suggestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// suggestionPrompt asks the model to pick a spending plan for the answered
// questionnaire. The indentation is part of the prompt text.
const suggestionPrompt = `
        Bạn là một trợ lý tài chính thông minh. Nhiệm vụ của bạn là phân tích thông tin từ câu trả lời
        và gợi ý mô hình chi tiêu phù hợp nhất.

        Dựa trên thông tin tôi đã trả lời như sau:
        %s

        Và các mô hình chi tiêu có sẵn:
        %s

        Hãy phân tích và xác định mô hình chi tiêu nào phù hợp nhất với tôi này.
        Xem xét mức thu nhập, mục tiêu tài chính, thói quen chi tiêu và tình hình tài chính tổng thể của tôi.
        Cũng đề xuất một số mô hình thay thế có thể phù hợp.

        Trả về kết quả dưới dạng JSON với cấu trúc sau:
        {
            "recommended_model_name": "tên của mô hình phù hợp nhất",
            "alternative_model_names": ["name1", "name2"],
            "reasoning": "giải thích chi tiết tại sao mô hình này được đề xuất"
        }

        Chỉ trả về đúng định dạng JSON yêu cầu, không thêm bất kỳ giải thích nào khác.
        `

// suggestionReply is the JSON shape the model is asked to produce.
type suggestionReply struct {
	RecommendedModelName  string   `json:"recommended_model_name"`
	AlternativeModelNames []string `json:"alternative_model_names"`
	Reasoning             string   `json:"reasoning"`
}

var jsonBlockRegex = regexp.MustCompile(`(?s)\{.*\}`)

// Service recommends a spending model for a user profile questionnaire.
type Service struct {
	catalog ModelCatalog
	model   Generator
	logger  *zap.Logger
}

// New creates a suggestion service.
func New(catalog ModelCatalog, model Generator, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, model: model, logger: logger}
}

// Suggest picks the best fitting spending model for the answered
// questionnaire, with alternatives and the model's reasoning.
func (s *Service) Suggest(ctx context.Context, pairs []domain.QAPair) (domain.Suggestion, error) {
	if len(pairs) == 0 {
		return domain.Suggestion{}, domain.ErrNoQAPairs
	}

	models, err := s.catalog.GetSpendingModels(ctx)
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("get spending models: %w", err)
	}
	if len(models) == 0 {
		return domain.Suggestion{}, domain.ErrNoSpendingModels
	}

	catalogJSON, err := modelsJSON(models)
	if err != nil {
		return domain.Suggestion{}, err
	}

	prompt := fmt.Sprintf(suggestionPrompt, renderProfile(pairs), catalogJSON)

	result, err := s.model.Generate(ctx, domain.GenerateRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: prompt}},
	})
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("generate suggestion: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(result.PromptTokens, result.OutputTokens)

	reply, err := parseReply(result.Message.Content)
	if err != nil {
		s.logger.Warn("Suggestion reply was not parseable",
			zap.Error(err),
			zap.Int("reply_len", len(result.Message.Content)))
		return domain.Suggestion{}, err
	}

	suggestion := resolve(models, reply)
	s.logger.Info("Spending model suggested",
		zap.String("model", suggestion.RecommendedModel.Name),
		zap.Int("alternatives", len(suggestion.AlternativeModels)))
	return suggestion, nil
}

// renderProfile lays the questionnaire out as numbered Q/A lines.
func renderProfile(pairs []domain.QAPair) string {
	var b strings.Builder
	for i, p := range pairs {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n\n", i+1, p.Question, i+1, p.Answer)
	}
	return b.String()
}

// modelsJSON renders the catalog as a JSON array. Backend objects are
// passed through unchanged so the prompt sees every field the backend
// knows about, not just the ones this service reads.
func modelsJSON(models []domain.SpendingModel) (string, error) {
	raws := make([]json.RawMessage, len(models))
	for i, m := range models {
		if len(m.Raw) > 0 {
			raws[i] = m.Raw
			continue
		}
		b, err := json.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("marshal model %s: %w", m.ID, err)
		}
		raws[i] = b
	}
	b, err := json.Marshal(raws)
	if err != nil {
		return "", fmt.Errorf("marshal models: %w", err)
	}
	return string(b), nil
}

// parseReply extracts the JSON verdict from the model text. Models
// sometimes wrap JSON in markdown fences or surround it with prose, so
// parsing falls back to the first brace-delimited block.
func parseReply(text string) (suggestionReply, error) {
	stripped := stripFences(text)

	var reply suggestionReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(stripped)), &reply); err == nil {
		return reply, nil
	}

	if block := jsonBlockRegex.FindString(stripped); block != "" {
		if err := json.Unmarshal([]byte(block), &reply); err == nil {
			return reply, nil
		}
	}

	return suggestionReply{}, errors.New("could not parse JSON from model response")
}

// stripFences returns the content of the first markdown code fence,
// or the input unchanged when there is none.
func stripFences(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return rest[:j]
		}
		return rest
	}
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return rest[:j]
		}
		return rest
	}
	return text
}

// resolve maps the model's answer back onto catalog entries by exact
// name. An unknown recommendation falls back to the first model.
func resolve(models []domain.SpendingModel, reply suggestionReply) domain.Suggestion {
	byName := make(map[string]domain.SpendingModel, len(models))
	for _, m := range models {
		byName[m.Name] = m
	}

	recommended, ok := byName[reply.RecommendedModelName]
	if !ok {
		recommended = models[0]
	}

	alts := make([]domain.SpendingModel, 0, len(reply.AlternativeModelNames))
	for _, name := range reply.AlternativeModelNames {
		if m, found := byName[name]; found {
			alts = append(alts, m)
		}
	}

	return domain.Suggestion{
		RecommendedModel:  recommended,
		AlternativeModels: alts,
		Reasoning:         reply.Reasoning,
	}
}
