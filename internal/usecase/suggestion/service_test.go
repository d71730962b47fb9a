package suggestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// --- Mocks ---

type mockCatalog struct {
	models []domain.SpendingModel
	err    error
}

func (m *mockCatalog) GetSpendingModels(_ context.Context) ([]domain.SpendingModel, error) {
	return m.models, m.err
}

type mockGenerator struct {
	reply string
	err   error

	lastReq domain.GenerateRequest
}

func (m *mockGenerator) Generate(_ context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.GenerateResult{
		Message: domain.Message{Role: domain.RoleAssistant, Content: m.reply},
	}, nil
}

func testModels() []domain.SpendingModel {
	return []domain.SpendingModel{
		{ID: "1", Name: "50-30-20", Description: "Cân bằng chi tiêu", Raw: []byte(`{"id":"1","name":"50-30-20","description":"Cân bằng chi tiêu","ratio":"50-30-20"}`)},
		{ID: "2", Name: "6 Jars", Description: "Sáu chiếc lọ", Raw: []byte(`{"id":"2","name":"6 Jars","description":"Sáu chiếc lọ"}`)},
		{ID: "3", Name: "80-20", Description: "Tiết kiệm trước", Raw: []byte(`{"id":"3","name":"80-20","description":"Tiết kiệm trước"}`)},
	}
}

func testPairs() []domain.QAPair {
	return []domain.QAPair{
		{Question: "Thu nhập hàng tháng của bạn?", Answer: "15 triệu"},
		{Question: "Mục tiêu tài chính?", Answer: "Tiết kiệm mua nhà"},
	}
}

func newService(catalog *mockCatalog, gen *mockGenerator) *Service {
	return New(catalog, gen, zap.NewNop())
}

// --- Suggest ---

func TestSuggest(t *testing.T) {
	gen := &mockGenerator{
		reply: `{"recommended_model_name": "6 Jars", "alternative_model_names": ["50-30-20", "80-20"], "reasoning": "Phù hợp với mục tiêu tiết kiệm dài hạn"}`,
	}
	svc := newService(&mockCatalog{models: testModels()}, gen)

	got, err := svc.Suggest(context.Background(), testPairs())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	if got.RecommendedModel.ID != "2" {
		t.Errorf("recommended %q, want model 2", got.RecommendedModel.ID)
	}
	if len(got.AlternativeModels) != 2 || got.AlternativeModels[0].ID != "1" || got.AlternativeModels[1].ID != "3" {
		t.Errorf("alternatives = %+v", got.AlternativeModels)
	}
	if got.Reasoning != "Phù hợp với mục tiêu tiết kiệm dài hạn" {
		t.Errorf("reasoning = %q", got.Reasoning)
	}

	prompt := gen.lastReq.Messages[0].Content
	if !strings.Contains(prompt, "Q1: Thu nhập hàng tháng của bạn?") {
		t.Error("prompt should contain the numbered questionnaire")
	}
	if !strings.Contains(prompt, "A2: Tiết kiệm mua nhà") {
		t.Error("prompt should contain the numbered answers")
	}
	if !strings.Contains(prompt, `"ratio":"50-30-20"`) {
		t.Error("prompt should carry the backend's full model objects")
	}
	if gen.lastReq.Model != "" {
		t.Errorf("expected the default chat model, got %q", gen.lastReq.Model)
	}
}

func TestSuggest_MarkdownFences(t *testing.T) {
	gen := &mockGenerator{
		reply: "```json\n{\"recommended_model_name\": \"80-20\", \"alternative_model_names\": [], \"reasoning\": \"ok\"}\n```",
	}
	svc := newService(&mockCatalog{models: testModels()}, gen)

	got, err := svc.Suggest(context.Background(), testPairs())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got.RecommendedModel.ID != "3" {
		t.Errorf("recommended %q, want model 3", got.RecommendedModel.ID)
	}
}

func TestSuggest_ProseFallback(t *testing.T) {
	gen := &mockGenerator{
		reply: `Dưới đây là kết quả phân tích: {"recommended_model_name": "50-30-20", "reasoning": "đơn giản"} Chúc bạn thành công!`,
	}
	svc := newService(&mockCatalog{models: testModels()}, gen)

	got, err := svc.Suggest(context.Background(), testPairs())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got.RecommendedModel.ID != "1" {
		t.Errorf("recommended %q, want model 1", got.RecommendedModel.ID)
	}
	if got.Reasoning != "đơn giản" {
		t.Errorf("reasoning = %q", got.Reasoning)
	}
}

func TestSuggest_UnknownRecommendationFallsBackToFirst(t *testing.T) {
	gen := &mockGenerator{
		reply: `{"recommended_model_name": "Zero-Based Budget", "alternative_model_names": ["6 Jars", "Kakeibo"], "reasoning": "r"}`,
	}
	svc := newService(&mockCatalog{models: testModels()}, gen)

	got, err := svc.Suggest(context.Background(), testPairs())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got.RecommendedModel.ID != "1" {
		t.Errorf("unknown recommendation should fall back to the first model, got %q", got.RecommendedModel.ID)
	}
	if len(got.AlternativeModels) != 1 || got.AlternativeModels[0].Name != "6 Jars" {
		t.Errorf("unknown alternatives should be skipped, got %+v", got.AlternativeModels)
	}
}

func TestSuggest_MissingReasoning(t *testing.T) {
	gen := &mockGenerator{reply: `{"recommended_model_name": "6 Jars"}`}
	svc := newService(&mockCatalog{models: testModels()}, gen)

	got, err := svc.Suggest(context.Background(), testPairs())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got.Reasoning != "" {
		t.Errorf("reasoning = %q, want empty", got.Reasoning)
	}
}

func TestSuggest_NoPairs(t *testing.T) {
	svc := newService(&mockCatalog{models: testModels()}, &mockGenerator{})

	_, err := svc.Suggest(context.Background(), nil)
	if !errors.Is(err, domain.ErrNoQAPairs) {
		t.Errorf("expected ErrNoQAPairs, got %v", err)
	}
}

func TestSuggest_EmptyCatalog(t *testing.T) {
	svc := newService(&mockCatalog{}, &mockGenerator{})

	_, err := svc.Suggest(context.Background(), testPairs())
	if !errors.Is(err, domain.ErrNoSpendingModels) {
		t.Errorf("expected ErrNoSpendingModels, got %v", err)
	}
}

func TestSuggest_CatalogError(t *testing.T) {
	svc := newService(&mockCatalog{err: domain.ErrBackendUnavailable}, &mockGenerator{})

	_, err := svc.Suggest(context.Background(), testPairs())
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSuggest_UnparseableReply(t *testing.T) {
	gen := &mockGenerator{reply: "Xin lỗi, tôi không thể phân tích thông tin này."}
	svc := newService(&mockCatalog{models: testModels()}, gen)

	_, err := svc.Suggest(context.Background(), testPairs())
	if err == nil || !strings.Contains(err.Error(), "could not parse JSON") {
		t.Errorf("expected a parse error, got %v", err)
	}
}

// --- Helpers ---

func TestRenderProfile(t *testing.T) {
	got := renderProfile(testPairs())
	want := "Q1: Thu nhập hàng tháng của bạn?\nA1: 15 triệu\n\nQ2: Mục tiêu tài chính?\nA2: Tiết kiệm mua nhà\n\n"
	if got != want {
		t.Errorf("renderProfile = %q, want %q", got, want)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", "\n{\"a\":1}\n"},
		{"bare fence", "```\n{\"a\":1}\n```", "\n{\"a\":1}\n"},
		{"unterminated fence", "```json{\"a\":1}", "{\"a\":1}"},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"fence after prose", "kết quả:\n```json\n{}\n```", "\n{}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
