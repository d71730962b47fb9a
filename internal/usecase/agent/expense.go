package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

const expenseToolName = "user_input_expense"

// missingUserObservation is returned to the model when a turn carries
// no user id, so it can ask the user instead of failing.
const missingUserObservation = "User ID is not set. Please provide a valid user ID."

// expenseToolDef declares the expense tool to the model.
func expenseToolDef() domain.Tool {
	return domain.Tool{
		Name:        expenseToolName,
		Description: "Process user input for expenses and classify them.",
		Parameters: &domain.Schema{
			Type: "object",
			Properties: map[string]*domain.Schema{
				"user_query": {Type: "string"},
			},
			Required: []string{"user_query"},
		},
	}
}

// runExpenseTool classifies an expense phrase against the user's
// subcategories and records the transaction on the MoneyEZ backend.
// The observation is the classification itself; a failed recording is
// logged but does not change what the model sees.
func (s *Service) runExpenseTool(ctx context.Context, userID string, args map[string]any) (string, error) {
	query, _ := args["user_query"].(string)

	if userID == "" {
		return missingUserObservation, nil
	}

	subcats, err := s.backend.GetSubcategories(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get subcategories: %w", err)
	}

	zero := float32(0)
	result, err := s.model.Generate(ctx, domain.GenerateRequest{
		Model:       s.classifierModel,
		Temperature: &zero,
		Messages: []domain.Message{{
			Role:    domain.RoleUser,
			Content: fmt.Sprintf(classificationPrompt, renderSubcategories(subcats), query),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("classify expense: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(result.PromptTokens, result.OutputTokens)

	classification, err := parseClassification(result.Message.Content)
	if err != nil {
		return "", err
	}

	tx := domain.Transaction{
		UserID:          userID,
		Amount:          classification.Amount,
		SubcategoryCode: classification.SubcategoryCode,
		Description:     query,
	}
	if err := s.backend.CreateTransaction(ctx, tx); err != nil {
		s.logger.Warn("Transaction was not recorded",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	obs, err := json.Marshal(classification)
	if err != nil {
		return "", fmt.Errorf("marshal classification: %w", err)
	}
	return string(obs), nil
}

// renderSubcategories lays the catalog out as Vietnamese sentences the
// classifier prompt embeds. An empty catalog renders as an empty block.
func renderSubcategories(subcats []domain.Subcategory) string {
	lines := make([]string, len(subcats))
	for i, sc := range subcats {
		lines[i] = fmt.Sprintf(
			"Là một danh mục con nằm trong danh mục %s, danh mục này có tên là %s, mã danh mục là %s, mô tả là %s",
			sc.CategoryName, sc.Name, sc.Code, sc.Description)
	}
	return strings.Join(lines, "\n")
}

// parseClassification decodes the classifier verdict. Markdown fences
// and embedded newlines are stripped first, the classifier is told to
// answer with bare JSON but wraps it anyway now and then.
func parseClassification(text string) (domain.ExpenseClassification, error) {
	cleaned := strings.ReplaceAll(text, "```", "")
	cleaned = strings.ReplaceAll(cleaned, "\n", "")
	cleaned = strings.ReplaceAll(cleaned, "json", "")

	var c domain.ExpenseClassification
	if err := json.Unmarshal([]byte(cleaned), &c); err != nil {
		return domain.ExpenseClassification{}, fmt.Errorf("parse classification %q: %w", text, err)
	}
	return c, nil
}
