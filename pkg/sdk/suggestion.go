package moneyez

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SuggestionService recommends spending models.
type SuggestionService struct {
	c *Client
}

// Suggest matches the questionnaire profile against the MoneyEZ
// spending model catalog. The route answers HTTP 200 either way,
// failures surface from the envelope as *APIError.
func (s *SuggestionService) Suggest(ctx context.Context, pairs []QAPair) (_ Suggestion, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("suggestion.suggest", start, err) }()

	inner, err := json.Marshal(pairs)
	if err != nil {
		return Suggestion{}, fmt.Errorf("moneyez: encode request: %w", err)
	}
	outer, err := json.Marshal(dataField{Data: string(inner)})
	if err != nil {
		return Suggestion{}, fmt.Errorf("moneyez: encode request: %w", err)
	}

	req, err := s.c.newRequest(ctx, http.MethodPost, "/api/suggestion", bytes.NewReader(outer), "application/json")
	if err != nil {
		return Suggestion{}, err
	}

	var env envelope
	if err = s.c.doJSON(req, &env); err != nil {
		return Suggestion{}, err
	}
	if env.Status != http.StatusOK {
		err = env.apiError()
		return Suggestion{}, err
	}

	var sg Suggestion
	if err = json.Unmarshal(env.Data, &sg); err != nil {
		return Suggestion{}, fmt.Errorf("moneyez: decode response: %w", err)
	}
	return sg, nil
}
