package moneyez

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ChatService talks to the conversational agent.
type ChatService struct {
	c *Client
}

// chatPayload is the inner chat body with the MoneyEZ backend's field
// casing.
type chatPayload struct {
	UserID           string           `json:"UserId"`
	Message          string           `json:"Message"`
	ConversationID   string           `json:"ConversationId"`
	PreviousMessages []HistoryMessage `json:"PreviousMessages"`
}

func encodeChatBody(msg ChatMessage) (*bytes.Reader, error) {
	inner, err := json.Marshal(chatPayload{
		UserID:           msg.UserID,
		Message:          msg.Message,
		ConversationID:   msg.ConversationID,
		PreviousMessages: msg.History,
	})
	if err != nil {
		return nil, fmt.Errorf("moneyez: encode message: %w", err)
	}
	outer, err := json.Marshal(dataField{Data: string(inner)})
	if err != nil {
		return nil, fmt.Errorf("moneyez: encode message: %w", err)
	}
	return bytes.NewReader(outer), nil
}

// Send posts a chat turn and returns the assistant's answer. Agent
// failures ride inside an HTTP 200 envelope and surface as *APIError.
func (s *ChatService) Send(ctx context.Context, msg ChatMessage) (_ string, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("chat.send", start, err) }()

	body, err := encodeChatBody(msg)
	if err != nil {
		return "", err
	}

	req, err := s.c.newRequest(ctx, http.MethodPost, "/api/receive_message", body, "application/json")
	if err != nil {
		return "", err
	}

	var env envelope
	if err = s.c.doJSON(req, &env); err != nil {
		return "", err
	}
	if env.Status != http.StatusOK {
		return "", env.apiError()
	}

	var data struct {
		Status         string `json:"status"`
		ConversationID string `json:"conversation_id"`
		Message        struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	}
	if err = json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("moneyez: decode response: %w", err)
	}

	var b strings.Builder
	for _, part := range data.Message.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

// Stream posts a chat turn and invokes onDelta for each text fragment
// as the model produces it. Returns the assembled answer. A nil onDelta
// collects silently.
//
// The wire protocol is line frames: 0:<json text> per fragment,
// d:{"finishReason":"stop"} on completion, 3:<json message> on error.
func (s *ChatService) Stream(ctx context.Context, msg ChatMessage, onDelta func(delta string) error) (_ string, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("chat.stream", start, err) }()

	body, err := encodeChatBody(msg)
	if err != nil {
		return "", err
	}

	req, err := s.c.newRequest(ctx, http.MethodPost, "/api/receive_message/stream", body, "application/json")
	if err != nil {
		return "", err
	}

	resp, err := s.c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("moneyez: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			return "", env.apiError()
		}
		return "", &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var answer strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "0:"):
			var delta string
			if err = json.Unmarshal([]byte(line[2:]), &delta); err != nil {
				return answer.String(), fmt.Errorf("moneyez: decode delta frame: %w", err)
			}
			answer.WriteString(delta)
			if onDelta != nil {
				if err = onDelta(delta); err != nil {
					return answer.String(), err
				}
			}
		case strings.HasPrefix(line, "3:"):
			var message string
			if jerr := json.Unmarshal([]byte(line[2:]), &message); jerr != nil {
				message = line[2:]
			}
			err = &APIError{Status: http.StatusInternalServerError, Message: message}
			return answer.String(), err
		case strings.HasPrefix(line, "d:"):
			return answer.String(), nil
		}
	}
	if err = scanner.Err(); err != nil {
		return answer.String(), fmt.Errorf("moneyez: read stream: %w", err)
	}

	err = fmt.Errorf("moneyez: stream ended without a finish frame")
	return answer.String(), err
}
