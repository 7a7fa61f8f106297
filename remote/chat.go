package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"Bt1QSocial/logger"
	"Bt1QSocial/model"
)

// ChatConfig contains configuration for the chat transport.
type ChatConfig struct {
	APIBaseURL  string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// PullRequestText is the fixed request sent to fetch the remote snapshot.
const PullRequestText = "Return the latest database if available."

// ChatSystemPrompt tells the remote model how to hold and return snapshots.
const ChatSystemPrompt = `You are the storage backend of the Bt1Q social music app.
When a message contains STORE:<json>:END_STORE, keep that JSON as the latest database and reply with exactly ` + AckToken + `.
When asked for the latest database, reply with the most recent JSON you stored wrapped as STORE:<json>:END_STORE and nothing else.
If you have never stored a database, reply with NO_DATA.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ChatTransport carries snapshots through an OpenAI-compatible chat
// completions endpoint. Payloads travel as free text; the snapshot is the
// STORE envelope inside it.
type ChatTransport struct {
	config     ChatConfig
	httpClient *http.Client
}

// NewChatTransport creates a chat transport. A nil httpClient gets a client
// with a 60s timeout.
func NewChatTransport(config ChatConfig, httpClient *http.Client) *ChatTransport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	return &ChatTransport{config: config, httpClient: httpClient}
}

func (t *ChatTransport) Name() string { return "chat" }

// Push sends the envelope and requires the acknowledgment token in the reply.
func (t *ChatTransport) Push(ctx context.Context, p Payload) error {
	envelope, err := EncodeEnvelope(p)
	if err != nil {
		return err
	}

	reply, err := t.complete(ctx, envelope)
	if err != nil {
		return err
	}
	if !HasAck(reply) {
		logger.Debug("[ChatTransport] push reply without ack",
			logger.Int("replyLength", len(reply)))
		return ErrNotAcknowledged
	}
	return nil
}

// Pull asks for the latest database and extracts the envelope from the reply.
func (t *ChatTransport) Pull(ctx context.Context) (*model.Snapshot, error) {
	reply, err := t.complete(ctx, PullRequestText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteData, err)
	}
	return ExtractEnvelope(reply)
}

// complete sends one user message and returns the first choice's content.
func (t *ChatTransport) complete(ctx context.Context, userMessage string) (string, error) {
	reqBody := chatRequest{
		Model: t.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: ChatSystemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   t.config.MaxTokens,
		Temperature: t.config.Temperature,
		Stream:      false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.APIBaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.config.APIKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	return chatResp.Choices[0].Message.Content, nil
}
