package legal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lawdesk/lawdesk-client/pkg/client"
	"github.com/lawdesk/lawdesk-client/pkg/envelope"
	"github.com/openai/openai-go"
)

// ChatPath is the legal assistant endpoint. The spelling is the backend's.
const ChatPath = "/AI/Model/Chating"

// ErrEmptyMessage is returned when a chat message is blank.
var ErrEmptyMessage = errors.New("chat message is empty")

// ChatUsage is the token accounting of one reply.
type ChatUsage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

// ChatReply is the assistant's answer.
type ChatReply struct {
	Content string    `json:"content"`
	Model   string    `json:"model"`
	Usage   ChatUsage `json:"usage"`
}

// ChatService talks to the legal assistant. Only the user's text is sent;
// the backend owns the system prompt.
type ChatService struct {
	api *client.Client
}

// NewChatService creates a chat service.
func NewChatService(api *client.Client) *ChatService {
	return &ChatService{api: api}
}

type chatRequest struct {
	Content string `json:"content"`
}

// Send posts content and returns the first choice of the completion.
// Chat requests are neither cached nor retried.
func (s *ChatService) Send(ctx context.Context, content string) (*ChatReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	resp, err := s.api.Post(ctx, ChatPath, chatRequest{Content: content}, nil)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	completion, err := envelope.Data[openai.ChatCompletion](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	reply := &ChatReply{
		Model: completion.Model,
		Usage: ChatUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}
	if len(completion.Choices) > 0 {
		reply.Content = completion.Choices[0].Message.Content
	}
	return reply, nil
}
