package gateway

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	apperrors "github.com/WahaajTauqir/hallal-classifier/internal/errors"
	"github.com/WahaajTauqir/hallal-classifier/internal/logger"
	"github.com/WahaajTauqir/hallal-classifier/pkg/models"
)

// ChatSession holds one conversation with the assistant persona. The history
// is append-only; while a streamed reply arrives, each fragment is folded
// onto the trailing bot message in arrival order.
type ChatSession struct {
	ID string

	mu      sync.Mutex
	history []models.ChatMessage
}

// History returns a snapshot of the conversation.
func (s *ChatSession) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

type chatRegistry struct {
	mu       sync.Mutex
	sessions map[string]*ChatSession
}

func newChatRegistry() *chatRegistry {
	return &chatRegistry{sessions: make(map[string]*ChatSession)}
}

// OpenChat creates a chat session bound to the fixed assistant framing.
func (c *Client) OpenChat() *ChatSession {
	session := &ChatSession{ID: uuid.NewString()}
	c.chats.mu.Lock()
	c.chats.sessions[session.ID] = session
	c.chats.mu.Unlock()
	return session
}

// Chat looks up an open session by id.
func (c *Client) Chat(id string) (*ChatSession, error) {
	c.chats.mu.Lock()
	defer c.chats.mu.Unlock()
	session, ok := c.chats.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Chat session not found.", nil)
	}
	return session, nil
}

// SendMessage sends one user turn and returns a channel of reply fragments.
// Fragments arrive in generation order and must be consumed in that order;
// the channel is closed when the reply is complete. The stream is finite and
// not restartable; a new message starts a new stream.
func (c *Client) SendMessage(ctx context.Context, session *ChatSession, text string) (<-chan string, error) {
	if err := c.ensureKey(); err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.history = append(session.history, models.ChatMessage{Sender: models.SenderUser, Text: text})
	contents := make([]content, 0, len(session.history))
	for _, msg := range session.history {
		role := "user"
		if msg.Sender == models.SenderBot {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: msg.Text}}})
	}
	session.mu.Unlock()

	reqBody := generateRequest{
		Contents:          contents,
		SystemInstruction: &content{Parts: []part{{Text: chatSystemInstruction}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.NewServiceRequestError(retryMessage, err)
	}

	url := c.endpoint("streamGenerateContent") + "?alt=sse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewServiceRequestError(retryMessage, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewServiceRequestError(retryMessage, err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, apperrors.NewServiceRequestError(retryMessage, fmt.Errorf("status %d", res.StatusCode))
	}

	fragments := make(chan string)
	go func() {
		defer close(fragments)
		defer res.Body.Close()

		scanner := bufio.NewScanner(res.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			var chunk generateResponse
			if err := json.Unmarshal(bytes.TrimPrefix(line, []byte("data: ")), &chunk); err != nil {
				logger.WithError(err).Warn("dropping malformed chat stream chunk")
				continue
			}
			if len(chunk.Candidates) == 0 || len(chunk.Candidates[0].Content.Parts) == 0 {
				continue
			}
			fragment := chunk.Candidates[0].Content.Parts[0].Text
			if fragment == "" {
				continue
			}

			session.mu.Lock()
			session.history = models.AppendFragment(session.history, fragment)
			session.mu.Unlock()

			select {
			case fragments <- fragment:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.WithError(err).Warn("chat stream ended with error")
		}
	}()

	return fragments, nil
}
