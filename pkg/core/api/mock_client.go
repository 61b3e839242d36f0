// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockChatCompletionClient is a mock implementation for testing.
// It records every request and replies with Reply, or with a predictable
// echo of the user message when Reply is empty.
type MockChatCompletionClient struct {
	Reply string
	Err   error
	// NoChoices makes the mock return a completion without choices.
	NoChoices bool

	mu       sync.Mutex
	requests []*ChatCompletionRequest
}

// NewMockChatCompletionClient creates a new mock client
func NewMockChatCompletionClient() *MockChatCompletionClient {
	return &MockChatCompletionClient{}
}

// CreateChatCompletion implements ChatCompletionClient.CreateChatCompletion
func (m *MockChatCompletionClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &ChatCompletionResponse{
		ID:    fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
		Model: req.Model,
	}
	if m.NoChoices {
		return resp, nil
	}

	userMessage := ""
	for _, msg := range req.Messages {
		if msg.Role == RoleUser {
			userMessage = msg.Content
			break
		}
	}

	content := m.Reply
	if content == "" {
		content = fmt.Sprintf("Mock response to: %s", userMessage)
	}

	resp.Choices = []Choice{{
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: "stop",
	}}
	resp.Usage = Usage{
		PromptTokens:     estimateTokens(userMessage),
		CompletionTokens: estimateTokens(content),
		TotalTokens:      estimateTokens(userMessage) + estimateTokens(content),
	}
	return resp, nil
}

// Requests returns the requests received so far.
func (m *MockChatCompletionClient) Requests() []*ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatCompletionRequest(nil), m.requests...)
}

// estimateTokens provides a rough token count estimate
// Using ~4 characters per token as a simple heuristic
func estimateTokens(text string) int {
	return len(text) / 4
}
