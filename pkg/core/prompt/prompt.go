// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package prompt assembles the chat messages sent to the LLM.
package prompt

import (
	"fmt"

	"github.com/leseb/smartsearch-gw/pkg/core/api"
)

// SystemPrompt instructs the model to answer strictly from search results.
const SystemPrompt = `You are an intelligent search assistant. Your task is to provide accurate, comprehensive, and well-structured answers based on real-time web search results.

Guidelines:
1. Base your answer strictly on the provided search results
2. Synthesize information from multiple sources
3. Use clear, professional language
4. Structure your response logically
5. If information is insufficient, acknowledge it
6. Never fabricate information not present in the sources

Response Format:
- Start with a direct answer to the question
- Provide detailed explanation if needed
- Use bullet points for clarity when appropriate
- Keep the tone professional yet accessible`

const userTemplate = "Question: %s\n\nSearch Results:\n%s\n\n" +
	"Based on the search results above, please provide a comprehensive and accurate answer to the question. " +
	"Structure your response clearly and cite the relevant information from the sources."

// Build returns the system and user messages for query grounded on
// contextText.
func Build(query, contextText string) []api.Message {
	return []api.Message{
		{Role: api.RoleSystem, Content: SystemPrompt},
		{Role: api.RoleUser, Content: UserMessage(query, contextText)},
	}
}

// UserMessage renders the user turn.
func UserMessage(query, contextText string) string {
	return fmt.Sprintf(userTemplate, query, contextText)
}
