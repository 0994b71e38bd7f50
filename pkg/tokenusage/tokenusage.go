// Package tokenusage extracts token-count metrics from Anthropic Messages
// API bodies. It is a pure, side-effect-free parser: every malformed or
// partial payload degrades to a nil result rather than an error.
package tokenusage

import (
	"bufio"
	"encoding/json"
	"strings"
)

// Usage is the token-count record extracted from a single exchange.
type Usage struct {
	Model               string
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
}

// rawUsage mirrors the "usage" object shared by non-streaming responses and
// the message_start/message_delta SSE events.
type rawUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

type nonStreamingBody struct {
	Model string    `json:"model"`
	Usage *rawUsage `json:"usage"`
}

type sseEvent struct {
	Type    string `json:"type"`
	Message struct {
		Model string    `json:"model"`
		Usage *rawUsage `json:"usage"`
	} `json:"message"`
	Usage *rawUsage `json:"usage"`
}

// IsAnthropicMessagesCall reports whether a request is an LLM call per the
// call-site discriminator: POST, and a path (query stripped) ending at a
// segment boundary in "/v1/messages" or "/messages".
func IsAnthropicMessagesCall(path, method string) bool {
	if !strings.EqualFold(method, "POST") {
		return false
	}

	p := path
	if idx := strings.IndexByte(p, '?'); idx >= 0 {
		p = p[:idx]
	}

	return strings.HasSuffix(p, "/v1/messages") || strings.HasSuffix(p, "/messages")
}

// IsStreaming reports whether a response-headers Content-Type value
// indicates an SSE body.
func IsStreaming(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/event-stream")
}

// Parse extracts a Usage record from body, dispatching to the non-streaming
// or streaming parser according to streaming. It never panics and never
// returns an error: ill-formed input simply yields (nil).
func Parse(body string, streaming bool) *Usage {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if streaming {
		return parseStreaming(body)
	}
	return parseNonStreaming(body)
}

func parseNonStreaming(body string) *Usage {
	var doc nonStreamingBody
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil
	}
	if doc.Usage == nil {
		return nil
	}
	return fromRaw(doc.Model, doc.Usage)
}

func parseStreaming(body string) *Usage {
	var (
		lastSeenModel string
		startUsage    *Usage
		deltaUsage    *Usage
	)

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var ev sseEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "message_start":
			if ev.Message.Model != "" {
				lastSeenModel = ev.Message.Model
			}
			if ev.Message.Usage != nil {
				startUsage = fromRaw(ev.Message.Model, ev.Message.Usage)
			}
		case "message_delta":
			if ev.Usage != nil {
				deltaUsage = fromRaw("", ev.Usage)
			}
		default:
			// ignored
		}
	}

	if deltaUsage != nil {
		if deltaUsage.Model == "" {
			deltaUsage.Model = lastSeenModel
		}
		return deltaUsage
	}
	if startUsage != nil {
		return startUsage
	}
	return nil
}

func fromRaw(model string, u *rawUsage) *Usage {
	return &Usage{
		Model:               model,
		InputTokens:         u.InputTokens,
		OutputTokens:        u.OutputTokens,
		CacheReadTokens:     u.CacheReadInputTokens,
		CacheCreationTokens: u.CacheCreationInputTokens,
	}
}

