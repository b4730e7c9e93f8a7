package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntryKind classifies one entry of a provider reply.
type EntryKind string

const (
	// EntryDisplayText is assistant or user prose.
	EntryDisplayText EntryKind = "display_text"
	// EntryToolInvocation is a search the provider ran on the model's behalf.
	EntryToolInvocation EntryKind = "tool_invocation"
	// EntryInternal is provider bookkeeping (reasoning, tool results). It is
	// never displayed.
	EntryInternal EntryKind = "internal"
)

// DisplayEntry is one renderable turn of a follow-up conversation.
type DisplayEntry struct {
	Kind  EntryKind       `json:"kind"`
	Role  string          `json:"role,omitempty"`
	Text  string          `json:"text,omitempty"`
	Query string          `json:"query,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// transcriptCodec reads and replays one provider's stored replies.
type transcriptCodec interface {
	// entries classifies every entry of a stored reply.
	entries(payload json.RawMessage) ([]DisplayEntry, error)
	// history rebuilds the provider-native message list for a conversation.
	history(prompt string, initial json.RawMessage, turns []json.RawMessage) ([]json.RawMessage, error)
}

// transcriptCodecs is the follow-up allow-list.
var transcriptCodecs = map[Provider]transcriptCodec{
	ProviderOpenAI:    openAITranscript{},
	ProviderAnthropic: anthropicTranscript{},
}

// SupportsFollowUp reports whether conversations with p can be continued.
func SupportsFollowUp(p Provider) bool {
	_, ok := transcriptCodecs[p]
	return ok
}

func codecFor(p Provider) (transcriptCodec, error) {
	codec, ok := transcriptCodecs[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProviderForFollowUp, p)
	}
	return codec, nil
}

// NewUserTurn builds the stored form of a user follow-up message.
func NewUserTurn(message string) json.RawMessage {
	return mustMarshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Type    string `json:"type"`
	}{Role: "user", Content: message, Type: "message"})
}

type turnHeader struct {
	Role    string          `json:"role"`
	Object  string          `json:"object"`
	Content json.RawMessage `json:"content"`
}

// userTurn reports whether turn is a stored user message and returns its
// display text and its content exactly as stored. Content may be a plain
// string or an array of content blocks. Provider replies carry an "object"
// field or a non-user role and are reported as not user turns.
func userTurn(turn json.RawMessage) (string, json.RawMessage, bool) {
	var h turnHeader
	if err := json.Unmarshal(turn, &h); err != nil {
		return "", nil, false
	}
	if h.Role != "user" || h.Object != "" {
		return "", nil, false
	}
	if len(h.Content) == 0 {
		return "", json.RawMessage(`""`), true
	}
	var text string
	if err := json.Unmarshal(h.Content, &text); err == nil {
		return text, h.Content, true
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(h.Content, &blocks); err != nil {
		return "", h.Content, true
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Text != "" && (b.Type == "text" || b.Type == "input_text") {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n"), h.Content, true
}

// ParseFollowUp renders a conversation for display: the original prompt,
// the visible entries of the initial reply, then each stored turn in order.
// Internal entries are dropped. No network calls are made.
func ParseFollowUp(prompt string, initial Raw, turns []json.RawMessage) ([]DisplayEntry, error) {
	codec, err := codecFor(initial.Provider)
	if err != nil {
		return nil, err
	}

	out := []DisplayEntry{{Kind: EntryDisplayText, Role: "user", Text: prompt}}

	visible, err := visibleEntries(codec, initial.Payload)
	if err != nil {
		return nil, fmt.Errorf("parsing initial reply: %w", err)
	}
	out = append(out, visible...)

	for i, turn := range turns {
		if text, _, ok := userTurn(turn); ok {
			out = append(out, DisplayEntry{Kind: EntryDisplayText, Role: "user", Text: text, Raw: turn})
			continue
		}
		visible, err := visibleEntries(codec, turn)
		if err != nil {
			return nil, fmt.Errorf("parsing follow-up turn %d: %w", i, err)
		}
		out = append(out, visible...)
	}
	return out, nil
}

// PriorMessages rebuilds the message history needed to continue a
// conversation with the provider that produced initial.
func PriorMessages(prompt string, initial Raw, turns []json.RawMessage) ([]json.RawMessage, error) {
	codec, err := codecFor(initial.Provider)
	if err != nil {
		return nil, err
	}
	return codec.history(prompt, initial.Payload, turns)
}

func visibleEntries(codec transcriptCodec, payload json.RawMessage) ([]DisplayEntry, error) {
	all, err := codec.entries(payload)
	if err != nil {
		return nil, err
	}
	out := make([]DisplayEntry, 0, len(all))
	for _, e := range all {
		if e.Kind != EntryInternal {
			out = append(out, e)
		}
	}
	return out, nil
}

type openAITranscript struct{}

func (openAITranscript) output(payload json.RawMessage) ([]json.RawMessage, error) {
	var resp openAIResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding openai reply: %w", err)
	}
	return resp.Output, nil
}

func (t openAITranscript) entries(payload json.RawMessage) ([]DisplayEntry, error) {
	items, err := t.output(payload)
	if err != nil {
		return nil, err
	}
	out := make([]DisplayEntry, 0, len(items))
	for _, raw := range items {
		out = append(out, classifyOpenAIItem(raw))
	}
	return out, nil
}

func classifyOpenAIItem(raw json.RawMessage) DisplayEntry {
	var item openAIOutputItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return DisplayEntry{Kind: EntryInternal, Raw: raw}
	}
	switch item.Type {
	case "message":
		var text strings.Builder
		for _, part := range item.parts() {
			if part.Type == "output_text" {
				text.WriteString(part.Text)
			}
		}
		return DisplayEntry{Kind: EntryDisplayText, Role: item.Role, Text: text.String(), Raw: raw}
	case "web_search_call":
		e := DisplayEntry{Kind: EntryToolInvocation, Raw: raw}
		if item.Action != nil {
			e.Query = item.Action.Query
		}
		return e
	default:
		return DisplayEntry{Kind: EntryInternal, Raw: raw}
	}
}

func (t openAITranscript) history(prompt string, initial json.RawMessage, turns []json.RawMessage) ([]json.RawMessage, error) {
	output, err := t.output(initial)
	if err != nil {
		return nil, err
	}

	messages := []json.RawMessage{mustMarshal(openAIInputMessage{Role: "user", Content: prompt})}
	messages = append(messages, output...)

	for i, turn := range turns {
		if _, _, ok := userTurn(turn); ok {
			messages = append(messages, turn)
			continue
		}
		output, err := t.output(turn)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		messages = append(messages, output...)
	}
	return messages, nil
}

type anthropicTranscript struct{}

func (anthropicTranscript) content(payload json.RawMessage) ([]json.RawMessage, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding anthropic reply: %w", err)
	}
	return resp.Content, nil
}

func (t anthropicTranscript) entries(payload json.RawMessage) ([]DisplayEntry, error) {
	blocks, err := t.content(payload)
	if err != nil {
		return nil, err
	}
	out := make([]DisplayEntry, 0, len(blocks))
	for _, raw := range blocks {
		out = append(out, classifyAnthropicBlock(raw))
	}
	return out, nil
}

func classifyAnthropicBlock(raw json.RawMessage) DisplayEntry {
	var block anthropicBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return DisplayEntry{Kind: EntryInternal, Raw: raw}
	}
	switch block.Type {
	case "text":
		return DisplayEntry{Kind: EntryDisplayText, Role: "assistant", Text: block.Text, Raw: raw}
	case "server_tool_use":
		e := DisplayEntry{Kind: EntryToolInvocation, Raw: raw}
		if block.Input != nil {
			e.Query = block.Input.Query
		}
		return e
	default:
		return DisplayEntry{Kind: EntryInternal, Raw: raw}
	}
}

func (t anthropicTranscript) history(prompt string, initial json.RawMessage, turns []json.RawMessage) ([]json.RawMessage, error) {
	content, err := t.content(initial)
	if err != nil {
		return nil, err
	}

	messages := []json.RawMessage{
		mustMarshal(anthropicMessage{Role: "user", Content: prompt}),
		mustMarshal(anthropicMessage{Role: "assistant", Content: content}),
	}

	for i, turn := range turns {
		if _, content, ok := userTurn(turn); ok {
			messages = append(messages, mustMarshal(anthropicMessage{Role: "user", Content: content}))
			continue
		}
		content, err := t.content(turn)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		messages = append(messages, mustMarshal(anthropicMessage{Role: "assistant", Content: content}))
	}
	return messages, nil
}
