package llm

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// EventContent is the tagged variant over session event payloads. The
// adapter walks streamed events and classifies each one; envelopes it does
// not recognize collapse to Raw carrying the stringified form, so no payload
// shape can break the loop.
type EventContent interface {
	isEventContent()
}

// Message is assistant text content.
type Message struct {
	Text string
}

// Raw is an unrecognized payload, stringified.
type Raw struct {
	Text string
}

// ToolCall is a tool invocation observed in the stream. Recorded for
// diagnostics only; the adapter never interprets tool results structurally.
type ToolCall struct {
	Name string
	Args string
}

// ToolResult is a tool response payload observed in the stream.
type ToolResult struct {
	Payload string
}

// Done marks the end of a stream.
type Done struct{}

func (Message) isEventContent()    {}
func (Raw) isEventContent()        {}
func (ToolCall) isEventContent()   {}
func (ToolResult) isEventContent() {}
func (Done) isEventContent()       {}

// ContentsFromMessage classifies one streamed message chunk.
func ContentsFromMessage(msg *schema.Message) []EventContent {
	if msg == nil {
		return nil
	}
	var out []EventContent
	for _, tc := range msg.ToolCalls {
		out = append(out, ToolCall{Name: tc.Function.Name, Args: tc.Function.Arguments})
	}
	switch {
	case msg.Role == schema.Tool:
		out = append(out, ToolResult{Payload: msg.Content})
	case msg.Content != "":
		out = append(out, Message{Text: msg.Content})
	case len(out) == 0:
		out = append(out, Raw{Text: fmt.Sprintf("%v", msg)})
	}
	return out
}
