package decompose

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"brdgen/internal/utils"
)

// jsonChain is the template -> model -> parser pipeline used for structured
// LLM output. The model node wraps BaseChatModel in a lambda so models
// without tool binding still work.
type jsonChain[T any] struct {
	chain compose.Runnable[map[string]any, T]
	name  string
}

func newJSONChain[T any](ctx context.Context, name string, chatModel model.BaseChatModel, templateStr string) (*jsonChain[T], error) {
	tmpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	templateFunc := func(ctx context.Context, input map[string]any) ([]*schema.Message, error) {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, input); err != nil {
			return nil, fmt.Errorf("execute template: %w", err)
		}
		return []*schema.Message{
			{Role: schema.User, Content: buf.String()},
		}, nil
	}

	modelFunc := func(ctx context.Context, input []*schema.Message) (*schema.Message, error) {
		return chatModel.Generate(ctx, input)
	}

	parserFunc := func(ctx context.Context, output *schema.Message) (T, error) {
		return utils.ExtractJSON[T](output.Content)
	}

	graph := compose.NewGraph[map[string]any, T]()

	_ = graph.AddLambdaNode("prompt", compose.InvokableLambda(templateFunc))
	_ = graph.AddLambdaNode("model", compose.InvokableLambda(modelFunc))
	_ = graph.AddLambdaNode("parser", compose.InvokableLambda(parserFunc))

	_ = graph.AddEdge(compose.START, "prompt")
	_ = graph.AddEdge("prompt", "model")
	_ = graph.AddEdge("model", "parser")
	_ = graph.AddEdge("parser", compose.END)

	compiled, err := graph.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chain: %w", err)
	}
	return &jsonChain[T]{chain: compiled, name: name}, nil
}

// Invoke runs the chain and reports the elapsed wall time.
func (c *jsonChain[T]) Invoke(ctx context.Context, input map[string]any) (T, time.Duration, error) {
	start := time.Now()
	output, err := c.chain.Invoke(ctx, input)
	return output, time.Since(start), err
}
