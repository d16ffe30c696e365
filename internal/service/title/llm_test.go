package title

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type stubModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (m *stubModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *stubModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestLLMGenerator_Generate(t *testing.T) {
	user := "how do I configure a reverse proxy for my home lab server please"

	tests := []struct {
		name    string
		reply   string
		err     error
		want    string
		wantErr bool
	}{
		{
			name:  "valid json",
			reply: `{"title": "Home Lab Reverse Proxy"}`,
			want:  "Home Lab Reverse Proxy",
		},
		{
			name:  "fenced json",
			reply: "```json\n{\"title\": \"Reverse Proxy Setup\"}\n```",
			want:  "Reverse Proxy Setup",
		},
		{
			name:  "repairable json",
			reply: `{"title": "Proxy Config"`,
			want:  "Proxy Config",
		},
		{
			name:    "model error falls back to first words",
			err:     errors.New("rate limited"),
			want:    "how do I configure a reverse",
			wantErr: true,
		},
		{
			name:    "empty title falls back",
			reply:   `{"title": ""}`,
			want:    "how do I configure a reverse",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &stubModel{reply: tt.reply, err: tt.err}
			g := NewLLMGenerator(m, 50)

			got, err := g.Generate(context.Background(), user, "Use nginx or caddy.")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
			if len(m.input) != 1 || m.input[0].Role != schema.User {
				t.Errorf("expected a single user prompt, got %v", m.input)
			}
		})
	}
}
