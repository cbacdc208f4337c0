package upstream

import "testing"

func TestExtractUsage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Usage
	}{
		{
			name: "full usage object",
			body: `{"model":"gpt-4","usage":{"prompt_tokens":7,"completion_tokens":3}}`,
			want: Usage{PromptTokens: 7, CompletionTokens: 3, Model: "gpt-4"},
		},
		{
			name: "missing usage object",
			body: `{"model":"gpt-4"}`,
			want: Usage{Model: "gpt-4"},
		},
		{
			name: "unparseable body",
			body: `not json`,
			want: Usage{},
		},
		{
			name: "empty body",
			body: ``,
			want: Usage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractUsage([]byte(tt.body))
			if got != tt.want {
				t.Errorf("ExtractUsage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSynthesizeModels(t *testing.T) {
	list := SynthesizeModels("my-default-model")

	if list.Object != "list" {
		t.Errorf("Object = %q, want %q", list.Object, "list")
	}
	if len(list.Data) != 1 {
		t.Fatalf("len(Data) = %d, want 1", len(list.Data))
	}
	if list.Data[0].ID != "my-default-model" {
		t.Errorf("Data[0].ID = %q, want %q", list.Data[0].ID, "my-default-model")
	}
	if list.Data[0].OwnedBy != "internal" {
		t.Errorf("Data[0].OwnedBy = %q, want %q", list.Data[0].OwnedBy, "internal")
	}
}
