package nativequery

import (
	"encoding/json"
	"testing"
)

func TestExtractNative(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "legacy объект", input: `{"native":{"query":"SELECT 1"}}`, want: "SELECT 1"},
		{name: "legacy строка", input: `{"native":"SELECT 3"}`, want: "SELECT 3"},
		{name: "stages", input: `{"stages":[{"native":"SELECT 2"}]}`, want: "SELECT 2"},
		{
			name:  "первая native-стадия выигрывает",
			input: `{"stages":[{"source-table":4},{"native":"SELECT a"},{"native":"SELECT b"}]}`,
			want:  "SELECT a",
		},
		{
			name:  "legacy важнее stages",
			input: `{"native":{"query":"legacy"},"stages":[{"native":"staged"}]}`,
			want:  "legacy",
		},
		{
			name:  "битый legacy-фрагмент, stages сканируются",
			input: `{"native":{"query":42},"stages":[{"native":"SELECT s"}]}`,
			want:  "SELECT s",
		},
		{name: "structured query", input: `{"type":"query","query":{"source-table":5}}`, want: ""},
		{name: "пустой объект", input: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractNative(json.RawMessage(tt.input)); got != tt.want {
				t.Errorf("ExtractNative(%s) = %q, хотели %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractNative_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"null",
		"42",
		`"SELECT 1"`,
		`[1,2,3]`,
		`{"native":null}`,
		`{"native":[]}`,
		`{"native":{"query":null}}`,
		`{"stages":"not a list"}`,
		`{"stages":[null, 1, "x", {"native":7}]}`,
		`{"native":{"query":`,
		`not json at all`,
	}

	for _, in := range inputs {
		if got := ExtractNative(json.RawMessage(in)); got != "" {
			t.Errorf("ExtractNative(%q) = %q, хотели пустую строку", in, got)
		}
	}
	if got := ExtractNative(nil); got != "" {
		t.Errorf("ExtractNative(nil) = %q", got)
	}
}

func TestExtractNativeValue(t *testing.T) {
	v := map[string]any{
		"stages": []any{map[string]any{"native": "SELECT v"}},
	}
	if got := ExtractNativeValue(v); got != "SELECT v" {
		t.Errorf("ExtractNativeValue = %q", got)
	}
	if got := ExtractNativeValue(nil); got != "" {
		t.Errorf("ExtractNativeValue(nil) = %q", got)
	}
}
