package intake

import (
	"errors"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"prose prefix", `Sure, here is the result: {"a":1} hope that helps`, `{"a":1}`},
		{"code fence", "```json\n{\"isComplete\": true}\n```", `{"isComplete": true}`},
		{"nested object", `{"a":{"b":2},"c":3}`, `{"a":{"b":2},"c":3}`},
		{"brace in string", `{"reasoning":"patient said {ouch}"}`, `{"reasoning":"patient said {ouch}"}`},
		{"escaped quote in string", `{"r":"she said \"done\""}`, `{"r":"she said \"done\""}`},
		{"trailing second object ignored", `{"a":1} {"b":2}`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONObjectErrors(t *testing.T) {
	for _, in := range []string{"", "no object here", "{never closed", `{"a": "unterminated`} {
		if _, err := extractJSONObject(in); !errors.Is(err, ErrNoJSONObject) {
			t.Errorf("input %q: expected ErrNoJSONObject, got %v", in, err)
		}
	}
}

func TestDecodeJSONObject(t *testing.T) {
	var out struct {
		IsComplete bool    `json:"isComplete"`
		Confidence float64 `json:"confidence"`
	}
	text := "Analysis follows.\n{\"isComplete\": true, \"confidence\": 0.85}\nDone."
	if err := decodeJSONObject(text, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsComplete || out.Confidence != 0.85 {
		t.Errorf("unexpected decode result: %+v", out)
	}
}

func TestDecodeJSONObjectMalformed(t *testing.T) {
	var out map[string]any
	err := decodeJSONObject(`{"a": }`, &out)
	if !errors.Is(err, ErrNoJSONObject) {
		t.Errorf("expected ErrNoJSONObject for malformed JSON, got %v", err)
	}
}
