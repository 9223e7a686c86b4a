package prefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{" toml ", FormatTOML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecode_YAMLProducesJSONCompatibleValues(t *testing.T) {
	src := `
theme: dark
layout:
  sidebar: true
  widths: [200, 640]
1: numeric key
`
	v, err := Decode(strings.NewReader(src), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("result must be JSON-encodable: %v", err)
	}
	if !strings.Contains(string(out), `"1":"numeric key"`) {
		t.Errorf("expected numeric key to be stringified, got %s", out)
	}
	if !strings.Contains(string(out), `"widths":[200,640]`) {
		t.Errorf("unexpected encoding %s", out)
	}
}

func TestDecode_TOML(t *testing.T) {
	src := `
theme = "dark"

[[accounts]]
provider = "github"

[[accounts]]
provider = "gitlab"
`
	v, err := Decode(strings.NewReader(src), FormatTOML)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	m := v.(map[string]any)
	accts, ok := m["accounts"].([]any)
	if !ok || len(accts) != 2 {
		t.Fatalf("expected 2 accounts as []any, got %#v", m["accounts"])
	}
}

func TestEncode(t *testing.T) {
	v, err := Decode(strings.NewReader(`{"theme":"dark","size":14,"ratio":1.5}`), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&buf, v, FormatYAML); err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		if !strings.Contains(buf.String(), "size: 14") {
			t.Errorf("expected numeric yaml value, got %q", buf.String())
		}
	})

	t.Run("toml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&buf, v, FormatTOML); err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		if !strings.Contains(buf.String(), `theme = "dark"`) {
			t.Errorf("unexpected toml %q", buf.String())
		}
	})

	t.Run("toml rejects non-object", func(t *testing.T) {
		err := Encode(&bytes.Buffer{}, []any{"a"}, FormatTOML)
		if !errors.Is(err, ErrTOMLTopLevel) {
			t.Errorf("expected ErrTOMLTopLevel, got %v", err)
		}
	})

	t.Run("json keeps html characters", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&buf, map[string]any{"url": "https://x/?a=1&b=<2>"}, FormatJSON); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "a=1&b=<2>") {
			t.Errorf("expected unescaped output, got %q", buf.String())
		}
	})
}
