package render

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat_InvalidErrorMessage(t *testing.T) {
	_, err := ParseFormat("xml")
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error message should mention valid formats, got: %v", err)
	}
}

type outcome struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Tags    []string `json:"tags"`
	Secret  string   `json:"-"`
	hidden  string
}

func TestRenderer_JSONAndYAML(t *testing.T) {
	data := outcome{Success: true, Message: "finalized", Secret: "s", hidden: "h"}

	var jsonBuf, yamlBuf bytes.Buffer
	if err := NewRendererWithWriter(FormatJSON, false, &jsonBuf).Render(data); err != nil {
		t.Fatalf("Render json failed: %v", err)
	}
	if err := NewRendererWithWriter(FormatYAML, false, &yamlBuf).Render(map[string]string{"key": "value"}); err != nil {
		t.Fatalf("Render yaml failed: %v", err)
	}

	if !strings.Contains(jsonBuf.String(), `"message": "finalized"`) {
		t.Errorf("JSON output missing expected content: %s", jsonBuf.String())
	}
	if strings.Contains(jsonBuf.String(), "Secret") {
		t.Errorf("JSON output leaked json:\"-\" field: %s", jsonBuf.String())
	}
	if !strings.Contains(yamlBuf.String(), "key: value") {
		t.Errorf("YAML output missing expected content: %s", yamlBuf.String())
	}
}

func TestRenderer_Table_Struct(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	data := &outcome{Success: false, Message: "not ready", Tags: []string{"a", "b"}, Secret: "s"}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"success:", "false", "message:", "not ready", "tags:", "a, b"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q: %s", want, got)
		}
	}
	if strings.Contains(got, "secret") || strings.Contains(got, "hidden") {
		t.Errorf("table output shows hidden fields: %s", got)
	}
}

func TestRenderer_Table_Slice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	type Item struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	if err := r.Render([]Item{{ID: "1", Name: "first"}, {ID: "2", Name: "second"}}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "id") || !strings.Contains(lines[0], "name") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[2], "second") {
		t.Errorf("unexpected row: %q", lines[2])
	}
}

func TestRenderer_Table_EmptySlice(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, false, &buf).Render([]string{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("Empty slice should show '(no results)', got: %s", buf.String())
	}
}

type members struct{}

func (members) TableHeaders() []string { return []string{"#", "proposal", "result"} }
func (members) TableRows() [][]string {
	return [][]string{{"0", "p-1", "ok"}, {"1", "p-2", "Negotiation is locked"}}
}

func TestRenderer_Table_Tabular(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render(members{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "#  proposal  result\n") {
		t.Errorf("unexpected header line: %q", got)
	}
	if !strings.Contains(got, "1  p-2       Negotiation is locked") {
		t.Errorf("rows not aligned: %q", got)
	}
}

func TestRenderer_NoColor_DoesNotAffectJSON(t *testing.T) {
	var bufColor, bufNoColor bytes.Buffer
	data := map[string]string{"key": "value"}

	if err := NewRendererWithWriter(FormatJSON, false, &bufColor).Render(data); err != nil {
		t.Fatalf("Render with color failed: %v", err)
	}
	if err := NewRendererWithWriter(FormatJSON, true, &bufNoColor).Render(data); err != nil {
		t.Fatalf("Render without color failed: %v", err)
	}
	if bufColor.String() != bufNoColor.String() {
		t.Errorf("--no-color should not affect JSON output")
	}
}
