package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEngines(t *testing.T) {
	tests := []struct {
		name string
		in   []Engine
		want []Engine
	}{
		{"empty", nil, []Engine{EngineNone}},
		{"appends sentinel", []Engine{EngineTesseract}, []Engine{EngineTesseract, EngineNone}},
		{"drops duplicates", []Engine{EngineOllama, EngineTesseract, EngineOllama}, []Engine{EngineOllama, EngineTesseract, EngineNone}},
		{"stops at sentinel", []Engine{EngineTextract, EngineNone, EngineOllama}, []Engine{EngineTextract, EngineNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEngines(tt.in))
		})
	}
}

func TestParseEngine(t *testing.T) {
	assert.Equal(t, EngineNone, ParseEngine("none"))
	assert.Equal(t, EngineNone, ParseEngine(" No-OCR "))
	assert.Equal(t, EngineTesseract, ParseEngine("Tesseract"))
	assert.Equal(t, "none", EngineNone.String())
	assert.Equal(t, "ollama", EngineOllama.String())
}

func TestJoinedText(t *testing.T) {
	assert.Equal(t, "", JoinedText(nil))
	assert.Equal(t, "", JoinedText([]Page{{Number: 1, Content: "  "}, {Number: 2, Content: "\n"}}))
	assert.Equal(t, "ab", JoinedText([]Page{{Number: 1, Content: " a"}, {Number: 2}, {Number: 3, Content: "b\n"}}))
}

func TestParseEngines(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []Engine
	}{
		{
			name: "blank entries skipped",
			in:   []string{"tesseract", "", "  ", "textract"},
			want: []Engine{EngineTesseract, EngineTextract, EngineNone},
		},
		{
			name: "explicit none still stops the list",
			in:   []string{"Ollama", "none", "tesseract"},
			want: []Engine{EngineOllama, EngineNone},
		},
		{
			name: "only blanks",
			in:   []string{"", ""},
			want: []Engine{EngineNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEngines(tt.in))
		})
	}
}
