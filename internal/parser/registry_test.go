package parser

import (
	"errors"
	"testing"
)

func TestRegistryFind(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name     string
		content  string
		filename string
		want     string
	}{
		{"telegram json", telegramExport, "result.json", "telegram"},
		{"whatsapp text", whatsappExport, "chat.txt", "whatsapp"},
		{"qq text", qqExport, "export.txt", "qq"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Find([]byte(tt.content), tt.filename)
			if err != nil {
				t.Fatalf("Find() error: %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("Find() = %s, want %s", p.Name(), tt.want)
			}
		})
	}
}

func TestRegistryFindNoMatch(t *testing.T) {
	r := NewRegistry()

	for _, content := range []string{
		"",
		"completely unstructured text",
		`<?xml version="1.0"?><chat/>`,
		`{"foo": "bar"}`,
	} {
		if _, err := r.Find([]byte(content), "unknown.dat"); !errors.Is(err, ErrNoMatchingFormat) {
			t.Errorf("Find(%q) error = %v, want ErrNoMatchingFormat", content, err)
		}
	}
}

func TestRegistryParseTagsFailures(t *testing.T) {
	r := NewRegistry()

	// detects as telegram, fails to decode
	_, err := r.Parse([]byte(`{"type": "x", "messages": }`), "result.json")
	if err == nil {
		t.Fatal("Parse() = nil error for broken input")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %T, want *ParseError", err)
	}
	if perr.Parser != "telegram" {
		t.Errorf("ParseError.Parser = %q, want telegram", perr.Parser)
	}
}

func TestRegistryParse(t *testing.T) {
	r := NewRegistry()
	res, err := r.Parse([]byte(whatsappExport), "WhatsApp Chat with Alice.txt")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if res.Platform != "whatsapp" {
		t.Errorf("Platform = %q, want whatsapp", res.Platform)
	}
}
