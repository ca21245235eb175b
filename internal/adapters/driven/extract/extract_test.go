package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

func TestRegistry_ExactAndWildcard(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		mimeType string
		wantNil  bool
	}{
		{"text/plain", false},
		{"text/csv", false}, // via text/*
		{"text/plain; charset=utf-8", false},
		{"TEXT/PLAIN", false},
		{"text/markdown", false},
		{"application/json", false},
		{"application/pdf", true},
		{"image/png", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			got := r.Get(tt.mimeType)
			if (got == nil) != tt.wantNil {
				t.Errorf("Get(%q) = %v, wantNil = %v", tt.mimeType, got, tt.wantNil)
			}
		})
	}
}

func TestRegistry_ExactWinsOverWildcard(t *testing.T) {
	r := NewDefaultRegistry()

	if _, ok := r.Get("text/markdown").(*Markdown); !ok {
		t.Error("Get(text/markdown) should return the markdown extractor, not the text/* plaintext one")
	}
}

func TestRegistry_Supported(t *testing.T) {
	r := NewDefaultRegistry()

	supported := r.Supported()
	if len(supported) == 0 {
		t.Fatal("Supported() returned nothing")
	}
	for i := 1; i < len(supported); i++ {
		if supported[i] < supported[i-1] {
			t.Errorf("Supported() not sorted at index %d", i)
		}
	}
}

func TestPlaintext_ExtractText(t *testing.T) {
	p := NewPlaintext()
	ctx := context.Background()

	t.Run("passes text through", func(t *testing.T) {
		got, err := p.ExtractText(ctx, []byte("hello support team"), "")
		if err != nil {
			t.Fatalf("ExtractText() error = %v", err)
		}
		if got != "hello support team" {
			t.Errorf("ExtractText() = %q", got)
		}
	})

	t.Run("strips BOM", func(t *testing.T) {
		got, err := p.ExtractText(ctx, append([]byte{0xEF, 0xBB, 0xBF}, []byte("content")...), "")
		if err != nil {
			t.Fatalf("ExtractText() error = %v", err)
		}
		if got != "content" {
			t.Errorf("ExtractText() = %q, want BOM removed", got)
		}
	})

	t.Run("normalises line endings", func(t *testing.T) {
		got, err := p.ExtractText(ctx, []byte("a\r\nb"), "")
		if err != nil {
			t.Fatalf("ExtractText() error = %v", err)
		}
		if got != "a\nb" {
			t.Errorf("ExtractText() = %q", got)
		}
	})

	t.Run("rejects invalid UTF-8", func(t *testing.T) {
		_, err := p.ExtractText(ctx, []byte{0xff, 0xfe, 0x00}, "")
		extractErr, ok := domain.AsExtractionError(err)
		if !ok {
			t.Fatalf("ExtractText() error = %v, want ExtractionError", err)
		}
		if extractErr.Reason != domain.ReasonCorruptContent {
			t.Errorf("reason = %q, want %q", extractErr.Reason, domain.ReasonCorruptContent)
		}
	})
}

func TestMarkdown_ExtractText(t *testing.T) {
	m := NewMarkdown()
	ctx := context.Background()

	input := strings.Join([]string{
		"# Support Handbook",
		"",
		"Our **refund policy** is described in [the policy page](https://example.com/policy).",
		"",
		"```go",
		"refund()",
		"```",
		"",
		"![diagram](flow.png)",
		"Contact `support@example.com` for help.",
	}, "\n")

	got, err := m.ExtractText(ctx, []byte(input), "")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}

	for _, banned := range []string{"#", "**", "```", "](", "!["} {
		if strings.Contains(got, banned) {
			t.Errorf("output still contains %q: %q", banned, got)
		}
	}
	for _, want := range []string{"Support Handbook", "refund policy", "the policy page"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
	if strings.Contains(got, "refund()") {
		t.Error("code block content should be stripped")
	}
}
