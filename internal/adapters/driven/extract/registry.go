package extract

import (
	"sort"
	"strings"
	"sync"

	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps MIME types to text extractors. Supports wildcard
// registration (e.g. "text/*" matches "text/plain"); an exact
// registration wins over a wildcard one.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

type entry struct {
	mimeTypes []string
	extractor driven.TextExtractor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with the built-in extractors
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register([]string{"text/markdown", "text/x-markdown"}, NewMarkdown())
	r.Register([]string{"text/*", "application/json", "application/xml"}, NewPlaintext())
	return r
}

// Register registers an extractor for the given MIME types
func (r *Registry) Register(mimeTypes []string, extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{mimeTypes: mimeTypes, extractor: extractor})
}

// Get retrieves the extractor for a MIME type, or nil if the type is
// unsupported
func (r *Registry) Get(mimeType string) driven.TextExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mimeType = normaliseMIMEType(mimeType)

	// Exact matches first
	for _, e := range r.entries {
		for _, t := range e.mimeTypes {
			if t == mimeType {
				return e.extractor
			}
		}
	}
	for _, e := range r.entries {
		for _, t := range e.mimeTypes {
			if matchesWildcard(t, mimeType) {
				return e.extractor
			}
		}
	}
	return nil
}

// Supported returns all registered MIME types, sorted
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeSet := make(map[string]struct{})
	for _, e := range r.entries {
		for _, t := range e.mimeTypes {
			typeSet[t] = struct{}{}
		}
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// normaliseMIMEType lowercases and strips parameters ("text/plain; charset=utf-8")
func normaliseMIMEType(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// matchesWildcard reports whether a registered pattern like "text/*"
// matches the MIME type
func matchesWildcard(pattern, mimeType string) bool {
	prefix, ok := strings.CutSuffix(pattern, "/*")
	if !ok {
		return false
	}
	return strings.HasPrefix(mimeType, prefix+"/")
}
