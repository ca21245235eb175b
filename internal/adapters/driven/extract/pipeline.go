package extract

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Processor is one normalisation step applied to extracted text.
// Processors run in ascending Order.
type Processor interface {
	// Name identifies the processor
	Name() string

	// Order determines the position in the pipeline
	Order() int

	// Process transforms the text
	Process(text string) string
}

// Pipeline chains text processors in order. Extractors run their raw
// output through a shared pipeline so every format gets the same
// whitespace and encoding cleanup.
type Pipeline struct {
	mu         sync.RWMutex
	processors []Processor
	sorted     bool
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]Processor, 0),
	}
}

// DefaultPipeline returns the normalisation steps applied to all
// extracted text.
func DefaultPipeline() *Pipeline {
	p := NewPipeline()
	p.Add(&lineEndings{})
	p.Add(&controlChars{})
	p.Add(&blankRuns{})
	p.Add(&edgeTrim{})
	return p
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Apply runs all processors over the text in order.
func (p *Pipeline) Apply(text string) string {
	p.mu.Lock()
	if !p.sorted {
		sort.Slice(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]Processor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	for _, proc := range processors {
		text = proc.Process(text)
	}
	return text
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	processors := make([]Processor, len(p.processors))
	copy(processors, p.processors)
	sort.Slice(processors, func(i, j int) bool {
		return processors[i].Order() < processors[j].Order()
	})

	names := make([]string, len(processors))
	for i, proc := range processors {
		names[i] = proc.Name()
	}
	return names
}

// lineEndings converts CRLF and bare CR to LF.
type lineEndings struct{}

func (lineEndings) Name() string { return "line-endings" }
func (lineEndings) Order() int   { return 10 }

func (lineEndings) Process(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// controlChars removes control characters other than newline and tab.
type controlChars struct{}

var controlRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

func (controlChars) Name() string { return "control-chars" }
func (controlChars) Order() int   { return 20 }

func (controlChars) Process(text string) string {
	return controlRe.ReplaceAllString(text, "")
}

// blankRuns collapses runs of three or more newlines to a paragraph break.
type blankRuns struct{}

var blankRunsRe = regexp.MustCompile(`\n{3,}`)

func (blankRuns) Name() string { return "blank-runs" }
func (blankRuns) Order() int   { return 30 }

func (blankRuns) Process(text string) string {
	return blankRunsRe.ReplaceAllString(text, "\n\n")
}

// edgeTrim removes leading and trailing whitespace.
type edgeTrim struct{}

func (edgeTrim) Name() string { return "edge-trim" }
func (edgeTrim) Order() int   { return 40 }

func (edgeTrim) Process(text string) string {
	return strings.TrimSpace(text)
}
