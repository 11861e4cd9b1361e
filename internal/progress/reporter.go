package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback during a bulk rebuild. Update may be
// called from several goroutines.
type Reporter interface {
	Start(total int, description string)
	Update(processed, failed int, message string)
	Finish(summary string)
}

// NewReporter returns a CIReporter if the CI environment variable is set,
// or a TerminalReporter otherwise.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{out: os.Stderr, every: 50}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	mu          sync.Mutex
	bar         *progressbar.ProgressBar
	description string
}

func (r *TerminalReporter) Start(total int, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.description = description
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(processed, failed int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		return
	}
	desc := r.description
	if failed > 0 {
		desc = fmt.Sprintf("%s (%d failed)", r.description, failed)
	}
	r.bar.Describe(desc)
	_ = r.bar.Set(processed)
}

func (r *TerminalReporter) Finish(summary string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
	fmt.Fprintln(os.Stderr, summary)
}

// CIReporter prints line-by-line progress suitable for CI logs. Only every
// Nth record and any failure are printed.
type CIReporter struct {
	out   io.Writer
	every int

	mu          sync.Mutex
	total       int
	lastFailed  int
	description string
}

// NewCIReporter writes to out, printing a line every n records.
func NewCIReporter(out io.Writer, n int) *CIReporter {
	if n < 1 {
		n = 1
	}
	return &CIReporter{out: out, every: n}
}

func (r *CIReporter) Start(total int, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	r.lastFailed = 0
	r.description = description
	fmt.Fprintf(r.out, "%s: %d records\n", description, total)
}

func (r *CIReporter) Update(processed, failed int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if failed > r.lastFailed {
		r.lastFailed = failed
		fmt.Fprintf(r.out, "[%d/%d] %s failed\n", processed, r.total, message)
		return
	}
	if processed%r.every == 0 || processed == r.total {
		fmt.Fprintf(r.out, "[%d/%d] %s\n", processed, r.total, message)
	}
}

func (r *CIReporter) Finish(summary string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, summary)
}
