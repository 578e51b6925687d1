// Package progress reports transfer progress for uploads and downloads.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives byte counts as a transfer advances.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress draws a byte progress bar on a terminal.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a bar that writes to out (stderr when nil).
func NewCLIProgress(out io.Writer) *CLIProgress {
	if out == nil {
		out = os.Stderr
	}
	return &CLIProgress{out: out}
}

// Start initializes the bar. A negative total draws a spinner.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to current.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error prints err below the bar.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// SetDescription updates the bar label.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// NoOpProgress discards everything (non-terminal output, --quiet).
type NoOpProgress struct{}

// NewNoOpProgress creates a no-op reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Finish()                               {}
func (p *NoOpProgress) Error(err error)                       {}
func (p *NoOpProgress) SetDescription(desc string)            {}

// Reader wraps an io.Reader and reports bytes consumed.
type Reader struct {
	reader   io.Reader
	reporter Reporter

	mu      sync.Mutex
	current int64
}

// NewReader wraps r. The caller calls Start and Finish on reporter.
func NewReader(r io.Reader, reporter Reporter) *Reader {
	return &Reader{reader: r, reporter: reporter}
}

// Read implements io.Reader.
func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.mu.Lock()
	pr.current += int64(n)
	current := pr.current
	pr.mu.Unlock()
	pr.reporter.Update(current)
	return n, err
}

// Count returns the number of bytes read so far.
func (pr *Reader) Count() int64 {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.current
}

// Copy copies src to dst while driving reporter. total may be -1 when unknown.
func Copy(dst io.Writer, src io.Reader, total int64, description string, reporter Reporter) (int64, error) {
	reporter.Start(total, description)
	n, err := io.Copy(dst, NewReader(src, reporter))
	if err != nil {
		reporter.Error(err)
		return n, err
	}
	reporter.Finish()
	return n, nil
}
