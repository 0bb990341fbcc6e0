package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PageTracker prints one progress line per fetched page. It satisfies
// collector.ProgressReporter.
type PageTracker struct {
	mu        sync.Mutex
	out       io.Writer
	username  string
	kind      string
	pages     int
	collected int
	startTime time.Time
	verbose   bool
	now       func() time.Time
}

// NewPageTracker creates a tracker for one collect run
func NewPageTracker(out io.Writer, username, kind string, verbose bool) *PageTracker {
	return &PageTracker{
		out:       out,
		username:  username,
		kind:      kind,
		startTime: time.Now(),
		verbose:   verbose,
		now:       time.Now,
	}
}

// PageFetched records a page and redraws the progress line
func (p *PageTracker) PageFetched(page, pageItems, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages = page
	p.collected = total

	if p.verbose {
		fmt.Fprintf(p.out, "%s page %d • +%d • %d total\n", Magenta("→"), page, pageItems, total)
		return
	}

	line := fmt.Sprintf("%s %s • page %d • %d collected • %.1f/min",
		Cyan("@"+p.username),
		p.kind,
		page,
		total,
		p.rate(),
	)
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
}

// Complete prints the run summary
func (p *PageTracker) Complete(snapshotPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := p.now().Sub(p.startTime)
	fmt.Fprintf(p.out, "\n%s Collected %d %s accounts of @%s\n",
		Green("✓"),
		p.collected,
		p.kind,
		p.username,
	)
	fmt.Fprintf(p.out, "  %s %d pages in %s\n", Dim("•"), p.pages, FormatDuration(elapsed))
	fmt.Fprintf(p.out, "  %s snapshot %s\n", Dim("•"), snapshotPath)
}

// Failed prints the failure summary
func (p *PageTracker) Failed(err error, snapshotPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s Stopped after %d pages with %d accounts: %v\n",
		Red("✗"),
		p.pages,
		p.collected,
		err,
	)
	if p.pages > 0 {
		fmt.Fprintf(p.out, "  %s partial snapshot %s\n", Dim("•"), snapshotPath)
	}
}

// Collected returns the running total
func (p *PageTracker) Collected() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collected
}

func (p *PageTracker) rate() float64 {
	minutes := p.now().Sub(p.startTime).Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(p.collected) / minutes
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
