package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"martforge/internal/runner"
)

const progressWidth = 30

// RunProgress draws a single line that advances as models finish,
// tallying outcomes for the closing summary.
type RunProgress struct {
	mu      sync.Mutex
	out     io.Writer
	total   int
	done    int
	tally   map[runner.Status]int
	started time.Time
}

// NewRunProgress creates an empty progress line.
func NewRunProgress() *RunProgress {
	return &RunProgress{
		out:     os.Stdout,
		tally:   make(map[runner.Status]int),
		started: time.Now(),
	}
}

// Record advances the line with one finished model. Its signature
// matches the runner's OnResult hook.
func (p *RunProgress) Record(res runner.Result, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total
	p.tally[res.Status]++

	pct := 0
	if p.total > 0 {
		pct = 100 * p.done / p.total
	}
	fmt.Fprintf(p.out, "\r\033[K%s %s %3d%% (%d/%d) %s",
		ColorProgress("►"), p.bar(), pct, p.done, p.total, trimModel(res.Model))
}

// Finish ends the line and prints the outcome tally.
func (p *RunProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	parts := []string{fmt.Sprintf("%d succeeded", p.tally[runner.StatusSuccess])}
	if n := p.tally[runner.StatusFailed]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if n := p.tally[runner.StatusSkipped]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", n))
	}

	mark := ColorSuccess("✓")
	if p.tally[runner.StatusFailed] > 0 {
		mark = ColorError("✗")
	}
	fmt.Fprintf(p.out, "\n%s %s in %s\n",
		mark, strings.Join(parts, ", "), formatDuration(time.Since(p.started)))
}

func (p *RunProgress) bar() string {
	filled := 0
	if p.total > 0 {
		filled = progressWidth * p.done / p.total
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)
}

func trimModel(name string) string {
	if len(name) <= 40 {
		return name
	}
	return "..." + name[len(name)-37:]
}

// Spinner animates while a single long operation runs.
type Spinner struct {
	mu       sync.Mutex
	message  string
	done     chan struct{}
	stopOnce sync.Once
}

// NewSpinner creates a stopped spinner with a message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		done:    make(chan struct{}),
	}
}

// Start begins the animation in the background.
func (s *Spinner) Start() {
	go s.loop()
}

func (s *Spinner) loop() {
	frames := []string{"|", "/", "-", "\\"}
	tick := time.NewTicker(120 * time.Millisecond)
	defer tick.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.done:
			return
		case <-tick.C:
			s.mu.Lock()
			fmt.Printf("\r\033[K%s %s", ColorProgress(frames[i%len(frames)]), s.message)
			s.mu.Unlock()
		}
	}
}

// UpdateMessage swaps the text next to the spinner.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and prints the final status line. Safe to
// call more than once.
func (s *Spinner) Stop(success bool, message string) {
	s.stopOnce.Do(func() { close(s.done) })

	mark := ColorSuccess("✓")
	if !success {
		mark = ColorError("✗")
	}
	fmt.Printf("\r\033[K%s %s\n", mark, message)
}

// formatDuration renders a duration at the precision a run summary
// needs, coarsening as it grows.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", d/time.Minute, d%time.Minute/time.Second)
	default:
		return fmt.Sprintf("%dh%dm", d/time.Hour, d%time.Hour/time.Minute)
	}
}
