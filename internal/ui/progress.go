package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ProgressBar tracks progress over a known number of steps, such as the
// datasets written by an export
type ProgressBar struct {
	label     string
	total     int
	current   int
	startTime time.Time
	mu        sync.Mutex

	successCount int
	failureCount int
	currentItem  string
}

// NewProgressBar creates a new progress bar
func NewProgressBar(label string, total int) *ProgressBar {
	return &ProgressBar{
		label:     label,
		total:     total,
		startTime: time.Now(),
	}
}

// Update records one finished step
func (p *ProgressBar) Update(item string, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	p.currentItem = item
	if success {
		p.successCount++
	} else {
		p.failureCount++
	}

	p.render()
}

// Counts returns the number of successful and failed steps
func (p *ProgressBar) Counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.successCount, p.failureCount
}

// Finish prints the summary line
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(Output, "\n%s %s completed in %s\n",
		ColorSuccess("✓"),
		p.label,
		FormatDuration(time.Since(p.startTime)),
	)
	fmt.Fprintf(Output, "  %s %d successful\n", ColorSuccess("✓"), p.successCount)
	if p.failureCount > 0 {
		fmt.Fprintf(Output, "  %s %d failed\n", ColorError("✗"), p.failureCount)
	}
}

func (p *ProgressBar) render() {
	if supportsColor {
		fmt.Fprint(Output, "\r\033[K")
	}

	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100
	}

	barWidth := 30
	filled := int(percentage / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	item := p.currentItem
	if len(item) > 40 {
		item = "..." + item[len(item)-37:]
	}

	fmt.Fprintf(Output, "%s %s %.0f%% [%d/%d] %s",
		ColorProgress("►"),
		bar,
		percentage,
		p.current,
		p.total,
		item,
	)
	if !supportsColor {
		fmt.Fprintln(Output)
	}
}

// Spinner represents an animated spinner for long operations
type Spinner struct {
	frames  []string
	current int
	message string
	stop    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewSpinner creates a new spinner
func NewSpinner(message string) *Spinner {
	return &Spinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
		stop:    make(chan struct{}),
	}
}

// Start begins the spinner animation. Nothing is drawn when status output
// is not a terminal.
func (s *Spinner) Start() {
	if !supportsColor {
		return
	}
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.stopped {
					fmt.Fprintf(Output, "\r\033[K%s %s",
						ColorProgress(s.frames[s.current]),
						s.message,
					)
					s.current = (s.current + 1) % len(s.frames)
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner and prints the final status. It is safe to call
// more than once; only the first call prints.
func (s *Spinner) Stop(success bool, message string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.mu.Unlock()

	if supportsColor {
		fmt.Fprint(Output, "\r\033[K")
	}

	if success {
		fmt.Fprintf(Output, "%s %s\n", ColorSuccess("✓"), message)
	} else {
		fmt.Fprintf(Output, "%s %s\n", ColorError("✗"), message)
	}
}

// UpdateMessage updates the spinner message
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Message returns the current spinner message
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
