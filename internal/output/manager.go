package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type FunctionOutput struct {
	ID          int
	Label       string
	Status      string
	Message     string
	Downloaded  int64
	Total       int64
	HasProgress bool
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
	lastPrinted string
}

type eventKind int

const (
	eventRegister eventKind = iota
	eventStatus
	eventMessage
	eventProgress
	eventComplete
	eventError
)

type event struct {
	kind       eventKind
	id         int
	label      string
	text       string
	downloaded int64
	total      int64
	err        error
	at         time.Time
}

// Manager owns the output surface. Jobs never write to it directly; every
// call turns into an event on a channel drained by the display goroutine,
// which is the only writer.
type Manager struct {
	out         io.Writer
	interactive bool
	displayTick time.Duration
	events      chan event
	nextID      atomic.Int64
	displayWg   sync.WaitGroup

	// owned by the display goroutine
	outputs  map[int]*FunctionOutput
	numLines int
}

func NewManager(out io.Writer) *Manager {
	return &Manager{
		out:         out,
		interactive: isTerminal(out),
		displayTick: 300 * time.Millisecond,
		events:      make(chan event, 1024),
		outputs:     make(map[int]*FunctionOutput),
	}
}

func (m *Manager) SetUpdateInterval(interval time.Duration) {
	m.displayTick = interval
}

// SetInteractive forces in-place redraws on or off; it must be called
// before StartDisplay.
func (m *Manager) SetInteractive(interactive bool) {
	m.interactive = interactive
}

func (m *Manager) send(ev event) {
	ev.at = time.Now()
	m.events <- ev
}

func (m *Manager) RegisterFunction(label string) int {
	id := int(m.nextID.Add(1))
	m.send(event{kind: eventRegister, id: id, label: label})
	return id
}

func (m *Manager) SetStatus(id int, status string) {
	m.send(event{kind: eventStatus, id: id, text: status})
}

func (m *Manager) SetMessage(id int, message string) {
	m.send(event{kind: eventMessage, id: id, text: message})
}

func (m *Manager) UpdateProgress(id int, downloaded, total int64) {
	m.send(event{kind: eventProgress, id: id, downloaded: downloaded, total: total})
}

func (m *Manager) Complete(id int, message string) {
	m.send(event{kind: eventComplete, id: id, text: message})
}

func (m *Manager) ReportError(id int, err error) {
	m.send(event{kind: eventError, id: id, err: err})
}

func (m *Manager) apply(ev event) {
	if ev.kind == eventRegister {
		m.outputs[ev.id] = &FunctionOutput{
			ID:          ev.id,
			Label:       ev.label,
			Status:      StatusPending,
			StartTime:   ev.at,
			LastUpdated: ev.at,
		}
		return
	}
	info, exists := m.outputs[ev.id]
	if !exists || info.Complete {
		return
	}
	info.LastUpdated = ev.at
	switch ev.kind {
	case eventStatus:
		info.Status = ev.text
	case eventMessage:
		info.Message = ev.text
	case eventProgress:
		info.Status = StatusActive
		info.HasProgress = true
		info.Downloaded = ev.downloaded
		info.Total = ev.total
	case eventComplete:
		info.Complete = true
		info.Status = StatusSuccess
		if ev.text == "" {
			info.Message = fmt.Sprintf("Completed %s", info.Label)
		} else {
			info.Message = ev.text
		}
		if !m.interactive {
			m.printPlainLine(info)
			fmt.Fprintln(m.out, m.finalLine(info, 0))
		}
	case eventError:
		info.Complete = true
		info.Status = StatusError
		info.Error = ev.err
		info.Message = fmt.Sprintf("%s: %v", info.Label, ev.err)
		if !m.interactive {
			m.printPlainLine(info)
			fmt.Fprintln(m.out, m.finalLine(info, 0))
		}
	}
}

func (m *Manager) GetStatusIndicator(status string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case StatusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

// styleMessage colours the message by status; a positive width truncates
// the plain text first so escape sequences are never cut.
func (m *Manager) styleMessage(info *FunctionOutput, width int) string {
	message := info.Message
	if width > 0 {
		message = truncate(message, width)
	}
	switch info.Status {
	case StatusSuccess:
		return successStyle.Render(message)
	case StatusError:
		return errorStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) finalLine(info *FunctionOutput, width int) string {
	elapsed := info.LastUpdated.Sub(info.StartTime).Round(time.Second)
	return fmt.Sprintf("  %s %s %s", m.GetStatusIndicator(info.Status), debugStyle.Render(elapsed.String()), m.styleMessage(info, width))
}

func (m *Manager) progressLine(info *FunctionOutput) string {
	elapsed := info.LastUpdated.Sub(info.StartTime)
	return fmt.Sprintf("%s %s %s", ProgressBar(info.Downloaded, info.Total, 30), StyleSymbols["bullet"], ProgressText(info.Downloaded, info.Total, elapsed))
}

func (m *Manager) sortFunctions() (active, pending, completed []*FunctionOutput) {
	var allFuncs []*FunctionOutput
	for _, info := range m.outputs {
		allFuncs = append(allFuncs, info)
	}
	sort.Slice(allFuncs, func(i, j int) bool {
		return allFuncs[i].ID < allFuncs[j].ID
	})
	for _, f := range allFuncs {
		if f.Complete {
			completed = append(completed, f)
		} else if f.Status == StatusPending && f.Message == "" {
			pending = append(pending, f)
		} else {
			active = append(active, f)
		}
	}
	return active, pending, completed
}

// printPlainProgress writes one line per running job whose progress changed
// since the last tick.
func (m *Manager) printPlainProgress() {
	active, _, _ := m.sortFunctions()
	for _, info := range active {
		m.printPlainLine(info)
	}
}

// printPlainLine writes the job's progress line unless that byte count was
// already printed. Completing jobs flush through it so their last count is
// never skipped.
func (m *Manager) printPlainLine(info *FunctionOutput) {
	if !info.HasProgress {
		return
	}
	key := fmt.Sprintf("%d/%d", info.Downloaded, info.Total)
	if key == info.lastPrinted {
		return
	}
	info.lastPrinted = key
	fmt.Fprintf(m.out, "  %s %s %s\n", infoStyle.Render(StyleSymbols["bullet"]), info.Label, m.progressLine(info))
}

func (m *Manager) clearDisplay() {
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	m.numLines = 0
}

func (m *Manager) updateDisplay() {
	width, height := getTerminalSize(m.out)
	availableLines := height - 3
	m.clearDisplay()

	lineCount := 0
	activeFuncs, pendingFuncs, completedFuncs := m.sortFunctions()

	totalNeeded := len(pendingFuncs) + len(completedFuncs)
	for _, f := range activeFuncs {
		totalNeeded++
		if f.HasProgress {
			totalNeeded++
		}
	}
	if totalNeeded > availableLines {
		maxCompleted := max(availableLines-(totalNeeded-len(completedFuncs)), 0)
		if len(completedFuncs) > maxCompleted {
			completedFuncs = completedFuncs[len(completedFuncs)-maxCompleted:]
		}
	}

	for _, info := range activeFuncs {
		if lineCount >= availableLines {
			break
		}
		elapsed := time.Since(info.StartTime).Round(time.Second)
		fmt.Fprintf(m.out, "  %s %s %s\n", m.GetStatusIndicator(info.Status), debugStyle.Render(elapsed.String()), m.styleMessage(info, width-16))
		lineCount++
		if info.HasProgress && lineCount < availableLines {
			fmt.Fprintln(m.out, "      "+streamStyle.Render(m.progressLine(info)))
			lineCount++
		}
	}
	for _, info := range pendingFuncs {
		if lineCount >= availableLines {
			break
		}
		fmt.Fprintf(m.out, "  %s %s\n", m.GetStatusIndicator(info.Status), pendingStyle.Render("Waiting..."))
		lineCount++
	}
	for _, info := range completedFuncs {
		if lineCount >= availableLines {
			break
		}
		fmt.Fprintln(m.out, m.finalLine(info, width-16))
		lineCount++
	}
	m.numLines = lineCount
}

// finish replaces the live region with every job's final line, untrimmed,
// so each outcome stays on screen exactly once.
func (m *Manager) finish() {
	if m.interactive {
		m.clearDisplay()
		_, _, completed := m.sortFunctions()
		for _, info := range completed {
			fmt.Fprintln(m.out, m.finalLine(info, 0))
		}
	}
	m.ShowSummary()
}

func (m *Manager) StartDisplay() {
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-m.events:
				if !ok {
					m.finish()
					return
				}
				m.apply(ev)
			case <-ticker.C:
				if m.interactive {
					m.updateDisplay()
				} else {
					m.printPlainProgress()
				}
			}
		}
	}()
}

// StopDisplay flushes pending events and prints the summary. No other
// method may be called once it has started.
func (m *Manager) StopDisplay() {
	close(m.events)
	m.displayWg.Wait()
}

// Counts reports succeeded and failed jobs; valid after StopDisplay.
func (m *Manager) Counts() (success, failures int) {
	for _, info := range m.outputs {
		switch info.Status {
		case StatusSuccess:
			success++
		case StatusError:
			failures++
		}
	}
	return success, failures
}

func (m *Manager) ShowSummary() {
	success, failures := m.Counts()
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, strings.Repeat(" ", 2)+success2Style.Render(fmt.Sprintf("Completed %d of %d", success, len(m.outputs))))
	if failures > 0 {
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.outputs))))
	}
	fmt.Fprintln(m.out)
}
