package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/gordian/pkg/observability"
	"github.com/matzehuels/gordian/pkg/pipeline"
)

var (
	tuiBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	tuiLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	tuiSparkStyle = lipgloss.NewStyle().Foreground(colorCyan)
)

// sparkWidth is the number of most recent iterations drawn in the chart.
const sparkWidth = 48

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// =============================================================================
// Messages
// =============================================================================

type placeStartMsg struct{ cells, nets int }

type iterationMsg struct {
	index, partitions int
	hpwl              float64
}

type placeDoneMsg struct {
	result *pipeline.Result
	err    error
}

// =============================================================================
// Hooks
// =============================================================================

// tuiHooks forwards placement progress to a running program.
type tuiHooks struct {
	observability.NoopPlacementHooks
	send func(tea.Msg)
}

func (h tuiHooks) OnPlaceStart(_ context.Context, _ string, cells, nets int) {
	h.send(placeStartMsg{cells: cells, nets: nets})
}

func (h tuiHooks) OnIteration(_ context.Context, _ string, i, partitions int, hpwl float64) {
	h.send(iterationMsg{index: i, partitions: partitions, hpwl: hpwl})
}

// =============================================================================
// PlaceModel - Live convergence view
// =============================================================================

// PlaceModel shows wirelength and partition count while a placement runs.
type PlaceModel struct {
	Design string
	Cells  int
	Nets   int

	History    []float64
	Partitions int
	Iteration  int

	Result *pipeline.Result
	Err    error

	start  time.Time
	now    time.Time
	cancel context.CancelFunc
	frame  int
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// NewPlaceModel creates a model for design. cancel is called when the user
// quits before the run finishes.
func NewPlaceModel(design string, cancel context.CancelFunc) PlaceModel {
	now := time.Now()
	return PlaceModel{Design: design, start: now, now: now, cancel: cancel, Iteration: -1}
}

func (m PlaceModel) Init() tea.Cmd {
	return tick()
}

func (m PlaceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			m.Err = context.Canceled
			return m, tea.Quit
		}
	case tickMsg:
		m.now = time.Time(msg)
		m.frame++
		return m, tick()
	case placeStartMsg:
		m.Cells, m.Nets = msg.cells, msg.nets
	case iterationMsg:
		m.Iteration = msg.index
		m.Partitions = msg.partitions
		m.History = append(m.History, msg.hpwl)
	case placeDoneMsg:
		m.Result, m.Err = msg.result, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m PlaceModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("gordian " + m.Design))
	b.WriteString("\n\n")

	row := func(k, v string) {
		b.WriteString(tuiLabelStyle.Render(k) + " " + StyleValue.Render(v) + "\n")
	}
	row("netlist", fmt.Sprintf("%d cells · %d nets", m.Cells, m.Nets))
	if m.Iteration >= 0 {
		row("iteration", fmt.Sprintf("%d", m.Iteration))
		row("partitions", fmt.Sprintf("%d", m.Partitions))
	}
	if n := len(m.History); n > 0 {
		row("hpwl", formatHPWL(m.History[0], m.History[n-1]))
		b.WriteString(tuiLabelStyle.Render("") + " " + tuiSparkStyle.Render(sparkline(m.History, sparkWidth)) + "\n")
	}
	row("elapsed", m.now.Sub(m.start).Round(100*time.Millisecond).String())

	status := styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]) + " " + StyleDim.Render("placing · q to abort")
	switch {
	case m.Err != nil:
		status = styleIconError.Render(iconError) + " " + m.Err.Error()
	case m.Result != nil:
		status = styleIconSuccess.Render(iconSuccess) + " done"
	}
	b.WriteString("\n" + status)
	return tuiBoxStyle.Render(b.String()) + "\n"
}

// sparkline draws the last width values scaled between their min and max.
func sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[len(values)-width:]
	}
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	top := len(sparkLevels) - 1
	out := make([]rune, len(values))
	for i, v := range values {
		level := top / 2
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(top))
		}
		out[i] = sparkLevels[level]
	}
	return string(out)
}

// runWithTUI executes the pipeline while a bubbletea program shows its
// progress on the terminal.
func runWithTUI(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, progOpts ...tea.ProgramOption) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewPlaceModel(opts.Design, cancel), progOpts...)
	observability.SetPlacementHooks(tuiHooks{send: p.Send})
	defer observability.SetPlacementHooks(observability.NoopPlacementHooks{})

	go func() {
		res, err := runner.Execute(ctx, opts)
		p.Send(placeDoneMsg{result: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	m := final.(PlaceModel)
	return m.Result, m.Err
}
