package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/splinempc/internal/config"
	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/integrators"
	"github.com/san-kum/splinempc/internal/models"
	"github.com/san-kum/splinempc/internal/planner"
)

const (
	canvasWidth  = 64
	canvasHeight = 18
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	actionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type liveModel struct {
	name string
	cfg  *config.Config

	dyn        dynamo.Actuated
	integrator dynamo.Integrator
	pl         *planner.Planner

	x      dynamo.State
	next   dynamo.State
	u      dynamo.Control
	t      float64
	step   int
	cost   float64
	paused bool
	failed error

	canvas [][]rune
}

// Run starts the live receding-horizon view for the configured model.
func Run(cfg *config.Config) error {
	m, err := newLiveModel(cfg)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func newLiveModel(cfg *config.Config) (*liveModel, error) {
	dyn := models.New(cfg.Model)
	if dyn == nil {
		return nil, fmt.Errorf("unknown model %q", cfg.Model)
	}

	pcfg, err := cfg.ToPlanner()
	if err != nil {
		return nil, err
	}
	pl, err := planner.New(dyn, cfg.ToTask(), pcfg)
	if err != nil {
		return nil, err
	}

	canvas := make([][]rune, canvasHeight)
	for i := range canvas {
		canvas[i] = make([]rune, canvasWidth)
	}

	m := &liveModel{
		name:       cfg.Model,
		cfg:        cfg,
		dyn:        dyn,
		integrator: integrators.New(cfg.Integrator),
		pl:         pl,
		x:          dynamo.State(cfg.InitState).Clone(),
		next:       make(dynamo.State, dyn.StateDim()),
		u:          make(dynamo.Control, dyn.ControlDim()),
		canvas:     canvas,
	}
	return m, nil
}

func (m *liveModel) Init() tea.Cmd { return tick() }

func (m *liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "r":
			m.x = dynamo.State(m.cfg.InitState).Clone()
			m.t = 0
			m.step = 0
			m.failed = nil
		}
		return m, nil

	case tickMsg:
		if !m.paused && m.failed == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *liveModel) advance() {
	if m.step%m.cfg.Planner.ReplanEvery == 0 {
		cost, err := m.pl.Plan(context.Background(), m.x, m.t)
		if err != nil {
			m.failed = err
			return
		}
		m.cost = cost
	}

	m.pl.Action(m.u, m.x, m.t)
	m.integrator.Step(m.next, m.dyn, m.x, m.u, m.t, m.cfg.Dt)
	if !m.next.IsValid() {
		m.failed = fmt.Errorf("state diverged at t=%.3f", m.t)
		return
	}
	copy(m.x, m.next)
	m.t += m.cfg.Dt
	m.step++
}

func (m *liveModel) View() string {
	m.clear()
	switch m.name {
	case "cartpole":
		m.drawCartpole()
	default:
		m.drawPendulum()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("  %s", m.name)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  t=%.2fs  plan cost %.3f", m.t, m.cost)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("-", canvasWidth)))
	b.WriteString("\n")

	for _, row := range m.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render("  " + strings.Repeat("-", canvasWidth)))
	b.WriteString("\n  ")
	for i, v := range m.x {
		if i >= 4 {
			break
		}
		b.WriteString(valueStyle.Render(fmt.Sprintf("x%d=%+.2f ", i, v)))
	}
	b.WriteString(actionStyle.Render(m.actionBar()))
	b.WriteString("\n")
	if m.failed != nil {
		b.WriteString("  " + titleStyle.Render(m.failed.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("  space pause · r reset · q quit"))
	b.WriteString("\n")
	return b.String()
}

// actionBar renders the first actuator as a signed bar inside its range.
func (m *liveModel) actionBar() string {
	if len(m.u) == 0 {
		return ""
	}
	r := m.dyn.ControlRange()[0]
	span := r.Hi - r.Lo
	if span <= 0 {
		return ""
	}

	width := 16
	pos := int(float64(width) * (m.u[0] - r.Lo) / span)
	if pos < 0 {
		pos = 0
	}
	if pos >= width {
		pos = width - 1
	}

	bar := []rune(strings.Repeat("·", width))
	bar[width/2] = '|'
	bar[pos] = '#'
	return fmt.Sprintf(" u=%+.2f [%s]", m.u[0], string(bar))
}

func (m *liveModel) clear() {
	for y := range m.canvas {
		for x := range m.canvas[y] {
			m.canvas[y][x] = ' '
		}
	}
}

func (m *liveModel) set(x, y int, c rune) {
	if x >= 0 && x < canvasWidth && y >= 0 && y < canvasHeight {
		m.canvas[y][x] = c
	}
}

func (m *liveModel) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		m.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawPendulum draws with theta measured from the hanging rest position.
func (m *liveModel) drawPendulum() {
	theta := m.x[0]
	px, py := canvasWidth/2, 3
	length := 10.0
	bx := px + int(length*math.Sin(theta))
	by := py + int(length*math.Cos(theta))

	m.set(px, py, '+')
	m.line(px, py, bx, by, '|')
	m.set(bx, by, 'O')
}

func (m *liveModel) drawCartpole() {
	pos, theta := m.x[0], m.x[2]
	gy := canvasHeight - 4
	cx := canvasWidth/2 + int(pos*8)

	for i := 4; i < canvasWidth-4; i++ {
		m.set(i, gy+1, '=')
	}
	for dx := -3; dx <= 3; dx++ {
		m.set(cx+dx, gy, '#')
	}

	plen := 8.0
	px := cx + int(plen*math.Sin(theta))
	py := gy - int(plen*math.Cos(theta))
	m.line(cx, gy-1, px, py, '|')
	m.set(px, py, 'o')
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
