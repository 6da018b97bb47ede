package sim

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a rendered reading line for the viewport.
type logMsg struct {
	line    string
	reading telemetry.Reading
}

// adminMsg reports admin server status.
type adminMsg struct{ active bool }

const maxLogLines = 1000

// TUIWriter renders readings using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	mu         sync.Mutex
	zoneColors map[string]string
	colorIdx   int
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the UI interrupts the process so the simulator shuts down with it.
func NewTUIWriter(cfg *config.Config) *TUIWriter {
	w := &TUIWriter{zoneColors: make(map[string]string), done: make(chan struct{})}
	w.sendSignal.Store(true)
	for i := 0; i < cfg.Zones; i++ {
		w.getZoneColor(telemetry.ZoneName(i))
	}
	m := newTUIModel(cfg, w.zoneColors)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func (w *TUIWriter) getZoneColor(zone string) string {
	if c, ok := w.zoneColors[zone]; ok {
		return c
	}
	c := zonePalette[w.colorIdx%len(zonePalette)]
	w.zoneColors[zone] = c
	w.colorIdx++
	return c
}

// Write implements ReadingWriter.
func (w *TUIWriter) Write(r telemetry.Reading) error {
	w.mu.Lock()
	zColor := w.getZoneColor(r.Zone)
	w.mu.Unlock()
	line := fmt.Sprintf("%s[%s]%s %s%s%s %s %-13s %s%.2f%s %s",
		colorGray, r.Time().Format("15:04:05.000"), colorReset,
		zColor, r.Zone, colorReset,
		r.HostID,
		r.Metric,
		valueColor(r), r.Value, colorReset,
		r.Unit)
	w.program.Send(logMsg{line: line, reading: r})
	return nil
}

// SetAdminStatus updates the admin server indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close stops the TUI program without interrupting the process.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

// zoneStats aggregates what the header table shows per zone.
type zoneStats struct {
	readings int
	last     telemetry.Reading
	peaks    map[telemetry.Metric]float64
}

type tuiModel struct {
	cfg          *config.Config
	table        table.Model
	vp           viewport.Model
	filter       textinput.Model
	filtering    bool
	logs         []string
	raw          []telemetry.Reading
	stats        map[string]*zoneStats
	zoneColors   map[string]string
	admin        bool
	wrap         bool
	autoscroll   bool
	summary      bool
	help         bool
	header       string
	headerHeight int
	height       int
}

func newTUIModel(cfg *config.Config, zoneColors map[string]string) tuiModel {
	cols := []table.Column{
		{Title: "Zone", Width: 8},
		{Title: "Readings", Width: 10},
		{Title: "Last Host", Width: 16},
		{Title: "Last Metric", Width: 14},
		{Title: "Value", Width: 12},
	}
	stats := make(map[string]*zoneStats, cfg.Zones)
	for i := 0; i < cfg.Zones; i++ {
		stats[telemetry.ZoneName(i)] = &zoneStats{peaks: make(map[telemetry.Metric]float64)}
	}
	ti := textinput.New()
	ti.Placeholder = "zone, host or metric"
	m := tuiModel{
		cfg:        cfg,
		vp:         viewport.New(0, 0),
		filter:     ti,
		stats:      stats,
		zoneColors: zoneColors,
		autoscroll: true,
	}
	m.table = table.New(table.WithColumns(cols), table.WithRows(m.zoneRows()), table.WithHeight(cfg.Zones+1))
	return m
}

func (m tuiModel) zoneRows() []table.Row {
	names := make([]string, 0, len(m.stats))
	for name := range m.stats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	rows := make([]table.Row, 0, len(names))
	for _, name := range names {
		s := m.stats[name]
		if s.readings == 0 {
			rows = append(rows, table.Row{name, "0", "-", "-", "-"})
			continue
		}
		rows = append(rows, table.Row{
			name,
			fmt.Sprintf("%d", s.readings),
			s.last.HostID,
			string(s.last.Metric),
			fmt.Sprintf("%.2f %s", s.last.Value, s.last.Unit),
		})
	}
	return rows
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.filtering {
			switch msg.Type {
			case tea.KeyEnter, tea.KeyEsc:
				if msg.Type == tea.KeyEsc {
					m.filter.SetValue("")
				}
				m.filtering = false
				m.filter.Blur()
				m.refreshViewport()
				m.updateViewportHeight()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.refreshViewport()
			return m, cmd
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				return m, nil
			}
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "/":
			m.filtering = true
			m.filter.Focus()
			m.updateViewportHeight()
			return m, textinput.Blink
		case "t":
			m.summary = !m.summary
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		m.raw = append(m.raw, msg.reading)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
			m.raw = m.raw[len(m.raw)-maxLogLines:]
		}
		m.record(msg.reading)
		m.table.SetRows(m.zoneRows())
		m.header = m.renderHeader()
		m.refreshViewport()
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func (m *tuiModel) record(r telemetry.Reading) {
	if r.Zone == "" {
		return
	}
	s, ok := m.stats[r.Zone]
	if !ok {
		s = &zoneStats{peaks: make(map[telemetry.Metric]float64)}
		m.stats[r.Zone] = s
	}
	s.readings++
	s.last = r
	if r.Value > s.peaks[r.Metric] {
		s.peaks[r.Metric] = r.Value
	}
}

// visibleLogs applies the active filter to the log buffer.
func (m tuiModel) visibleLogs() []string {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		return m.logs
	}
	var out []string
	for i, r := range m.raw {
		if strings.Contains(strings.ToLower(r.Zone), q) ||
			strings.Contains(strings.ToLower(r.HostID), q) ||
			strings.Contains(strings.ToLower(string(r.Metric)), q) {
			out = append(out, m.logs[i])
		}
	}
	return out
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	filterHeight := 0
	if m.filtering {
		filterHeight = 1
	}
	h := m.height - m.headerHeight - bottomHeight - filterHeight - 2
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.visibleLogs() {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.header, divider, m.vp.View()}
	if m.filtering {
		sections = append(sections, "Filter: "+m.filter.View())
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	return m.table.View()
}

func (m tuiModel) renderSummary() string {
	var parts []string
	for _, metric := range telemetry.Metrics() {
		var peak float64
		for _, s := range m.stats {
			if v := s.peaks[metric]; v > peak {
				peak = v
			}
		}
		parts = append(parts, fmt.Sprintf("%s=%.1f%s", metric, peak, metric.Unit()))
	}
	return fmt.Sprintf("%sPEAKS%s %s", colorBlue, colorReset, strings.Join(parts, " "))
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	total := 0
	for _, s := range m.stats {
		total += s.readings
	}
	state := fmt.Sprintf("%sSTATE%s %szones=%d%s %sservers=%d%s %sreadings=%d%s",
		colorBlue, colorReset,
		colorYellow, m.cfg.Zones, colorReset,
		colorMagenta, m.cfg.ServersPerZone, colorReset,
		colorGreen, total, colorReset)
	filter := m.filter.Value()
	if filter == "" {
		filter = "-"
	}
	line := fmt.Sprintf("%s | Admin %s | Wrap %s | Scroll %s | Summary %s | Filter %s",
		state, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.summary), filter)
	if m.summary {
		return fmt.Sprintf("%s\n%s", m.renderSummary(), line)
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle line wrap",
		" s  toggle auto-scroll",
		" /  filter readings by zone, host or metric (enter keeps, esc clears)",
		" t  toggle peak summary footer",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
