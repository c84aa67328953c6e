package tui

import (
	"context"
	"fmt"
	"time"

	"nodepulse/internal/domain"
	"nodepulse/internal/engine"
	"nodepulse/internal/service"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const pollInterval = 5 * time.Second

// PulseReader is what the dashboard needs from the serving layer.
type PulseReader interface {
	GetSignals(ctx context.Context) []domain.SignalRecord
	GetNodeStats(ctx context.Context) (service.NodeStats, bool)
	TriggerRefresh(ctx context.Context) []domain.SignalRecord
	State() engine.State
	LastRefresh() time.Time
}

// Services bundles the dependencies injected into each SSH session.
type Services struct {
	Pulse    PulseReader
	Username string
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	buyStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	sellStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	sidewaysStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

type tickMsg time.Time

type dataMsg struct {
	records   []domain.SignalRecord
	stats     service.NodeStats
	haveStats bool
}

type refreshDoneMsg struct {
	records []domain.SignalRecord
}

// AppModel is the root bubbletea model for the SSH dashboard.
type AppModel struct {
	svc        Services
	table      table.Model
	records    []domain.SignalRecord
	stats      service.NodeStats
	haveStats  bool
	refreshing bool
	width      int
	height     int
}

func NewAppModel(svc Services) *AppModel {
	columns := []table.Column{
		{Title: "Symbol", Width: 8},
		{Title: "Signal", Width: 10},
		{Title: "Price (USD)", Width: 14},
		{Title: "24h %", Width: 8},
		{Title: "Magnitude", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(len(domain.TrackedSymbols)+1),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return &AppModel{svc: svc, table: t}
}

func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tickCmd())
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			if m.refreshing {
				return m, nil
			}
			m.refreshing = true
			return m, m.refreshCmd()
		}

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd())

	case dataMsg:
		m.records = msg.records
		m.stats = msg.stats
		m.haveStats = msg.haveStats
		m.table.SetRows(buildRows(msg.records))
		return m, nil

	case refreshDoneMsg:
		m.refreshing = false
		m.records = msg.records
		m.table.SetRows(buildRows(msg.records))
		return m, m.fetchCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *AppModel) View() string {
	title := titleStyle.Render("nodepulse · Bitcoin network signal dashboard")

	var stats string
	if m.haveStats {
		stats = statsStyle.Render(fmt.Sprintf(
			"Nodes: %d total · %d active · %d tor (%.2f%%) · %d snapshots",
			m.stats.TotalNodes, m.stats.ActiveNodes, m.stats.TorNodes,
			m.stats.TorPercent, m.stats.HistorySize,
		))
	} else {
		stats = statsStyle.Render("Waiting for first node snapshot...")
	}

	status := m.statusLine()
	body := tableStyle.Render(m.table.View())
	help := helpStyle.Render("r refresh · ↑/↓ navigate · q quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, stats, status, body, help)
}

func (m *AppModel) statusLine() string {
	state := string(m.svc.Pulse.State())
	if m.refreshing {
		state = "refreshing"
	}
	line := "State: " + state
	if last := m.svc.Pulse.LastRefresh(); !last.IsZero() {
		line += " · last refresh " + last.UTC().Format("15:04:05")
	}
	if len(m.records) > 0 {
		line += " · signal " + renderSignal(m.records[0].Signal)
	}
	return statsStyle.Render(line)
}

func (m *AppModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		records := m.svc.Pulse.GetSignals(ctx)
		stats, ok := m.svc.Pulse.GetNodeStats(ctx)
		return dataMsg{records: records, stats: stats, haveStats: ok}
	}
}

func (m *AppModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return refreshDoneMsg{records: m.svc.Pulse.TriggerRefresh(ctx)}
	}
}

func buildRows(records []domain.SignalRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row{
			rec.Symbol,
			renderSignal(rec.Signal),
			fmt.Sprintf("%.2f", rec.PriceUSD),
			fmt.Sprintf("%+.2f", rec.Change24hPct),
			fmt.Sprintf("%.4f", rec.Magnitude),
		})
	}
	return rows
}

func renderSignal(sig domain.Classification) string {
	switch sig {
	case domain.SignalBuy:
		return buyStyle.Render(string(sig))
	case domain.SignalSell:
		return sellStyle.Render(string(sig))
	default:
		return sidewaysStyle.Render(string(sig))
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
