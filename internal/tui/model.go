// Package tui is the terminal dashboard: a market bar, the enriched feed and
// a status line, driven by the refresh sessions.
package tui

import (
	"fmt"
	"strings"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/job"
	"coinpulse/internal/news"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type FeedSource interface {
	Snapshot() job.FeedSnapshot
	Subscribe() (<-chan job.FeedSnapshot, func())
	Refresh()
}

type MarketSource interface {
	Snapshot() job.MarketState
	Subscribe() (<-chan job.MarketState, func())
	Refresh()
}

type feedMsg job.FeedSnapshot

type marketMsg job.MarketState

var (
	sentimentCycle = []domain.Sentiment{"", domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative}
	impactCycle    = []domain.Impact{"", domain.ImpactHigh, domain.ImpactMedium, domain.ImpactLow}
	sortCycle      = []news.SortOrder{news.SortNewest, news.SortOldest, news.SortReliability}
)

// Model is the dashboard. market may be nil.
type Model struct {
	feed   FeedSource
	market MarketSource

	feedCh      <-chan job.FeedSnapshot
	marketCh    <-chan job.MarketState
	unsubscribe []func()

	snapshot    job.FeedSnapshot
	marketState job.MarketState
	visible     []domain.NewsItem

	sentimentIdx int
	impactIdx    int
	sortIdx      int

	selected  int
	offset    int
	searching bool

	search  textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	width  int
	height int
}

func NewModel(feed FeedSource, market MarketSource) *Model {
	search := textinput.New()
	search.Placeholder = "search headlines"
	search.Prompt = "/ "
	search.CharLimit = 64

	m := &Model{
		feed:    feed,
		market:  market,
		search:  search,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    defaultKeyMap(),
		width:   100,
		height:  30,
	}

	ch, unsub := feed.Subscribe()
	m.feedCh = ch
	m.unsubscribe = append(m.unsubscribe, unsub)
	m.snapshot = feed.Snapshot()

	if market != nil {
		mch, munsub := market.Subscribe()
		m.marketCh = mch
		m.unsubscribe = append(m.unsubscribe, munsub)
		m.marketState = market.Snapshot()
	}
	m.applyQuery()
	return m
}

// Close releases the session subscriptions.
func (m *Model) Close() {
	for _, fn := range m.unsubscribe {
		fn()
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitFeed(m.feedCh), m.spinner.Tick}
	if m.marketCh != nil {
		cmds = append(cmds, waitMarket(m.marketCh))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m, m.updateSearch(msg)
		}
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampSelection()

	case feedMsg:
		m.snapshot = job.FeedSnapshot(msg)
		m.applyQuery()
		return m, waitFeed(m.feedCh)

	case marketMsg:
		m.marketState = job.MarketState(msg)
		return m, waitMarket(m.marketCh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		m.clampSelection()
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.visible)-1 {
			m.selected++
		}
		m.clampSelection()
	case key.Matches(msg, m.keys.Refresh):
		m.feed.Refresh()
		if m.market != nil {
			m.market.Refresh()
		}
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m.search.Focus()
	case key.Matches(msg, m.keys.Sentiment):
		m.sentimentIdx = (m.sentimentIdx + 1) % len(sentimentCycle)
		m.applyQuery()
	case key.Matches(msg, m.keys.Impact):
		m.impactIdx = (m.impactIdx + 1) % len(impactCycle)
		m.applyQuery()
	case key.Matches(msg, m.keys.Sort):
		m.sortIdx = (m.sortIdx + 1) % len(sortCycle)
		m.applyQuery()
	case key.Matches(msg, m.keys.Clear):
		m.sentimentIdx, m.impactIdx, m.sortIdx = 0, 0, 0
		m.search.SetValue("")
		m.applyQuery()
	}
	return nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.applyQuery()
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyQuery()
	return cmd
}

func (m *Model) query() news.Query {
	return news.Query{
		Sentiment: sentimentCycle[m.sentimentIdx],
		Impact:    impactCycle[m.impactIdx],
		Text:      m.search.Value(),
		Sort:      sortCycle[m.sortIdx],
	}
}

func (m *Model) applyQuery() {
	m.visible = news.Apply(m.snapshot.Items, m.query())
	m.clampSelection()
}

func (m *Model) listHeight() int {
	// market bar (3), title, header, status, help, optional banner
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.visible) {
		m.selected = len(m.visible) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	rows := m.listHeight()
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}
}

func (m *Model) View() string {
	var sections []string

	sections = append(sections, m.marketBar())
	if m.snapshot.Err != "" {
		sections = append(sections, bannerStyle.Render("! "+m.snapshot.Err))
	}
	sections = append(sections, m.titleLine(), m.feedView(), m.statusLine(), m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) marketBar() string {
	if len(m.marketState.Snapshots) == 0 {
		return marketBarStyle.Render(mutedStyle.Render("market data loading"))
	}
	parts := make([]string, 0, len(m.marketState.Snapshots)+1)
	for _, snap := range m.marketState.Snapshots {
		part := fmt.Sprintf("%s %s %s",
			snap.Symbol,
			domain.FormatPrice(snap.PriceUSD),
			changeStyle(snap.Change24hPct).Render(domain.FormatPercent(snap.Change24hPct)),
		)
		if snap.Mock {
			part += mutedStyle.Render("*")
		}
		parts = append(parts, part)
	}
	if fg := m.marketState.FearGreed; fg != nil {
		parts = append(parts, fmt.Sprintf("F&G %d %s", fg.Value, fg.Classification))
	}
	return marketBarStyle.Render(strings.Join(parts, "  │  "))
}

func (m *Model) titleLine() string {
	q := m.query()
	filters := []string{"sort:" + string(q.Sort)}
	if q.Sentiment != "" {
		filters = append(filters, "sentiment:"+string(q.Sentiment))
	}
	if q.Impact != "" {
		filters = append(filters, "impact:"+string(q.Impact))
	}
	if q.Text != "" {
		filters = append(filters, fmt.Sprintf("q:%q", q.Text))
	}
	title := titleStyle.Render("coinpulse news") + "  " + mutedStyle.Render(strings.Join(filters, " "))
	if m.searching {
		title += "  " + m.search.View()
	}
	return title
}

func (m *Model) feedView() string {
	if len(m.visible) == 0 {
		if m.snapshot.Loading {
			return mutedStyle.Render(m.spinner.View() + " fetching news")
		}
		return mutedStyle.Render("No news available")
	}

	titleWidth := m.width - 48
	if titleWidth < 20 {
		titleWidth = 20
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-5s %-8s %-6s %3s  %-22s %s", "Time", "Mood", "Impact", "Rel", "Source", "Headline")))

	end := m.offset + m.listHeight()
	if end > len(m.visible) {
		end = len(m.visible)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(i, titleWidth))
	}
	return b.String()
}

func (m *Model) renderRow(i, titleWidth int) string {
	item := m.visible[i]
	row := item.ExportRow()

	when := time.Unix(item.PublishedAt, 0).Format("15:04")
	mood := sentimentStyle(row.Sentiment).Render(fmt.Sprintf("%-8s", row.Sentiment))
	impact := impactStyle(row.Impact).Render(fmt.Sprintf("%-6s", row.Impact))
	line := fmt.Sprintf("%-5s %s %s %3d  %-22s %s",
		when, mood, impact, row.Reliability,
		truncate(item.Source, 22),
		truncate(item.Title, titleWidth),
	)
	if i == m.selected {
		return selectedRowStyle.Render(line)
	}
	return rowStyle.Render(line)
}

func (m *Model) statusLine() string {
	parts := []string{fmt.Sprintf("%d/%d items", len(m.visible), len(m.snapshot.Items))}
	if !m.snapshot.UpdatedAt.IsZero() {
		parts = append(parts, "updated "+m.snapshot.UpdatedAt.Format("15:04:05"))
	}
	status := mutedStyle.Render(strings.Join(parts, " · "))
	if m.snapshot.Stale {
		status += " " + staleStyle.Render("stale")
	}
	if m.snapshot.Loading {
		status += " " + m.spinner.View()
	}
	return status
}

func waitFeed(ch <-chan job.FeedSnapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return feedMsg(snap)
	}
}

func waitMarket(ch <-chan job.MarketState) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-ch
		if !ok {
			return nil
		}
		return marketMsg(state)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
