package viewer

import (
	"fmt"
	"strings"

	"sandbox-harness/testreport"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	btable "github.com/evertras/bubble-table/table"
)

// Styles for the report viewer
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffaa")).
			Underline(true).
			Padding(0, 1)

	suiteHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ffaa00")).
				Background(lipgloss.Color("#2a2a2a")).
				Padding(0, 1).
				MarginTop(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444")).
			Bold(true)

	passedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00aa00"))

	failedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff0000"))

	erroredStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff8800"))

	skippedStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("#888888"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#00aa00")).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#ff0000")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Faint(true)
)

// DisplayItemType represents the type of display item
type DisplayItemType int

const (
	ItemTypeSuiteHeader DisplayItemType = iota
	ItemTypeCase
	ItemTypeDivider
)

// DisplayItem represents an item in the display list (suite header, case,
// or divider)
type DisplayItem struct {
	Type     DisplayItemType
	Case     *CaseItem
	Suite    *SuiteHeaderItem
	Selected bool
}

// CaseItem represents a test case in the list with UI state
type CaseItem struct {
	Suite    string
	Result   testreport.TestResult
	Expanded bool
}

// SuiteHeaderItem represents a suite header display item
type SuiteHeaderItem struct {
	Name     string
	Tests    int
	Failures int
	Errors   int
	Time     float64
}

// Key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Toggle   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Expand: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "expand"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "collapse"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter/space", "toggle"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Expand, k.Collapse},
		{k.Toggle, k.Quit},
	}
}

// Model is the Bubble Tea model for browsing one report document,
// including the synthesized ones.
type Model struct {
	help       help.Model
	report     *testreport.Report
	source     string
	suiteTable btable.Model

	displayItems  []DisplayItem
	selectedIndex int
	expanded      map[string]bool

	visibleStart int
	listHeight   int
}

// New creates a viewer model for a parsed report. The source is shown in
// the title, usually the report file path.
func New(report *testreport.Report, source string) *Model {
	m := &Model{
		help:     help.New(),
		report:   report,
		source:   source,
		expanded: make(map[string]bool),
	}
	m.suiteTable = buildSuiteTable(report)
	m.buildItems()
	m.ensureValidSelection()
	return m
}

// LoadFile parses the report at path and wraps it in a viewer model.
func LoadFile(path string) (*Model, error) {
	report, err := testreport.NewParser().ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return New(report, path), nil
}

// Run loads the report at path and runs the interactive viewer.
func Run(path string) error {
	model, err := LoadFile(path)
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title, suite table and help take the rest of the screen.
		reserved := len(m.report.Suites) + 10
		m.listHeight = msg.Height - reserved
		if m.listHeight < 3 {
			m.listHeight = 3
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			m.navigateUp()

		case key.Matches(msg, keys.Down):
			m.navigateDown()

		case key.Matches(msg, keys.Expand):
			m.setExpanded(true)

		case key.Matches(msg, keys.Collapse):
			m.setExpanded(false)

		case key.Matches(msg, keys.Toggle):
			if c := m.selectedCase(); c != nil && c.Result.Failure != nil {
				k := caseKey(c.Suite, c.Result.Name)
				m.expanded[k] = !m.expanded[k]
				m.buildItems()
			}

		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the model
func (m *Model) View() string {
	if m.report == nil {
		return "No report loaded"
	}

	m.buildItems()

	totals := m.report.Totals()
	title := titleStyle.Render("Test Report: " + m.source)
	summaryLine := fmt.Sprintf("Tests: %d   Failures: %d   Errors: %d   Skipped: %d   Time: %.2fs",
		totals.Tests, totals.Failures, totals.Errors, totals.Skipped, totals.Time)

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n\n%s",
		title,
		summaryLine,
		m.suiteTable.View(),
		m.buildCaseListView(),
		helpStyle.Render(m.help.View(keys)))
}

// SelectedCase returns the currently selected test case, or nil when the
// selection is not on a case.
func (m *Model) SelectedCase() *testreport.TestResult {
	if c := m.selectedCase(); c != nil {
		return &c.Result
	}
	return nil
}

func (m *Model) selectedCase() *CaseItem {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.displayItems) {
		item := m.displayItems[m.selectedIndex]
		if item.Type == ItemTypeCase && item.Case != nil {
			return item.Case
		}
	}
	return nil
}

func (m *Model) setExpanded(expanded bool) {
	c := m.selectedCase()
	if c == nil || c.Result.Failure == nil {
		return
	}
	m.expanded[caseKey(c.Suite, c.Result.Name)] = expanded
	m.buildItems()
}

// buildItems creates the grouped display list: a header per suite, its
// cases, and a divider between suites.
func (m *Model) buildItems() {
	if m.report == nil {
		return
	}

	m.displayItems = []DisplayItem{}
	for suiteIndex, suite := range m.report.Suites {
		m.displayItems = append(m.displayItems, DisplayItem{
			Type: ItemTypeSuiteHeader,
			Suite: &SuiteHeaderItem{
				Name:     suite.Name,
				Tests:    suite.Tests,
				Failures: suite.Failures,
				Errors:   suite.Errors,
				Time:     suite.Time,
			},
		})

		for _, result := range suite.Results {
			m.displayItems = append(m.displayItems, DisplayItem{
				Type: ItemTypeCase,
				Case: &CaseItem{
					Suite:    suite.Name,
					Result:   result,
					Expanded: m.expanded[caseKey(suite.Name, result.Name)],
				},
			})
		}

		if suiteIndex < len(m.report.Suites)-1 {
			m.displayItems = append(m.displayItems, DisplayItem{Type: ItemTypeDivider})
		}
	}

	for i := range m.displayItems {
		if m.displayItems[i].Type == ItemTypeCase && i == m.selectedIndex {
			m.displayItems[i].Selected = true
		}
	}
}

// ensureValidSelection moves the selection to the first case item when it
// sits on a header or divider.
func (m *Model) ensureValidSelection() {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.displayItems) {
		if m.displayItems[m.selectedIndex].Type == ItemTypeCase {
			return
		}
	}
	for i, item := range m.displayItems {
		if item.Type == ItemTypeCase {
			m.selectedIndex = i
			m.buildItems()
			return
		}
	}
	m.selectedIndex = 0
}

func (m *Model) buildCaseListView() string {
	if m.listHeight <= 0 {
		m.listHeight = 10
	}
	start := m.visibleStart
	end := start + m.listHeight
	if end > len(m.displayItems) {
		end = len(m.displayItems)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		item := m.displayItems[i]

		switch item.Type {
		case ItemTypeSuiteHeader:
			b.WriteString(m.formatSuiteHeader(item))
			b.WriteString("\n")

		case ItemTypeCase:
			if item.Case == nil {
				continue
			}
			line := m.formatCaseLine(*item.Case)
			if item.Selected {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")

			if item.Case.Expanded && item.Case.Result.Failure != nil {
				b.WriteString(m.formatFailureDetail(item.Case.Result.Failure))
			}

		case ItemTypeDivider:
			b.WriteString(dividerStyle.Render(strings.Repeat("─", 40)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) formatSuiteHeader(item DisplayItem) string {
	if item.Suite == nil {
		return ""
	}
	suite := item.Suite
	header := suiteHeaderStyle.Render(suite.Name)
	stats := fmt.Sprintf("(%d tests, %d failures, %d errors, %.2fs)",
		suite.Tests, suite.Failures, suite.Errors, suite.Time)
	return fmt.Sprintf("%s %s", header, stats)
}

func (m *Model) formatCaseLine(item CaseItem) string {
	result := item.Result
	status := ""
	expansion := ""

	switch {
	case result.Skipped:
		status = skippedStyle.Render("[SKIP]")
	case result.Failure == nil:
		status = passedStyle.Render("[PASS]")
	case result.Failure.Errored:
		status = erroredStyle.Render("[ERR!]")
	default:
		status = failedStyle.Render("[FAIL]")
	}

	if result.Failure != nil {
		if item.Expanded {
			expansion = " [-]"
		} else {
			expansion = " [+]"
		}
	}

	return fmt.Sprintf("%s  %s%s  (%.2fs)", status, result.Name, expansion, result.Time)
}

func (m *Model) formatFailureDetail(failure *testreport.TestFailure) string {
	var b strings.Builder

	message := failure.Message
	if failure.Type != "" {
		message = fmt.Sprintf("%s: %s", failure.Type, message)
	}
	style := failedStyle
	if failure.Errored {
		style = erroredStyle
	}
	b.WriteString(style.Render("  " + firstLine(message)))
	b.WriteString("\n")

	if content := strings.TrimSpace(failure.Content); content != "" {
		b.WriteString(detailStyle.Render(content))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) navigateUp() {
	originalIndex := m.selectedIndex
	if m.selectedIndex == 0 {
		return
	}
	m.selectedIndex--

	for m.selectedIndex >= 0 {
		if m.selectedIndex < len(m.displayItems) && m.displayItems[m.selectedIndex].Type == ItemTypeCase {
			break
		}
		if m.selectedIndex == 0 {
			m.selectedIndex = originalIndex
			return
		}
		m.selectedIndex--
	}

	if m.selectedIndex < m.visibleStart {
		m.visibleStart = m.selectedIndex
	}
	m.buildItems()
}

func (m *Model) navigateDown() {
	originalIndex := m.selectedIndex
	if m.selectedIndex >= len(m.displayItems)-1 {
		return
	}
	m.selectedIndex++

	for m.selectedIndex < len(m.displayItems) {
		if m.displayItems[m.selectedIndex].Type == ItemTypeCase {
			break
		}
		if m.selectedIndex == len(m.displayItems)-1 {
			m.selectedIndex = originalIndex
			return
		}
		m.selectedIndex++
	}

	if m.listHeight > 0 && m.selectedIndex >= m.visibleStart+m.listHeight {
		m.visibleStart = m.selectedIndex - m.listHeight + 1
	}
	m.buildItems()
}

// buildSuiteTable renders the per-suite counters as a table above the
// case list.
func buildSuiteTable(report *testreport.Report) btable.Model {
	columns := []btable.Column{
		btable.NewColumn("suite", "Suite", 36),
		btable.NewColumn("tests", "Tests", 7),
		btable.NewColumn("failures", "Failures", 10),
		btable.NewColumn("errors", "Errors", 8),
		btable.NewColumn("time", "Time", 8),
	}

	var rows []btable.Row
	for _, suite := range report.Suites {
		rows = append(rows, btable.NewRow(map[string]interface{}{
			"suite":    suite.Name,
			"tests":    fmt.Sprintf("%d", suite.Tests),
			"failures": fmt.Sprintf("%d", suite.Failures),
			"errors":   fmt.Sprintf("%d", suite.Errors),
			"time":     fmt.Sprintf("%.2fs", suite.Time),
		}))
	}

	return btable.New(columns).WithRows(rows)
}

func caseKey(suite, name string) string {
	return suite + "::" + name
}

func firstLine(s string) string {
	return strings.SplitN(s, "\n", 2)[0]
}
