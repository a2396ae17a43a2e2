package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"schooldir/cmd"
	"schooldir/internal/report"
	"schooldir/internal/school"
	"schooldir/internal/store"
)

type view int

const (
	searchView view = iota
	detailView
	savePromptView
	reportView
)

type model struct {
	store         *store.Store
	currentView   view
	searchInput   textinput.Model
	saveInput     textinput.Model
	viewport      viewport.Model
	levelFilter   string
	schools       []store.School
	list          list.Model
	selectedItem  *store.School
	run           *report.Run
	width         int
	height        int
	err           error
	loading       bool
	saveSuccess   string
	viewportReady bool
}

// levelFilters is the Ctrl+S cycle; "" means every level
var levelFilters = []string{
	"",
	string(school.Kindergarten),
	string(school.Primary),
	string(school.Secondary),
	string(school.Tertiary),
}

type schoolItem struct {
	school store.School
}

func (i schoolItem) Title() string {
	return i.school.DisplayName()
}

func (i schoolItem) Description() string {
	return fmt.Sprintf("%s | %s / %s | %s | #%d",
		i.school.DistrictString(),
		i.school.LevelString(),
		i.school.FundingString(),
		i.school.SourceString(),
		i.school.ID,
	)
}

func (i schoolItem) FilterValue() string {
	return i.school.Name + " " + i.school.NameCN.String + " " + i.school.District.String
}

type searchMsg struct {
	schools []store.School
	err     error
}

type runMsg struct {
	run *report.Run
	err error
}

type saveMsg struct {
	filename string
	err      error
}

func searchSchools(st *store.Store, query, level string) tea.Cmd {
	return func() tea.Msg {
		schools, err := st.SearchSchools(context.Background(), query, store.Filter{Level: level}, maxResults)
		return searchMsg{schools: schools, err: err}
	}
}

func loadLatestRun(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		rec, err := st.LatestRun(context.Background())
		if err != nil {
			return runMsg{err: err}
		}
		run, err := report.Decode([]byte(rec.Report))
		return runMsg{run: run, err: err}
	}
}

func saveSchoolData(s *store.School, filename string) tea.Cmd {
	return func() tea.Msg {
		jsonData, err := json.MarshalIndent(map[string]interface{}{
			"school": convertSchoolToCmd(*s),
		}, "", "  ")
		if err != nil {
			return saveMsg{err: fmt.Errorf("failed to marshal data: %w", err)}
		}

		if err := os.WriteFile(filename, jsonData, 0644); err != nil {
			return saveMsg{err: fmt.Errorf("failed to write file: %w", err)}
		}

		return saveMsg{filename: filename}
	}
}

func initialModel(st *store.Store) model {
	ti := textinput.New()
	ti.Placeholder = "Search schools by name, 中文名稱, district, or address..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 60

	si := textinput.New()
	si.Placeholder = "Enter filename (e.g., school_data.json)"
	si.CharLimit = 200
	si.Width = 60

	delegate := list.NewDefaultDelegate()
	delegate.SetHeight(2)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "School Directory"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.Styles.Title = lipgloss.NewStyle().
		Background(lipgloss.Color("62")).
		Foreground(lipgloss.Color("230")).
		Padding(0, 1)

	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	return model{
		store:       st,
		currentView: searchView,
		searchInput: ti,
		saveInput:   si,
		viewport:    vp,
		list:        l,
		schools:     []store.School{},
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-10)

		// Reserve 6 lines: 1 for newline, 1 for scroll indicator, up to 3 for status messages, 1 for help text
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 6
		m.viewportReady = true

		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch m.currentView {
		case detailView:
			return m.handleDetailViewKeys(msg)
		case savePromptView:
			return m.handleSavePromptKeys(msg)
		case reportView:
			return m.handleReportViewKeys(msg)
		}
		return m.handleSearchViewKeys(msg)

	case tea.MouseMsg:
		if m.currentView == detailView || m.currentView == reportView {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case searchMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			if logger != nil {
				logger.Error("School search failed", "error", msg.err, "query", m.searchInput.Value(), "level_filter", m.levelFilter)
			}
			return m, nil
		}

		m.err = nil
		m.schools = msg.schools
		items := make([]list.Item, len(msg.schools))
		for i, s := range msg.schools {
			items[i] = schoolItem{school: s}
		}
		m.list.SetItems(items)
		if logger != nil {
			logger.Info("Search completed", "results_count", len(msg.schools), "query", m.searchInput.Value())
		}
		return m, nil

	case runMsg:
		m.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, store.ErrNotFound) {
				m.err = fmt.Errorf("no ingestion runs yet, run `schooldir ingest` first")
			} else {
				m.err = fmt.Errorf("loading report failed: %w", msg.err)
				if logger != nil {
					logger.Error("Failed to load latest run", "error", msg.err)
				}
			}
			return m, nil
		}
		m.err = nil
		m.run = msg.run
		m.currentView = reportView
		m.viewport.GotoTop()
		m.refreshViewport()
		return m, nil

	case saveMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("save failed: %w", msg.err)
			m.currentView = detailView
			if logger != nil && m.selectedItem != nil {
				logger.Error("Failed to save school data", "error", msg.err, "school_id", m.selectedItem.ID, "filename", m.saveInput.Value())
			}
			return m, nil
		}
		m.saveSuccess = fmt.Sprintf("Saved to: %s", msg.filename)
		m.saveInput.SetValue("")
		m.currentView = detailView
		if logger != nil && m.selectedItem != nil {
			logger.Info("School data saved", "school_id", m.selectedItem.ID, "filename", msg.filename)
		}
		return m, nil
	}

	if m.currentView == searchView {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		cmds = append(cmds, cmd)

		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleSearchViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		if m.searchInput.Focused() {
			m.loading = true
			return m, searchSchools(m.store, m.searchInput.Value(), m.levelFilter)
		}
		if item, ok := m.list.SelectedItem().(schoolItem); ok {
			m.selectedItem = &item.school
			m.currentView = detailView
			m.viewport.GotoTop()
			m.refreshViewport()
		}
		return m, nil

	case tea.KeyTab:
		if m.searchInput.Focused() {
			m.searchInput.Blur()
		} else {
			m.searchInput.Focus()
		}
		return m, textinput.Blink

	case tea.KeyCtrlS:
		next := levelFilters[0]
		for i, l := range levelFilters {
			if l == m.levelFilter {
				next = levelFilters[(i+1)%len(levelFilters)]
				break
			}
		}
		m.levelFilter = next
		if m.searchInput.Value() != "" {
			m.loading = true
			return m, searchSchools(m.store, m.searchInput.Value(), m.levelFilter)
		}
		return m, nil

	case tea.KeyCtrlR:
		m.loading = true
		return m, loadLatestRun(m.store)
	}

	var cmd tea.Cmd
	if m.searchInput.Focused() {
		m.searchInput, cmd = m.searchInput.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m model) backToSearch() model {
	m.currentView = searchView
	m.selectedItem = nil
	m.err = nil
	m.saveSuccess = ""
	m.viewport.GotoTop()
	return m
}

func (m model) handleDetailViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		return m.backToSearch(), nil

	case tea.KeyCtrlY:
		if m.selectedItem != nil {
			_ = clipboard.WriteAll(m.selectedItem.Name)
		}
		return m, nil

	case tea.KeyCtrlW:
		if m.selectedItem != nil {
			m.currentView = savePromptView
			m.saveInput.Focus()
			m.err = nil
			m.saveSuccess = ""
			defaultName := strings.ReplaceAll(strings.ToLower(m.selectedItem.Name), " ", "_") + ".json"
			m.saveInput.SetValue(defaultName)
			return m, textinput.Blink
		}
		return m, nil

	// Scrolling keys
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown, tea.KeyHome, tea.KeyEnd:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) handleReportViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m = m.backToSearch()
		m.run = nil
		return m, nil

	case tea.KeyCtrlY:
		if m.run != nil {
			_ = clipboard.WriteAll(m.run.ID)
		}
		return m, nil

	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown, tea.KeyHome, tea.KeyEnd:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) handleSavePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.currentView = detailView
		m.saveInput.SetValue("")
		return m, nil

	case tea.KeyEnter:
		filename := m.saveInput.Value()
		if filename == "" {
			m.err = fmt.Errorf("filename cannot be empty")
			return m, nil
		}
		return m, saveSchoolData(m.selectedItem, filename)
	}

	var cmd tea.Cmd
	m.saveInput, cmd = m.saveInput.Update(msg)
	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case detailView, reportView:
		return m.viewportRender()
	case savePromptView:
		return m.savePromptView()
	}
	return m.searchViewRender()
}

func (m model) searchViewRender() string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		MarginBottom(1)

	b.WriteString(headerStyle.Render("🏫 School Directory"))
	b.WriteString("\n\n")

	inputStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)

	b.WriteString(inputStyle.Render(m.searchInput.View()))
	b.WriteString("\n")

	levelText := "All Levels"
	if m.levelFilter != "" {
		levelText = m.levelFilter
	}
	b.WriteString(fmt.Sprintf("Level Filter: %s (Ctrl+S to cycle)", levelText))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString("Loading...\n")
	}

	if m.err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v\n", m.err)))
	}

	if len(m.schools) > 0 {
		districts := make(map[string]bool)
		counts := make(map[string]int)
		for _, s := range m.schools {
			districts[s.District.String] = true
			counts[s.LevelString()]++
		}

		statsStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginBottom(1)

		stats := fmt.Sprintf("Results: %d schools | Districts: %d | Primary: %d | Secondary: %d",
			len(m.schools), len(districts), counts[string(school.Primary)], counts[string(school.Secondary)])
		b.WriteString(statsStyle.Render(stats))
		b.WriteString("\n")

		b.WriteString(m.list.View())
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)

	help := "\nTab: Switch focus | Enter: Search/Select | Ctrl+S: Filter by level | Ctrl+R: Last ingest report | Esc/Ctrl+C: Quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m model) detailViewContent() string {
	if m.selectedItem == nil {
		return "No school selected"
	}

	s := m.selectedItem
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		MarginBottom(1)

	labelStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("33")).
		Width(20)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("230"))

	sectionStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		MarginBottom(1)

	row := func(sb *strings.Builder, label, value string) {
		sb.WriteString(labelStyle.Render(label) + " " + valueStyle.Render(value) + "\n")
	}

	b.WriteString(titleStyle.Render("🏫 School Details"))
	b.WriteString("\n\n")

	var basicInfo strings.Builder
	row(&basicInfo, "School Name:", s.Name)
	if s.NameCN.Valid && s.NameCN.String != "" {
		row(&basicInfo, "Chinese Name:", s.NameCN.String)
	}
	row(&basicInfo, "ID:", fmt.Sprintf("%d", s.ID))
	row(&basicInfo, "School Code:", orNA(s.SchoolCode.String))
	row(&basicInfo, "Level:", s.LevelString())
	row(&basicInfo, "Finance Type:", s.FundingString())
	row(&basicInfo, "Gender:", s.GenderString())
	b.WriteString(sectionStyle.Render(basicInfo.String()))
	b.WriteString("\n")

	var locationInfo strings.Builder
	row(&locationInfo, "Address:", s.FullAddress())
	row(&locationInfo, "District:", s.DistrictString())
	row(&locationInfo, "City:", orNA(s.City.String))
	row(&locationInfo, "Region:", fmt.Sprintf("%s, %s", orNA(s.Region.String), orNA(s.Country.String)))
	b.WriteString(sectionStyle.Render(locationInfo.String()))
	b.WriteString("\n")

	var contactInfo strings.Builder
	row(&contactInfo, "Phone:", s.PhoneString())
	row(&contactInfo, "Fax:", s.FaxString())
	row(&contactInfo, "Website:", s.WebsiteString())
	row(&contactInfo, "Principal:", orNA(s.Principal.String))
	row(&contactInfo, "Supervisor:", orNA(s.Supervisor.String))
	b.WriteString(sectionStyle.Render(contactInfo.String()))
	b.WriteString("\n")

	var provenance strings.Builder
	row(&provenance, "Source:", s.SourceString())
	row(&provenance, "Trust:", s.Trust().String())
	row(&provenance, "Created:", s.CreatedAt.Format("2006-01-02 15:04"))
	row(&provenance, "Updated:", s.UpdatedAt.Format("2006-01-02 15:04"))
	b.WriteString(sectionStyle.Render(provenance.String()))
	b.WriteString("\n")

	return b.String()
}

func (m model) reportViewContent() string {
	if m.run == nil {
		return "No report loaded"
	}

	var b strings.Builder
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62"))

	b.WriteString(titleStyle.Render("📊 Last Ingest Run"))
	b.WriteString("\n\n")

	tot := m.run.Totals()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		InfoBox("Parsed", fmt.Sprintf("%d", tot.Parsed), lipgloss.Color("33")),
		InfoBox("Inserted", fmt.Sprintf("%d", tot.Inserted), lipgloss.Color("82")),
		InfoBox("Updated", fmt.Sprintf("%d", tot.Updated), lipgloss.Color("226")),
		InfoBox("Rejected", fmt.Sprintf("%d", tot.Rejected+tot.Unparseable), lipgloss.Color("196")),
	))
	b.WriteString("\n\n")
	b.WriteString(StatusBar(m.run.StatusCounts(), 30))
	b.WriteString("\n\n")
	b.WriteString(BucketChart(m.run.Buckets, 30))
	b.WriteString("\n")

	content := report.Markdown(m.run)
	if rendered, err := renderMarkdown(content, m.width); err == nil {
		content = rendered
	}
	b.WriteString(content)

	return b.String()
}

// refreshViewport reloads the viewport for the current view
func (m *model) refreshViewport() {
	if !m.viewportReady {
		return
	}
	switch m.currentView {
	case detailView:
		if m.selectedItem != nil {
			m.viewport.SetContent(m.detailViewContent())
		}
	case reportView:
		if m.run != nil {
			m.viewport.SetContent(m.reportViewContent())
		}
	}
}

func (m model) viewportRender() string {
	if !m.viewportReady {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.viewport.TotalLineCount() > m.viewport.Height {
		scrollPercent := int(m.viewport.ScrollPercent() * 100)
		scrollInfo := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render(fmt.Sprintf("─── %d%% ───", scrollPercent))
		b.WriteString(scrollInfo)
		b.WriteString("\n")
	}

	if m.saveSuccess != "" {
		successStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)
		b.WriteString(successStyle.Render("✓ " + m.saveSuccess))
		b.WriteString("\n")
	}

	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
		b.WriteString(errorStyle.Render(fmt.Sprintf("❌ Error: %v", m.err)))
		b.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	help := "↑/↓/PgUp/PgDn: Scroll | Ctrl+W: Save | Ctrl+Y: Copy name | Esc: Back"
	if m.currentView == reportView {
		help = "↑/↓/PgUp/PgDn: Scroll | Ctrl+Y: Copy run ID | Esc: Back"
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m model) savePromptView() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		MarginBottom(1)

	b.WriteString(titleStyle.Render("💾 Save School Data"))
	b.WriteString("\n\n")

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	if m.selectedItem != nil {
		b.WriteString(infoStyle.Render(fmt.Sprintf("Saving data for: %s", m.selectedItem.Name)))
		b.WriteString("\n\n")
	}

	inputStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)

	b.WriteString("Filename: ")
	b.WriteString(inputStyle.Render(m.saveInput.View()))
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("The file will contain the stored school row.\n\nFormat: JSON"))
	b.WriteString("\n\n")

	if m.err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v\n", m.err)))
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)

	b.WriteString(helpStyle.Render("Enter: Save | Esc: Cancel | Ctrl+C: Quit"))

	return b.String()
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// launchTUI starts the interactive TUI application
func launchTUI(opts cmd.DBOptions) {
	if err := setupLogger(opts.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
	}

	st, err := openStore(opts)
	if err != nil {
		if logger != nil {
			logger.Error("Failed to initialize database", "error", err, "data_dir", opts.DataDir)
		}
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	p := tea.NewProgram(
		initialModel(st),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
