package tui

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"smartpt/internal/domain"
	"smartpt/internal/registry"
	"smartpt/internal/service"
)

// SessionPort is the TUI-facing subset of the session.
type SessionPort interface {
	Ask(ctx context.Context, q service.Question) (*service.Answer, error)
	UploadFiles(ctx context.Context, paths []string) ([]service.UploadResult, error)
	LoadSample(ctx context.Context) (service.UploadResult, error)
	Clear(ctx context.Context) error
	Documents() []domain.Document
	Limits() (defaultK, maxK int)
}

const helpText = `Type a question and press Enter.

Commands:
  :load <path>...   upload spreadsheets (.xlsx, .xls) or PDFs
  :sample           load the sample inventory
  :clear            forget every loaded document
  :docs             list loaded documents
  :k <n>            number of matches to use
  :filter <a,b>     restrict answers to these files (:filter all to reset)
  :help             show this help
  :quit             exit`

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	session  SessionPort
	input    textinput.Model
	viewport viewport.Model
	summary  string
	status   string
	body     string
	question string
	k        int
	maxK     int
	filter   domain.Filter
	ready    bool
}

// New creates a new TUI model instance.
func New(session SessionPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your inventory or type :help"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	k, maxK := session.Limits()
	return Model{
		ctx:      context.Background(),
		session:  session,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready. Load a file with :load or :sample.",
		body:     helpText,
		k:        k,
		maxK:     maxK,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.body)
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.SetValue("")
			var cmd tea.Cmd
			if strings.HasPrefix(line, ":") {
				m, cmd = m.runCommand(line)
			} else {
				m = m.ask(line)
			}
			m.viewport.SetContent(m.body)
			m.viewport.GotoTop()
			return m, cmd
		}
		switch msg.Type {
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) Model {
	m.question = question
	ans, err := m.session.Ask(m.ctx, service.Question{Text: question, K: m.k, Filter: m.filter})
	if err != nil {
		m.status = "Warning: " + err.Error()
		m.body = ""
		return m
	}
	m.status = fmt.Sprintf("Answered %q", question)
	m.body = renderAnswer(ans, question)
	return m
}

func (m Model) runCommand(line string) (Model, tea.Cmd) {
	name, args := parseCommand(line)
	switch name {
	case "quit", "q", "exit":
		return m, tea.Quit
	case "help":
		m.body = helpText
		m.status = "Help"
	case "load":
		if len(args) == 0 {
			m.status = "Usage: :load <path>..."
			return m, nil
		}
		results, err := m.session.UploadFiles(m.ctx, args)
		m.body = renderUploads(results, err)
		m.status = fmt.Sprintf("Processed %d file(s)", len(args))
	case "sample":
		res, err := m.session.LoadSample(m.ctx)
		if err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		m.body = renderUploads([]service.UploadResult{res}, nil)
		m.status = "Sample inventory loaded"
	case "clear":
		m.filter = nil
		if err := m.session.Clear(m.ctx); err != nil {
			m.status = "Cleared documents; " + err.Error()
		} else {
			m.status = "Cleared all documents"
		}
		m.body = ""
	case "docs":
		m.body = renderDocuments(m.session.Documents())
		m.status = fmt.Sprintf("%d document(s) loaded", len(m.session.Documents()))
	case "k":
		n, err := strconv.Atoi(strings.Join(args, ""))
		if err != nil || n < 1 || n > m.maxK {
			m.status = fmt.Sprintf("Usage: :k <1-%d>", m.maxK)
			return m, nil
		}
		m.k = n
		m.status = fmt.Sprintf("Using %d match(es) per question", n)
	case "filter":
		m.filter = parseFilter(strings.Join(args, " "))
		m.status = "Filter: " + describeFilter(m.filter)
	default:
		m.status = fmt.Sprintf("Unknown command :%s (try :help)", name)
	}
	return m, nil
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("smartpt inventory Q&A")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		fmt.Sprintf("%s  k=%d  filter=%s", m.summary, m.k, describeFilter(m.filter)))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func parseCommand(line string) (string, []string) {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// parseFilter turns "a.xlsx, b.pdf" into a filter; "all" or "" resets it.
func parseFilter(arg string) domain.Filter {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.EqualFold(arg, "all") {
		return nil
	}
	var f domain.Filter
	for _, name := range strings.Split(arg, ",") {
		if name = strings.TrimSpace(name); name != "" {
			f = append(f, name)
		}
	}
	return f
}

func describeFilter(f domain.Filter) string {
	if f == nil {
		return "all"
	}
	return strings.Join(f, ",")
}

func renderAnswer(ans *service.Answer, question string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(highlightBestLine(ans.Text, question))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Sources"))
	for _, s := range ans.Sources {
		b.WriteString("\n" + s)
	}
	for _, w := range ans.Warnings {
		b.WriteString("\n" + warningStyle.Render("! "+w))
	}
	return b.String()
}

func renderUploads(results []service.UploadResult, err error) string {
	var lines []string
	for _, r := range results {
		switch {
		case r.Skipped:
			lines = append(lines, fmt.Sprintf("%s already loaded, skipped", r.Filename))
		default:
			lines = append(lines, fmt.Sprintf("%s loaded (%d characters)", r.Filename, r.Characters))
		}
		for _, w := range r.Warnings {
			lines = append(lines, warningStyle.Render("! "+w))
		}
	}
	if err != nil {
		for _, e := range splitJoined(err) {
			lines = append(lines, warningStyle.Render("x "+e.Error()))
		}
	}
	return strings.Join(lines, "\n")
}

func splitJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func renderDocuments(docs []domain.Document) string {
	if len(docs) == 0 {
		return "No documents loaded."
	}
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(titleStyle.Render(d.Filename))
		b.WriteString("\n")
		b.WriteString(d.Preview(registry.PreviewLength))
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	titleStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	unicodeWordRe  = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
)

// highlightBestLine emphasizes the answer line sharing the most words with the question.
func highlightBestLine(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 || len(lines) < 2 {
		return text
	}
	bestIdx := 0
	bestScore := -1
	for i, l := range lines {
		score := tokenOverlapScore(qTokens, l)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore <= 0 {
		return text
	}
	lines[bestIdx] = highlightStyle.Render(lines[bestIdx])
	return strings.Join(lines, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
