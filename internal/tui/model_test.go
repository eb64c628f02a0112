package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"smartpt/internal/domain"
	"smartpt/internal/service"
)

type fakeSession struct {
	asked    []service.Question
	uploaded []string
	cleared  bool
	docs     []domain.Document
	answer   *service.Answer
	err      error
}

func (f *fakeSession) Ask(ctx context.Context, q service.Question) (*service.Answer, error) {
	f.asked = append(f.asked, q)
	return f.answer, f.err
}

func (f *fakeSession) UploadFiles(ctx context.Context, paths []string) ([]service.UploadResult, error) {
	f.uploaded = append(f.uploaded, paths...)
	var res []service.UploadResult
	for _, p := range paths {
		res = append(res, service.UploadResult{Filename: p, Characters: 10})
	}
	return res, nil
}

func (f *fakeSession) LoadSample(ctx context.Context) (service.UploadResult, error) {
	return service.UploadResult{Filename: "sample_inventory.xlsx", Characters: 42}, nil
}

func (f *fakeSession) Clear(ctx context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeSession) Documents() []domain.Document { return f.docs }

func (f *fakeSession) Limits() (int, int) { return 3, 5 }

func submit(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModel_AskUsesKAndFilter(t *testing.T) {
	fake := &fakeSession{answer: &service.Answer{
		Text:    "BRK-001,Brake Pad,Pune,120,2024-07-01",
		Sources: []string{"Source 1: sample_inventory.xlsx"},
	}}
	m := New(fake, "model=mistral")
	m, _ = submit(t, m, ":k 2")
	m, _ = submit(t, m, ":filter sample_inventory.xlsx, other.pdf")
	m, _ = submit(t, m, "What is the quantity of BRK-001?")

	if len(fake.asked) != 1 {
		t.Fatalf("Ask called %d times, want 1", len(fake.asked))
	}
	q := fake.asked[0]
	if q.K != 2 || strings.Join(q.Filter, "|") != "sample_inventory.xlsx|other.pdf" {
		t.Errorf("question = %+v", q)
	}
	if !strings.Contains(m.body, "Source 1: sample_inventory.xlsx") {
		t.Errorf("body does not list the source: %q", m.body)
	}
	if m.input.Value() != "" {
		t.Error("input not cleared after submit")
	}
}

func TestModel_AskErrorShowsWarning(t *testing.T) {
	fake := &fakeSession{err: errors.New("please upload a file first")}
	m, _ := submit(t, New(fake, ""), "quantity?")
	if m.status != "Warning: please upload a file first" {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_Commands(t *testing.T) {
	fake := &fakeSession{docs: []domain.Document{domain.NewDocument("a.pdf", "delivery note", nil)}}
	m := New(fake, "")

	m, _ = submit(t, m, ":load a.xlsx b.pdf")
	if strings.Join(fake.uploaded, ",") != "a.xlsx,b.pdf" {
		t.Errorf("uploaded = %v", fake.uploaded)
	}
	m, _ = submit(t, m, ":sample")
	if !strings.Contains(m.body, "sample_inventory.xlsx loaded") {
		t.Errorf("body = %q", m.body)
	}
	m, _ = submit(t, m, ":docs")
	if !strings.Contains(m.body, "delivery note") {
		t.Errorf("docs body = %q", m.body)
	}
	m, _ = submit(t, m, ":k 9")
	if m.k != 3 {
		t.Errorf("k = %d after out-of-range :k, want 3", m.k)
	}
	m, _ = submit(t, m, ":filter a.pdf")
	m, _ = submit(t, m, ":clear")
	if !fake.cleared || m.filter != nil {
		t.Errorf("clear: cleared=%v filter=%v", fake.cleared, m.filter)
	}
	m, _ = submit(t, m, ":bogus")
	if !strings.HasPrefix(m.status, "Unknown command") {
		t.Errorf("status = %q", m.status)
	}
	_, cmd := submit(t, m, ":quit")
	if cmd == nil {
		t.Fatal(":quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error(":quit did not quit")
	}
}

func TestParseFilter(t *testing.T) {
	cases := []struct {
		in   string
		want domain.Filter
	}{
		{"all", nil},
		{"", nil},
		{"a.xlsx", domain.Filter{"a.xlsx"}},
		{" a.xlsx , b.pdf ,", domain.Filter{"a.xlsx", "b.pdf"}},
	}
	for _, tc := range cases {
		got := parseFilter(tc.in)
		if (got == nil) != (tc.want == nil) || strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Errorf("parseFilter(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestHighlightBestLine(t *testing.T) {
	text := "Part Number,Quantity\nBRK-001,120"
	if got := highlightBestLine(text, "weather"); got != text {
		t.Errorf("text changed without overlap: %q", got)
	}
	got := highlightBestLine(text, "brk 001")
	if !strings.HasPrefix(got, "Part Number,Quantity\n") || !strings.Contains(got, "BRK-001,120") {
		t.Errorf("highlight = %q", got)
	}
}
