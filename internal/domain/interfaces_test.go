package domain

import "testing"

func TestFilterAllows(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		file   string
		want   bool
	}{
		{"member", Filter{"a.xlsx", "b.pdf"}, "b.pdf", true},
		{"non member", Filter{"a.xlsx"}, "b.pdf", false},
		{"empty filter", Filter{}, "a.xlsx", false},
		{"case sensitive", Filter{"A.xlsx"}, "a.xlsx", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Allows(tc.file); got != tc.want {
				t.Errorf("Allows(%q) = %v, want %v", tc.file, got, tc.want)
			}
		})
	}
}

func TestMatchFilename(t *testing.T) {
	if got := (Match{Metadata: map[string]string{MetaFilename: "a.pdf"}}).Filename(); got != "a.pdf" {
		t.Errorf("Filename = %q, want a.pdf", got)
	}
	if got := (Match{}).Filename(); got != "Unknown" {
		t.Errorf("Filename without metadata = %q, want Unknown", got)
	}
}

func TestDocumentPreview(t *testing.T) {
	d := NewDocument("a.pdf", "héllo wörld", nil)
	if d.Metadata[MetaFilename] != "a.pdf" {
		t.Errorf("metadata = %v", d.Metadata)
	}
	if got := d.Preview(5); got != "héllo..." {
		t.Errorf("Preview(5) = %q", got)
	}
	if got := d.Preview(50); got != "héllo wörld" {
		t.Errorf("Preview(50) = %q", got)
	}
}
