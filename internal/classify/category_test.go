package classify

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"job", CategoryJob},
		{"JOB", CategoryJob},
		{"  meeting  ", CategoryMeeting},
		{"academic", CategoryAcademic},
		{"Job Recruitment", CategoryJob},
		{"invoice", CategoryUnknown},
		{"", CategoryUnknown},
		{"unknown", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseCategory(tt.input); got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCategory_Label(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{CategoryJob, "AI-Job"},
		{CategoryAcademic, "AI-Academic"},
		{CategoryPromotional, "AI-Promotional"},
		{CategoryUnknown, "AI-Unknown"},
		{Category("bogus"), "AI-Unknown"},
	}

	for _, tt := range tests {
		if got := tt.category.Label("AI-"); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories() {
		if !c.Valid() {
			t.Errorf("Categories() entry %q should be valid", c)
		}
	}

	if Category("invoice").Valid() {
		t.Error("unlisted category should not be valid")
	}
}

func TestCategories_ContainsFullSet(t *testing.T) {
	cats := Categories()
	if len(cats) != 10 {
		t.Errorf("Categories() returned %d entries, want 10", len(cats))
	}

	seen := make(map[Category]bool)
	for _, c := range cats {
		if seen[c] {
			t.Errorf("Categories() contains duplicate %q", c)
		}
		seen[c] = true
	}
	if !seen[CategoryUnknown] {
		t.Error("Categories() should include the unknown category")
	}
}
