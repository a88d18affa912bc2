package privacy

import "testing"

func TestStripPrivateTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no private tags", "hello world", "hello world"},
		{"single private tag", "public <private>secret</private> visible", "public  visible"},
		{"multiple private tags", "a <private>x</private> b <private>y</private> c", "a  b  c"},
		{"multiline private content", "before <private>\nsecret line 1\nsecret line 2\n</private> after", "before  after"},
		{"nested-looking tags (greedy test)", "<private>outer <private>inner</private> still</private> visible", "still</private> visible"},
		{"empty private tags", "hello <private></private> world", "hello  world"},
		{"private tag at start", "<private>secret</private> visible", "visible"},
		{"private tag at end", "visible <private>secret</private>", "visible"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripPrivateTags(tt.input)
			if got != tt.expected {
				t.Errorf("StripPrivateTags(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestHasOnlyPrivateContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"entirely private", "<private>all secret</private>", true},
		{"entirely private with whitespace", "  <private>all secret</private>  ", true},
		{"multiple private blocks only", "<private>a</private> <private>b</private>", true},
		{"has public content", "public <private>secret</private>", false},
		{"empty string", "", true},
		{"whitespace only", "   ", true},
		{"no private tags at all", "completely public", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasOnlyPrivateContent(tt.input)
			if got != tt.expected {
				t.Errorf("HasOnlyPrivateContent(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
