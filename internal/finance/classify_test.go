package finance

import "testing"

func TestClassify_RuleOrdering(t *testing.T) {
	// "Publix" contains "pub"; the grocery-chain rule must win over the
	// generic restaurant rule.
	if got := Classify("PUBLIX #123", ""); got != "Groceries" {
		t.Errorf("Classify(PUBLIX #123) = %q, want Groceries", got)
	}

	// "Uber Eats" contains "uber"; the delivery rule must win over ride share.
	if got := Classify("Uber Eats order", ""); got != "Food and Drink" {
		t.Errorf("Classify(Uber Eats order) = %q, want Food and Drink", got)
	}
	if got := Classify("UBER *TRIP", ""); got != "Ride Share" {
		t.Errorf("Classify(UBER *TRIP) = %q, want Ride Share", got)
	}
}

func TestClassify_Basic(t *testing.T) {
	tests := []struct {
		description string
		merchant    string
		want        string
	}{
		{"NETFLIX.COM", "", "Subscriptions"},
		{"payment", "Spotify", "Subscriptions"},
		{"SHELL OIL 5744", "", "Gas"},
		{"GUSTO PAYROLL", "", "Income"},
		{"ZELLE TO JOHN", "", "Transfer"},
		{"AMZN Mktp US", "", "Shopping"},
		{"TRADER JOE'S #552", "", "Groceries"},
		{"CVS/PHARMACY", "", "Pharmacy"},
		{"COMCAST CABLE", "", "Internet"},
		{"STARBUCKS STORE 03623", "", "Coffee Shops"},
		{"", "Chewy.com", "Pets"},
		{"XYZZY 42", "", CategoryUncategorized},
	}

	for _, tt := range tests {
		if got := Classify(tt.description, tt.merchant); got != tt.want {
			t.Errorf("Classify(%q, %q) = %q, want %q", tt.description, tt.merchant, got, tt.want)
		}
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	if got := Classify("", ""); got != CategoryUncategorized {
		t.Errorf("Classify empty = %q, want %q", got, CategoryUncategorized)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	first := Classify("Whole Foods Market", "Whole Foods")
	for i := 0; i < 100; i++ {
		if got := Classify("Whole Foods Market", "Whole Foods"); got != first {
			t.Fatalf("Classify not deterministic: %q then %q", first, got)
		}
	}
	if first == "" {
		t.Error("Classify must always return a non-empty label")
	}
}

func TestCategoryVocabulary(t *testing.T) {
	vocab := CategoryVocabulary()
	if len(vocab) < 30 {
		t.Errorf("vocabulary has %d labels, want at least 30", len(vocab))
	}
	if vocab[len(vocab)-1] != CategoryUncategorized {
		t.Errorf("last label = %q, want %q", vocab[len(vocab)-1], CategoryUncategorized)
	}

	seen := make(map[string]bool)
	for _, label := range vocab {
		if seen[label] {
			t.Errorf("duplicate label %q in vocabulary", label)
		}
		seen[label] = true
	}
}
