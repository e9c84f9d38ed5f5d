package postgres

import "testing"

func TestJobTableIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		company string
		want    string
	}{
		{"Acme", `"Acme"`},
		{"acme_corp", `"acme_corp"`},
		{"c137", `"c137"`},
	}

	for _, tt := range tests {
		if got := jobTableIdent(tt.company); got != tt.want {
			t.Errorf("jobTableIdent(%q) = %s, want %s", tt.company, got, tt.want)
		}
	}
}

func TestSelectedTableIdent(t *testing.T) {
	t.Parallel()

	if got := selectedTableIdent("Acme"); got != `"Acme_selected"` {
		t.Errorf("selectedTableIdent(Acme) = %s, want \"Acme_selected\"", got)
	}
}

// The allow-list rejects these before the sanitizer even runs, but the
// quoting must still neutralize anything that slips through a future
// validator change.
func TestIdentQuotingNeutralizesMetacharacters(t *testing.T) {
	t.Parallel()

	got := jobTableIdent(`acme"; DROP TABLE users; --`)
	want := `"acme""; DROP TABLE users; --"`

	if got != want {
		t.Errorf("jobTableIdent quoting = %s, want %s", got, want)
	}
}
