package orchestrator

import (
	"testing"

	"github.com/mattdomit/dotted-sub000/internal/ai"
	"github.com/mattdomit/dotted-sub000/internal/models"
)

func TestParsePhase(t *testing.T) {
	got, err := ParsePhase(" voting ")
	if err != nil || got != models.PhaseVoting {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if _, err := ParsePhase("brunch"); err == nil {
		t.Fatalf("expected error for unknown phase")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.PhaseSuggesting, models.PhaseVoting, true},
		{models.PhaseSuggesting, models.PhaseBidding, false},
		{models.PhaseOrdering, models.PhaseCompleted, true},
		{models.PhaseSourcing, models.PhaseCancelled, true},
		{models.PhaseCompleted, models.PhaseCancelled, false},
		{models.PhaseCancelled, models.PhaseVoting, false},
		{models.PhaseBidding, models.PhaseVoting, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s->%s got=%v want=%v", tc.from, tc.to, got, tc.want)
		}
	}
	for _, p := range phases {
		if IsTerminal(p) != (len(NextPhases(p)) == 0) {
			t.Fatalf("phase %s: terminal and next phases disagree", p)
		}
	}
}

func TestZoneEquipment(t *testing.T) {
	got := ZoneEquipment([]models.Restaurant{
		{Equipment: []string{"Wok", "oven"}},
		{Equipment: []string{" OVEN ", "grill", ""}},
	})
	want := []string{"grill", "oven", "wok"}
	if len(got) != len(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got=%v want=%v", got, want)
		}
	}
}

func TestFilterSuggestions(t *testing.T) {
	ceiling := qty("15")
	zone := &models.Zone{MaxPricePerPlate: &ceiling}
	got := FilterSuggestions(menu(), zone, []string{"oven", "wok"})
	if len(got) != 2 || got[0].Name != "Pad Thai" || got[1].Name != "Margherita" {
		t.Fatalf("got=%v", names(got))
	}

	got = FilterSuggestions(menu(), &models.Zone{}, []string{"oven", "wok", "tandoor"})
	if len(got) != 4 {
		t.Fatalf("no ceiling should keep all, got=%v", names(got))
	}
}

func names(in []ai.DishSuggestion) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, s.Name)
	}
	return out
}
