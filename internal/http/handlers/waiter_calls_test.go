package handlers

import "testing"

func TestGroupWaiterCallsByArea(t *testing.T) {
	calls := []waiterCallRow{
		{ID: 1, AreaName: "Patio"},
		{ID: 2, AreaName: "Main"},
		{ID: 3, AreaName: "Patio"},
		{ID: 4, AreaName: "Rooftop"},
		{ID: 5, AreaName: "Main"},
	}

	groups := groupWaiterCallsByArea(calls)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	// Areas appear in first-seen order.
	wantAreas := []string{"Patio", "Main", "Rooftop"}
	for i, area := range wantAreas {
		if groups[i].AreaName != area {
			t.Errorf("group %d = %q, want %q", i, groups[i].AreaName, area)
		}
	}

	// Call order within an area matches arrival order.
	if groups[0].Calls[0].ID != 1 || groups[0].Calls[1].ID != 3 {
		t.Errorf("Patio order wrong: %+v", groups[0].Calls)
	}
	if groups[1].Calls[0].ID != 2 || groups[1].Calls[1].ID != 5 {
		t.Errorf("Main order wrong: %+v", groups[1].Calls)
	}
}

func TestGroupWaiterCallsByAreaEmpty(t *testing.T) {
	groups := groupWaiterCallsByArea(nil)
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}
}
