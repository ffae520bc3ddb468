package topo

import "testing"

func index(order []string, n string) int {
	for i, v := range order {
		if v == n {
			return i
		}
	}
	return -1
}

func TestSortOrdersDependenciesFirst(t *testing.T) {
	deps := map[string][]string{
		"birth":      {"population"},
		"death":      {"population"},
		"population": nil,
	}
	order, err := Sort([]string{"birth", "death", "population"}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index(order, "population") >= index(order, "birth") {
		t.Errorf("population must precede birth: %v", order)
	}
	if index(order, "population") >= index(order, "death") {
		t.Errorf("population must precede death: %v", order)
	}
}

func TestSortDeterministicTieBreak(t *testing.T) {
	deps := map[string][]string{"a": nil, "b": nil, "c": nil}
	order1, _ := Sort([]string{"c", "a", "b"}, deps)
	order2, _ := Sort([]string{"b", "c", "a"}, deps)
	if order1[0] != order2[0] || order1[1] != order2[1] || order1[2] != order2[2] {
		t.Errorf("expected deterministic order regardless of input order: %v vs %v", order1, order2)
	}
	if order1[0] != "a" || order1[1] != "b" || order1[2] != "c" {
		t.Errorf("expected lexicographic tie-break, got %v", order1)
	}
}

func TestSortDetectsCycle(t *testing.T) {
	deps := map[string][]string{"a": {"b"}, "b": {"a"}}
	_, err := Sort([]string{"a", "b"}, deps)
	var ce *CycleError
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	if ce, _ = err.(*CycleError); ce == nil {
		t.Fatalf("expected *CycleError, got %T", err)
	}
}
