package authz

import (
	"testing"
	"time"
)

func TestScopeFor(t *testing.T) {
	admin := ScopeFor(AuthContext{UserID: "u1", Role: RoleAdmin})
	if !admin.Unrestricted || len(admin.Clauses) != 0 {
		t.Fatalf("admin scope should be unrestricted, got %+v", admin)
	}

	contrib := ScopeFor(AuthContext{UserID: "u1", Role: RoleContributor})
	if contrib.Unrestricted || len(contrib.Clauses) != 2 {
		t.Fatalf("contributor scope should have two clauses, got %+v", contrib)
	}
	if contrib.Clauses[0].Field != "created_by" || contrib.Clauses[1].Field != "assigned_to" {
		t.Fatalf("unexpected contributor clauses: %+v", contrib.Clauses)
	}
	for _, c := range contrib.Clauses {
		if c.Value != "u1" {
			t.Fatalf("clause value should be the user id, got %q", c.Value)
		}
	}

	viewer := ScopeFor(AuthContext{UserID: "u1", Role: RoleViewer})
	if viewer.Unrestricted || len(viewer.Clauses) != 1 || viewer.Clauses[0].Field != "assigned_to" {
		t.Fatalf("viewer scope should be assigned_to only, got %+v", viewer)
	}
}

func row(id string, updated time.Time) map[string]any {
	return map[string]any{"id": id, "updated_at": updated}
}

func TestMergeScoped_DeduplicatesAndOrders(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// "b" satisfies both predicates and must appear once.
	owned := []map[string]any{
		row("b", base.Add(2*time.Hour)),
		row("a", base.Add(1*time.Hour)),
	}
	assigned := []map[string]any{
		row("b", base.Add(2*time.Hour)),
		row("c", base.Add(3*time.Hour)),
	}

	merged := MergeScoped(owned, assigned)
	if len(merged) != 3 {
		t.Fatalf("expected 3 unique rows, got %d", len(merged))
	}

	// Most recently updated first: c (3h), b (2h), a (1h).
	wantOrder := []string{"c", "b", "a"}
	for i, want := range wantOrder {
		if got, _ := merged[i]["id"].(string); got != want {
			t.Fatalf("position %d: got %q, want %q", i, got, want)
		}
	}
}

func TestMergeScoped_TiesBrokenByIDAscending(t *testing.T) {
	same := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	merged := MergeScoped(
		[]map[string]any{row("z", same), row("m", same)},
		[]map[string]any{row("a", same)},
	)

	wantOrder := []string{"a", "m", "z"}
	for i, want := range wantOrder {
		if got, _ := merged[i]["id"].(string); got != want {
			t.Fatalf("position %d: got %q, want %q", i, got, want)
		}
	}
}

func TestMergeScoped_Empty(t *testing.T) {
	if merged := MergeScoped(nil, nil); len(merged) != 0 {
		t.Fatalf("expected empty merge, got %d rows", len(merged))
	}
}
