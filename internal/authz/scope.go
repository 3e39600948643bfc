package authz

import (
	"sort"
	"time"
)

// ScopeClause restricts a listing to rows where Field equals the
// requester's user id. Clauses in a Scope are OR-combined.
type ScopeClause struct {
	Field string
	Value string
}

// Scope is the visibility predicate a listing query must apply for a role.
// It is a description for the persistence layer to push into the query, not
// a post-filter over a full scan.
type Scope struct {
	Unrestricted bool
	Clauses      []ScopeClause
}

// ScopeFor computes the listing scope for the requester:
//
//	admin        → unrestricted
//	contributor  → created_by = user OR assigned_to = user
//	viewer       → assigned_to = user
func ScopeFor(actx AuthContext) Scope {
	switch actx.Role {
	case RoleAdmin:
		return Scope{Unrestricted: true}
	case RoleContributor:
		return Scope{Clauses: []ScopeClause{
			{Field: "created_by", Value: actx.UserID},
			{Field: "assigned_to", Value: actx.UserID},
		}}
	default:
		return Scope{Clauses: []ScopeClause{
			{Field: "assigned_to", Value: actx.UserID},
		}}
	}
}

// MergeScoped combines the result pages of per-clause sub-queries into one
// listing: duplicate ids are dropped (a row satisfying several clauses
// appears once) and the result is ordered most-recently-updated first, ties
// broken by id ascending so the ordering is deterministic.
//
// Rows are the store's map shape and must carry "id" and "updated_at".
func MergeScoped(pages ...[]map[string]any) []map[string]any {
	seen := make(map[string]bool)
	var merged []map[string]any
	for _, page := range pages {
		for _, row := range page {
			id, _ := row["id"].(string)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, row)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ti := rowTime(merged[i], "updated_at")
		tj := rowTime(merged[j], "updated_at")
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		idI, _ := merged[i]["id"].(string)
		idJ, _ := merged[j]["id"].(string)
		return idI < idJ
	})
	return merged
}

func rowTime(row map[string]any, field string) time.Time {
	if t, ok := row[field].(time.Time); ok {
		return t
	}
	return time.Time{}
}
