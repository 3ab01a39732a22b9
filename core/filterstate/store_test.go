package filterstate

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/artpar/erpkit/adapters/clock"
)

func TestStore_ModuleIsolation(t *testing.T) {
	s := NewStore()
	s.SetFilter("emp", "status", "active")
	s.SetFilter("other", "status", "inactive")

	got, ok := s.Filter("emp", "status")
	if !ok || got != "active" {
		t.Errorf("Filter(emp, status) = %v,%v want active", got, ok)
	}

	s.SetSearchQuery("emp", "nguyen")
	if q := s.SearchQuery("other"); q != "" {
		t.Errorf("SearchQuery(other) = %q, want empty", q)
	}

	s.SetSortPreference("other", SortPreference{Column: "ten", Direction: Desc})
	if p := s.SortPreference("emp"); p != nil {
		t.Errorf("SortPreference(emp) = %+v, want nil", p)
	}
}

func TestStore_Filters(t *testing.T) {
	s := NewStore()

	if _, ok := s.Filter("emp", "x"); ok {
		t.Error("unset module should have no filter")
	}

	s.SetFilter("emp", "status", []string{"a", "b"})
	s.SetFilter("emp", "ten", "An")
	s.SetFilter("emp", "ten", nil)

	got := s.Filters("emp")
	if len(got) != 1 {
		t.Fatalf("Filters() = %v, want one entry", got)
	}

	got["injected"] = 1
	if _, ok := s.Filter("emp", "injected"); ok {
		t.Error("Filters() must return a copy")
	}

	s.ReplaceFilters("emp", map[string]any{"a": 1, "b": nil})
	if !reflect.DeepEqual(s.Filters("emp"), map[string]any{"a": 1}) {
		t.Errorf("ReplaceFilters() left %v", s.Filters("emp"))
	}

	s.ClearFilters("emp")
	if len(s.Filters("emp")) != 0 {
		t.Error("ClearFilters() left filters behind")
	}
}

func TestStore_Sort(t *testing.T) {
	s := NewStore()
	s.SetSortPreference("emp", SortPreference{Column: "ngay_sinh", Direction: Asc})

	p := s.SortPreference("emp")
	if p == nil || p.Column != "ngay_sinh" || p.Direction != Asc {
		t.Fatalf("SortPreference() = %+v", p)
	}
	p.Column = "mutated"
	if s.SortPreference("emp").Column != "ngay_sinh" {
		t.Error("SortPreference() must return a copy")
	}

	s.ClearSortPreference("emp")
	if s.SortPreference("emp") != nil {
		t.Error("ClearSortPreference() did not clear")
	}
}

func TestStore_SnapshotAndClearAll(t *testing.T) {
	s := NewStore()
	s.SetFilter("emp", "status", "active")
	s.SetSearchQuery("emp", "an")
	s.SetSortPreference("emp", SortPreference{Column: "ten", Direction: Desc})
	s.AddRecentSearch("emp", "an")

	snap := s.Snapshot("emp")
	if snap.SearchQuery != "an" || snap.Sort.Direction != Desc || snap.Filters["status"] != "active" {
		t.Errorf("Snapshot() = %+v", snap)
	}

	s.ClearAll("emp")
	snap = s.Snapshot("emp")
	if snap.SearchQuery != "" || snap.Sort != nil || len(snap.Filters) != 0 {
		t.Errorf("after ClearAll, Snapshot() = %+v", snap)
	}
	if len(s.RecentSearches("emp", 0)) != 0 {
		t.Error("ClearAll() should drop recent searches")
	}
}

func TestStore_RecentSearches(t *testing.T) {
	s := NewStore()

	for i := 0; i < 12; i++ {
		s.AddRecentSearch("emp", fmt.Sprintf("q%d", i))
	}
	s.AddRecentSearch("emp", "  q5  ")
	s.AddRecentSearch("emp", "   ")

	all := s.RecentSearches("emp", 100)
	if len(all) != 10 {
		t.Fatalf("kept %d searches, want 10", len(all))
	}
	if all[0] != "q5" {
		t.Errorf("newest = %q, want q5", all[0])
	}
	if all[1] != "q11" {
		t.Errorf("second = %q, want q11", all[1])
	}

	count := 0
	for _, q := range all {
		if q == "q5" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("q5 appears %d times", count)
	}

	if got := s.RecentSearches("emp", 0); len(got) != 5 {
		t.Errorf("default limit returned %d", len(got))
	}

	s.ClearRecentSearches("emp")
	if got := s.RecentSearches("emp", 3); len(got) != 0 {
		t.Errorf("after clear got %v", got)
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mod := fmt.Sprintf("m%d", i%4)
			s.SetFilter(mod, "c", i)
			s.SetSearchQuery(mod, "x")
			s.AddRecentSearch(mod, fmt.Sprint(i))
			_ = s.Snapshot(mod)
		}(i)
	}
	wg.Wait()
}

func TestParseDirection(t *testing.T) {
	if ParseDirection("DESC") != Desc || ParseDirection("asc") != Asc || ParseDirection("") != Asc {
		t.Error("ParseDirection() mismatch")
	}
}

func TestSessions(t *testing.T) {
	c := clock.NewFake(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))
	sessions := NewSessions(c, 30*time.Minute)

	a := sessions.Get("a")
	a.SetSearchQuery("emp", "an")
	if sessions.Get("a").SearchQuery("emp") != "an" {
		t.Error("Get() should return the same store for a session")
	}

	c.Advance(20 * time.Minute)
	sessions.Get("b")
	c.Advance(15 * time.Minute)

	if n := sessions.Sweep(); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if sessions.Len() != 1 {
		t.Errorf("Len() = %d, want 1", sessions.Len())
	}
	if sessions.Get("a").SearchQuery("emp") != "" {
		t.Error("expired session should start fresh")
	}
}

func TestSessions_SetTTL(t *testing.T) {
	c := clock.NewFake(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))
	sessions := NewSessions(c, 0)

	sessions.Get("a")
	c.Advance(time.Hour)
	if n := sessions.Sweep(); n != 0 {
		t.Errorf("Sweep() with zero TTL removed %d, want 0", n)
	}

	sessions.SetTTL(30 * time.Minute)
	if sessions.TTL() != 30*time.Minute {
		t.Errorf("TTL() = %v, want 30m", sessions.TTL())
	}
	if n := sessions.Sweep(); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
}
