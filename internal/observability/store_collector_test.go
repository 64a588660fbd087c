package observability

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeStatsSource struct {
	snap *StatsSnapshot
	err  error
}

func (f *fakeStatsSource) MetricsSnapshot(ctx context.Context) (*StatsSnapshot, error) {
	return f.snap, f.err
}

func TestStoreCollector(t *testing.T) {
	source := &fakeStatsSource{snap: &StatsSnapshot{
		VulnerabilitiesByTLP: map[string]int{"GREEN": 12, "AMBER": 4, "RED": 1},
		Duplicates:           3,
		TasksByStatus:        map[string]int{"pending": 2, "closed": 7},
		Users:                5,
		Companies:            2,
		Vendors:              9,
	}}

	collector := NewStoreCollector(source, NewLogger("error"))
	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(collector); err != nil {
		t.Fatalf("registering collector: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}

	found := make(map[string]int)
	for _, fam := range families {
		found[fam.GetName()] = len(fam.GetMetric())
	}

	if found["vulnradar_vulnerabilities"] != 3 {
		t.Errorf("vulnerability gauge series = %d, want 3", found["vulnradar_vulnerabilities"])
	}
	if found["vulnradar_tasks"] != 2 {
		t.Errorf("task gauge series = %d, want 2", found["vulnradar_tasks"])
	}
	for _, name := range []string{"vulnradar_duplicate_vulnerabilities", "vulnradar_users", "vulnradar_companies", "vulnradar_vendors"} {
		if found[name] != 1 {
			t.Errorf("%s series = %d, want 1", name, found[name])
		}
	}
}

func TestStoreCollectorError(t *testing.T) {
	source := &fakeStatsSource{err: fmt.Errorf("database is locked")}
	collector := NewStoreCollector(source, NewLogger("error"))
	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(collector); err != nil {
		t.Fatalf("registering collector: %v", err)
	}

	// A failing snapshot yields no series but must not panic the scrape.
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("expected no families on snapshot failure, got %d", len(families))
	}
}
