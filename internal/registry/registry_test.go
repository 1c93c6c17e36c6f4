package registry

import (
	"context"
	"reflect"
	"testing"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/enrichment"
	"enrichment-engine/internal/merge"
)

// stubEnricher is a minimal Enricher for registry tests
type stubEnricher struct {
	descriptor enrichment.Descriptor
}

func (s *stubEnricher) Descriptor() enrichment.Descriptor { return s.descriptor }
func (s *stubEnricher) Shape() merge.Shape                { return merge.Shape{} }
func (s *stubEnricher) Fetch(ctx context.Context, req *enrichment.Request) (interface{}, error) {
	return nil, nil
}
func (s *stubEnricher) Map(providerData interface{}) (map[string]interface{}, error) {
	return nil, nil
}

func register(t *testing.T, r *Registry, name, typ, tenant string, priority int) {
	t.Helper()
	d := enrichment.Descriptor{ProviderName: name, Type: typ, TenantID: tenant, Priority: priority}
	if err := r.Register(d, &stubEnricher{descriptor: d}); err != nil {
		t.Fatalf("Register(%s) error = %v", name, err)
	}
}

func resolvedNames(r *Registry, typ, tenant string) []string {
	candidates := r.Resolve(typ, tenant)
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Descriptor().ProviderName
	}
	return names
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := New()
	register(t, r, "acme", "credit-report", "", 10)

	d := enrichment.Descriptor{ProviderName: "acme", Type: "credit-report"}
	err := r.Register(d, &stubEnricher{descriptor: d})
	if !errors.IsType(err, errors.ErrTypeConflict) {
		t.Errorf("Register() duplicate error = %v, want conflict", err)
	}

	// Same provider under a different tenant is a distinct registration.
	d2 := enrichment.Descriptor{ProviderName: "acme", Type: "credit-report", TenantID: "t1"}
	if err := r.Register(d2, &stubEnricher{descriptor: d2}); err != nil {
		t.Errorf("Register() distinct tenant error = %v", err)
	}
}

func TestRegistry_Register_Invalid(t *testing.T) {
	r := New()

	err := r.Register(enrichment.Descriptor{Type: "credit-report"}, &stubEnricher{})
	if !errors.IsType(err, errors.ErrTypeConfig) {
		t.Errorf("Register() missing name error = %v, want config", err)
	}

	err = r.Register(enrichment.Descriptor{ProviderName: "acme", Type: "credit-report"}, nil)
	if !errors.IsType(err, errors.ErrTypeConfig) {
		t.Errorf("Register() nil enricher error = %v, want config", err)
	}
}

func TestRegistry_Resolve_TenantOutranksPriority(t *testing.T) {
	r := New()
	register(t, r, "global-high", "credit-report", "", 50)
	register(t, r, "tenant-low", "credit-report", "T1", 10)

	got := resolvedNames(r, "credit-report", "T1")
	want := []string{"tenant-low", "global-high"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestRegistry_Resolve_PriorityAndRegistrationOrder(t *testing.T) {
	r := New()
	register(t, r, "first", "credit-report", "", 10)
	register(t, r, "high", "credit-report", "", 90)
	register(t, r, "second", "credit-report", "", 10)

	got := resolvedNames(r, "credit-report", "")
	want := []string{"high", "first", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestRegistry_Resolve_ExcludesOtherTenants(t *testing.T) {
	r := New()
	register(t, r, "t1-only", "credit-report", "T1", 90)
	register(t, r, "global", "credit-report", "", 10)

	got := resolvedNames(r, "credit-report", "T2")
	want := []string{"global"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() for other tenant = %v, want %v", got, want)
	}

	// An empty request tenant matches only tenant-agnostic enrichers.
	got = resolvedNames(r, "credit-report", "")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() without tenant = %v, want %v", got, want)
	}
}

func TestRegistry_Resolve_Deterministic(t *testing.T) {
	r := New()
	register(t, r, "a", "credit-report", "", 10)
	register(t, r, "b", "credit-report", "T1", 10)
	register(t, r, "c", "credit-report", "", 90)

	first := resolvedNames(r, "credit-report", "T1")
	for i := 0; i < 20; i++ {
		if got := resolvedNames(r, "credit-report", "T1"); !reflect.DeepEqual(got, first) {
			t.Fatalf("Resolve() not deterministic: %v vs %v", got, first)
		}
	}
}

func TestRegistry_Resolve_UnknownType(t *testing.T) {
	r := New()
	register(t, r, "acme", "credit-report", "", 10)

	if got := r.Resolve("company-profile", ""); len(got) != 0 {
		t.Errorf("Resolve() unknown type = %v, want empty", got)
	}
}

func TestRegistry_Discover(t *testing.T) {
	r := New()
	register(t, r, "acme", "credit-report", "", 10)
	register(t, r, "tenant", "credit-report", "T1", 5)
	register(t, r, "profiler", "company-profile", "", 20)

	all := r.Discover("", "")
	if len(all) != 3 {
		t.Fatalf("Discover() all = %d descriptors, want 3", len(all))
	}

	byType := r.Discover("credit-report", "")
	if len(byType) != 2 {
		t.Errorf("Discover() by type = %d descriptors, want 2", len(byType))
	}

	byTenant := r.Discover("credit-report", "T2")
	if len(byTenant) != 1 || byTenant[0].ProviderName != "acme" {
		t.Errorf("Discover() by tenant = %v, want acme only", byTenant)
	}

	forT1 := r.Discover("credit-report", "T1")
	if len(forT1) != 2 || forT1[0].ProviderName != "tenant" {
		t.Errorf("Discover() for T1 = %v, want tenant first", forT1)
	}
}

func TestRegistry_CountAndTypes(t *testing.T) {
	r := New()
	register(t, r, "acme", "credit-report", "", 10)
	register(t, r, "profiler", "company-profile", "", 10)

	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	if got := r.Types(); !reflect.DeepEqual(got, []string{"company-profile", "credit-report"}) {
		t.Errorf("Types() = %v", got)
	}
}
