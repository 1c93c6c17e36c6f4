package enrichment

import (
	"testing"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/merge"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantErr bool
	}{
		{"nil request", nil, true},
		{"empty type", &Request{}, true},
		{"valid minimal", &Request{Type: "credit-report"}, false},
		{"valid with strategy", &Request{Type: "credit-report", Strategy: merge.StrategyMerge}, false},
		{"bad strategy", &Request{Type: "credit-report", Strategy: "UPSERT"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsType(err, errors.ErrTypeValidation) {
				t.Errorf("Validate() error type = %v, want validation", errors.GetType(err))
			}
		})
	}
}

func TestRequest_Normalize(t *testing.T) {
	req := &Request{Type: "credit-report"}
	req.Normalize()

	if req.RequestID == "" {
		t.Error("Normalize() should assign a request ID")
	}
	if req.Strategy != merge.StrategyEnhance {
		t.Errorf("Normalize() strategy = %v, want ENHANCE default", req.Strategy)
	}

	fixed := &Request{Type: "credit-report", RequestID: "req-1", Strategy: merge.StrategyRaw}
	fixed.Normalize()
	if fixed.RequestID != "req-1" || fixed.Strategy != merge.StrategyRaw {
		t.Error("Normalize() should not override caller-set values")
	}
}

func TestRequest_CheckRequiredParams(t *testing.T) {
	req := &Request{
		Type:       "credit-report",
		Parameters: map[string]interface{}{"company_id": "12345", "country": nil},
	}

	if err := req.CheckRequiredParams([]string{"company_id"}); err != nil {
		t.Errorf("CheckRequiredParams() error = %v, want nil", err)
	}
	if err := req.CheckRequiredParams(nil); err != nil {
		t.Errorf("CheckRequiredParams() with no requirements error = %v", err)
	}

	err := req.CheckRequiredParams([]string{"company_id", "region"})
	if !errors.IsType(err, errors.ErrTypeValidation) {
		t.Errorf("CheckRequiredParams() missing param error = %v, want validation", err)
	}

	// A present key with a nil value does not satisfy the requirement.
	if err := req.CheckRequiredParams([]string{"country"}); err == nil {
		t.Error("CheckRequiredParams() should reject nil-valued required parameters")
	}
}

func TestDescriptor_Key(t *testing.T) {
	a := Descriptor{ProviderName: "acme", Type: "credit-report", TenantID: "t1"}
	b := Descriptor{ProviderName: "acme", Type: "credit-report", TenantID: "t2"}
	c := Descriptor{ProviderName: "acme", Type: "credit-report", TenantID: "t1"}

	if a.Key() == b.Key() {
		t.Error("descriptors with different tenants should have different keys")
	}
	if a.Key() != c.Key() {
		t.Error("identical descriptors should have equal keys")
	}
}

func TestDescriptor_Validate(t *testing.T) {
	if err := (Descriptor{ProviderName: "acme", Type: "credit-report"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if err := (Descriptor{Type: "credit-report"}).Validate(); err == nil {
		t.Error("Validate() should reject missing provider name")
	}
	if err := (Descriptor{ProviderName: "acme"}).Validate(); err == nil {
		t.Error("Validate() should reject missing type")
	}
}
