package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/saegim/proofdesk/internal/domain"
)

func TestOrganizationUpdateTriState(t *testing.T) {
	t.Parallel()

	var gotFields map[string]any
	org := &domain.Organization{ID: 1, Name: "Acme", PlanType: domain.PlanBasic}

	repo := &fakeOrganizationRepo{
		UpdateFieldsFn: func(ctx context.Context, id int64, fields map[string]any) error {
			gotFields = fields
			return nil
		},
		GetByIDFn: func(ctx context.Context, id int64) (*domain.Organization, error) {
			return org, nil
		},
	}
	svc := NewOrganizationService(repo, nil)

	// brandName omitted, brandLogoUrl set, fallbackSmsEnabled explicitly null.
	payload := []byte(`{"brandLogoUrl":"https://cdn.example.com/logo.png","fallbackSmsEnabled":null}`)
	var update domain.OrganizationUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if _, err := svc.Update(context.Background(), 1, update); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, present := gotFields["brand_name"]; present {
		t.Fatal("omitted field must not be written")
	}
	if got := gotFields["brand_logo_url"]; got != "https://cdn.example.com/logo.png" {
		t.Fatalf("brand_logo_url = %v", got)
	}
	value, present := gotFields["fallback_sms_enabled"]
	if !present {
		t.Fatal("explicit null must be written")
	}
	if value != nil {
		t.Fatalf("fallback_sms_enabled = %v, want nil (inherit global default)", value)
	}
}

func TestOrganizationUpdateRejectsClearedName(t *testing.T) {
	t.Parallel()

	repo := &fakeOrganizationRepo{
		UpdateFieldsFn: func(ctx context.Context, id int64, fields map[string]any) error {
			t.Fatal("UpdateFields must not run for an invalid payload")
			return nil
		},
	}
	svc := NewOrganizationService(repo, nil)

	var update domain.OrganizationUpdate
	if err := json.Unmarshal([]byte(`{"name":null}`), &update); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	_, err := svc.Update(context.Background(), 1, update)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Update() error = %v, want ErrValidation", err)
	}
}

func TestOrganizationFallbackResolution(t *testing.T) {
	t.Parallel()

	enabled := true
	disabled := false

	cases := []struct {
		name     string
		override *bool
		global   bool
		want     bool
	}{
		{"inherit enabled", nil, true, true},
		{"inherit disabled", nil, false, false},
		{"override on beats global off", &enabled, false, true},
		{"override off beats global on", &disabled, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			org := &domain.Organization{Name: "x", PlanType: domain.PlanBasic, FallbackSMSEnabled: tc.override}
			if got := org.FallbackEnabled(tc.global); got != tc.want {
				t.Fatalf("FallbackEnabled(%v) = %v, want %v", tc.global, got, tc.want)
			}
		})
	}
}
