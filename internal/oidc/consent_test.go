package oidc

import (
	"testing"
	"time"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

func authRecord(id string, createdAt time.Time) repository.Authorization {
	return repository.Authorization{
		ID:        id,
		Subject:   "u1",
		ClientID:  "client-1",
		Type:      repository.AuthorizationPermanent,
		Status:    repository.AuthorizationValid,
		Scopes:    []string{"openid", "email"},
		CreatedAt: createdAt,
	}
}

func TestDecide_DecisionTable(t *testing.T) {
	now := time.Now()
	one := []repository.Authorization{authRecord("a1", now)}

	cases := []struct {
		name        string
		consentType repository.ConsentType
		existing    []repository.Authorization
		prompt      []string
		want        ConsentDecision
	}{
		{"external empty forbids", repository.ConsentExternal, nil, nil, DecisionConsentRequired},
		{"external empty forbids even with prompt none", repository.ConsentExternal, nil, []string{"none"}, DecisionConsentRequired},
		{"implicit empty grants", repository.ConsentImplicit, nil, nil, DecisionSilentGrant},
		{"implicit with record grants", repository.ConsentImplicit, one, nil, DecisionSilentGrant},
		{"implicit grants under prompt consent", repository.ConsentImplicit, one, []string{"consent"}, DecisionSilentGrant},
		{"external with record grants", repository.ConsentExternal, one, nil, DecisionSilentGrant},
		{"explicit with record grants", repository.ConsentExplicit, one, nil, DecisionSilentGrant},
		{"explicit with record but prompt consent asks again", repository.ConsentExplicit, one, []string{"consent"}, DecisionShowConsentForm},
		{"explicit empty under prompt none forbids", repository.ConsentExplicit, nil, []string{"none"}, DecisionConsentRequired},
		{"systematic under prompt none forbids", repository.ConsentSystematic, one, []string{"none"}, DecisionConsentRequired},
		{"explicit empty shows form", repository.ConsentExplicit, nil, nil, DecisionShowConsentForm},
		{"systematic shows form", repository.ConsentSystematic, one, nil, DecisionShowConsentForm},
	}

	engine := NewConsentDecisionEngine()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Decide(tc.consentType, tc.existing, tc.prompt)
			if got.Decision != tc.want {
				t.Fatalf("Decide() = %v, want %v", got.Decision, tc.want)
			}
		})
	}
}

func TestDecide_ImplicitAlwaysSilentGrant(t *testing.T) {
	engine := NewConsentDecisionEngine()
	prompts := [][]string{nil, {"none"}, {"consent"}, {"login"}, {"none", "consent"}}
	existings := [][]repository.Authorization{
		nil,
		{authRecord("a1", time.Now())},
		{authRecord("a1", time.Now()), authRecord("a2", time.Now().Add(time.Hour))},
	}
	for _, p := range prompts {
		for _, ex := range existings {
			got := engine.Decide(repository.ConsentImplicit, ex, p)
			if got.Decision != DecisionSilentGrant {
				t.Fatalf("implicit consent with prompt=%v existing=%d: got %v", p, len(ex), got.Decision)
			}
		}
	}
}

func TestDecide_SilentGrantReusesMostRecentRecord(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	older := authRecord("older", base)
	newer := authRecord("newer", base.Add(2*time.Hour))

	engine := NewConsentDecisionEngine()
	got := engine.Decide(repository.ConsentExplicit, []repository.Authorization{older, newer}, nil)
	if got.Decision != DecisionSilentGrant {
		t.Fatalf("Decide() = %v, want silent grant", got.Decision)
	}
	if got.Authorization == nil || got.Authorization.ID != "newer" {
		t.Fatalf("expected most recent record reused, got %+v", got.Authorization)
	}
}

func TestDecide_ScenarioExplicitPromptSwitch(t *testing.T) {
	engine := NewConsentDecisionEngine()
	one := []repository.Authorization{authRecord("a1", time.Now())}

	if got := engine.Decide(repository.ConsentExplicit, one, nil); got.Decision != DecisionSilentGrant {
		t.Fatalf("empty prompt: got %v, want silent grant", got.Decision)
	}
	if got := engine.Decide(repository.ConsentExplicit, one, []string{"consent"}); got.Decision != DecisionShowConsentForm {
		t.Fatalf("prompt=consent: got %v, want consent form", got.Decision)
	}
}
