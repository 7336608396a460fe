package oidc

import (
	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

// ConsentDecision is the outcome of evaluating a client's consent policy.
type ConsentDecision int

const (
	// DecisionSilentGrant: proceed without interaction, reusing (or about
	// to create) an authorization record.
	DecisionSilentGrant ConsentDecision = iota
	// DecisionConsentRequired: reject with the consent_required error.
	DecisionConsentRequired
	// DecisionShowConsentForm: render the interactive consent form.
	DecisionShowConsentForm
)

func (d ConsentDecision) String() string {
	switch d {
	case DecisionSilentGrant:
		return "silent_grant"
	case DecisionConsentRequired:
		return "consent_required"
	case DecisionShowConsentForm:
		return "show_consent_form"
	}
	return "unknown"
}

// ConsentResult carries the decision plus, on silent grant, the reusable
// authorization record (nil when a new one must be created).
type ConsentResult struct {
	Decision      ConsentDecision
	Authorization *repository.Authorization
}

// ConsentDecisionEngine decides whether an authorize request can be
// silently granted, must be rejected, or needs the consent form.
type ConsentDecisionEngine struct{}

// NewConsentDecisionEngine creates the engine.
func NewConsentDecisionEngine() *ConsentDecisionEngine {
	return &ConsentDecisionEngine{}
}

// Decide evaluates the consent policy. First match wins:
//
//  1. External with no prior record: fatal for the request — a human
//     operator grants access out-of-band, so absence means no access.
//  2. Implicit: never requires interaction.
//  3. External with a record: the out-of-band grant stands.
//  4. Explicit with a record and no prompt=consent: reuse the grant.
//  5. Explicit/Systematic under prompt=none: interaction is needed but the
//     client forbids it.
//  6. Everything else: show the form.
func (e *ConsentDecisionEngine) Decide(consentType repository.ConsentType,
	existing []repository.Authorization, prompt []string) ConsentResult {

	hasExisting := len(existing) > 0
	wantsConsent := promptHas(prompt, PromptConsent)
	wantsNone := promptHas(prompt, PromptNone)

	switch {
	case consentType == repository.ConsentExternal && !hasExisting:
		return ConsentResult{Decision: DecisionConsentRequired}

	case consentType == repository.ConsentImplicit:
		return ConsentResult{Decision: DecisionSilentGrant, Authorization: mostRecent(existing)}

	case consentType == repository.ConsentExternal: // hasExisting
		return ConsentResult{Decision: DecisionSilentGrant, Authorization: mostRecent(existing)}

	case consentType == repository.ConsentExplicit && hasExisting && !wantsConsent:
		return ConsentResult{Decision: DecisionSilentGrant, Authorization: mostRecent(existing)}

	case (consentType == repository.ConsentExplicit || consentType == repository.ConsentSystematic) && wantsNone:
		return ConsentResult{Decision: DecisionConsentRequired}

	default:
		return ConsentResult{Decision: DecisionShowConsentForm}
	}
}

func promptHas(prompt []string, v string) bool {
	for _, p := range prompt {
		if p == v {
			return true
		}
	}
	return false
}

// mostRecent returns the record with the latest CreatedAt. The store may
// return several matches; this is the explicit tie-break.
func mostRecent(records []repository.Authorization) *repository.Authorization {
	if len(records) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(records); i++ {
		if records[i].CreatedAt.After(records[best].CreatedAt) {
			best = i
		}
	}
	out := records[best]
	return &out
}
