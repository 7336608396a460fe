package oidc

import (
	"time"
)

// EvalOutcome is the top-level outcome of evaluating an authorize request
// against the caller's authentication state.
type EvalOutcome int

const (
	// EvalContinue: the session is fresh enough, proceed with the principal.
	EvalContinue EvalOutcome = iota
	// EvalChallenge: redirect to login, then return to the original request.
	EvalChallenge
	// EvalLoginRequired: reject with the login_required error (prompt=none
	// forbids re-challenging).
	EvalLoginRequired
)

func (o EvalOutcome) String() string {
	switch o {
	case EvalContinue:
		return "continue"
	case EvalChallenge:
		return "challenge"
	case EvalLoginRequired:
		return "login_required"
	}
	return "unknown"
}

// Evaluation is the typed result of RequestEvaluator.Evaluate.
type Evaluation struct {
	Outcome   EvalOutcome
	Principal *Principal

	// RedirectTarget carries the original request path+query on a
	// Challenge, so the caller lands back here after login.
	RedirectTarget string
}

// RecheckFlag is the loop-prevention state for one interactive round-trip
// between the authorize endpoint and the login endpoint. The caller owns
// persistence: it stores the flag across the challenge redirect and drops
// it once the cycle ends. The flag set does NOT prove the user
// re-authenticated; it only breaks redirect storms.
type RecheckFlag struct {
	Attempted bool
}

// RequestEvaluator is the authorize-endpoint state machine: it validates
// session freshness, triggers re-authentication and defers the consent
// decision to ConsentDecisionEngine.
type RequestEvaluator struct {
	now func() time.Time
}

// NewRequestEvaluator creates an evaluator using the wall clock.
func NewRequestEvaluator() *RequestEvaluator {
	return &RequestEvaluator{now: time.Now}
}

// Evaluate decides between Continue, Challenge and LoginRequired.
//
// Re-authentication is needed when the authentication did not succeed,
// prompt contains login, max_age is zero, or the session is older than
// max_age. In that case: prompt=none forbids challenging (LoginRequired);
// an already-attempted recheck continues anyway to avoid a redirect storm;
// otherwise the flag is set and a Challenge is returned carrying the
// original request URI.
//
// A nil request is a fatal invariant violation (the middleware must always
// supply one).
func (e *RequestEvaluator) Evaluate(req *AuthorizationRequest, auth AuthenticationResult, flag *RecheckFlag) (Evaluation, error) {
	if req == nil {
		return Evaluation{}, ErrMissingRequestContext
	}
	if flag == nil {
		flag = &RecheckFlag{}
	}

	if e.needsReauthentication(req, auth) {
		if req.PromptHas(PromptNone) {
			return Evaluation{Outcome: EvalLoginRequired}, nil
		}
		if flag.Attempted {
			// Loop prevention only: this does not count as a fresh login.
			return Evaluation{Outcome: EvalContinue, Principal: auth.Principal}, nil
		}
		flag.Attempted = true
		return Evaluation{Outcome: EvalChallenge, RedirectTarget: req.OriginalURI}, nil
	}

	// Fresh authentication completed: the loop-prevention flag is spent.
	flag.Attempted = false
	return Evaluation{Outcome: EvalContinue, Principal: auth.Principal}, nil
}

func (e *RequestEvaluator) needsReauthentication(req *AuthorizationRequest, auth AuthenticationResult) bool {
	if !auth.Succeeded {
		return true
	}
	if req.PromptHas(PromptLogin) {
		return true
	}
	if req.MaxAge != nil {
		if *req.MaxAge == 0 {
			return true
		}
		age := e.now().Sub(auth.IssuedAt)
		if age > time.Duration(*req.MaxAge)*time.Second {
			return true
		}
	}
	return false
}
