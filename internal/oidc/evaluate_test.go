package oidc

import (
	"errors"
	"testing"
	"time"
)

func fixedEvaluator(at time.Time) *RequestEvaluator {
	return &RequestEvaluator{now: func() time.Time { return at }}
}

func i64(v int64) *int64 { return &v }

func TestEvaluate_MissingRequestIsFatal(t *testing.T) {
	e := NewRequestEvaluator()
	_, err := e.Evaluate(nil, AuthenticationResult{}, &RecheckFlag{})
	if !errors.Is(err, ErrMissingRequestContext) {
		t.Fatalf("expected ErrMissingRequestContext, got %v", err)
	}
}

func TestEvaluate_FreshSessionContinues(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e := fixedEvaluator(now)
	p := &Principal{Subject: "u1"}
	flag := &RecheckFlag{Attempted: true} // leftover from a previous cycle

	ev, err := e.Evaluate(&AuthorizationRequest{ClientID: "c1"}, AuthenticationResult{
		Succeeded: true,
		Principal: p,
		IssuedAt:  now.Add(-time.Minute),
	}, flag)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Outcome != EvalContinue || ev.Principal != p {
		t.Fatalf("expected Continue with principal, got %v", ev.Outcome)
	}
	if flag.Attempted {
		t.Fatal("fresh authentication must clear the loop-prevention flag")
	}
}

func TestEvaluate_MaxAgeZeroChallengesThenContinues(t *testing.T) {
	// max_age=0 always forces re-authentication: first pass challenges,
	// the retry continues via the loop-prevention flag.
	now := time.Now()
	e := fixedEvaluator(now)
	req := &AuthorizationRequest{ClientID: "c1", MaxAge: i64(0), OriginalURI: "/connect/authorize?client_id=c1"}
	auth := AuthenticationResult{Succeeded: true, Principal: &Principal{Subject: "u1"}, IssuedAt: now}
	flag := &RecheckFlag{}

	first, err := e.Evaluate(req, auth, flag)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if first.Outcome != EvalChallenge {
		t.Fatalf("first pass: got %v, want Challenge", first.Outcome)
	}
	if first.RedirectTarget != req.OriginalURI {
		t.Fatalf("challenge must carry the original URI, got %q", first.RedirectTarget)
	}
	if !flag.Attempted {
		t.Fatal("challenge must set the loop-prevention flag")
	}

	second, err := e.Evaluate(req, auth, flag)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if second.Outcome != EvalContinue {
		t.Fatalf("retry: got %v, want Continue", second.Outcome)
	}
}

func TestEvaluate_PromptNoneForbids(t *testing.T) {
	e := fixedEvaluator(time.Now())
	req := &AuthorizationRequest{ClientID: "c1", Prompt: []string{"none"}}

	ev, err := e.Evaluate(req, AuthenticationResult{Succeeded: false}, &RecheckFlag{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Outcome != EvalLoginRequired {
		t.Fatalf("got %v, want LoginRequired", ev.Outcome)
	}
}

func TestEvaluate_PromptLoginForcesChallenge(t *testing.T) {
	now := time.Now()
	e := fixedEvaluator(now)
	req := &AuthorizationRequest{ClientID: "c1", Prompt: []string{"login"}, OriginalURI: "/connect/authorize"}
	auth := AuthenticationResult{Succeeded: true, Principal: &Principal{Subject: "u1"}, IssuedAt: now}

	ev, err := e.Evaluate(req, auth, &RecheckFlag{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Outcome != EvalChallenge {
		t.Fatalf("got %v, want Challenge", ev.Outcome)
	}
}

func TestEvaluate_SessionOlderThanMaxAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e := fixedEvaluator(now)
	req := &AuthorizationRequest{ClientID: "c1", MaxAge: i64(300)}

	// 10 minutes old vs max_age=300s
	stale := AuthenticationResult{Succeeded: true, Principal: &Principal{Subject: "u1"}, IssuedAt: now.Add(-10 * time.Minute)}
	ev, err := e.Evaluate(req, stale, &RecheckFlag{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Outcome != EvalChallenge {
		t.Fatalf("stale session: got %v, want Challenge", ev.Outcome)
	}

	// 2 minutes old is fine
	fresh := AuthenticationResult{Succeeded: true, Principal: &Principal{Subject: "u1"}, IssuedAt: now.Add(-2 * time.Minute)}
	ev, err = e.Evaluate(req, fresh, &RecheckFlag{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Outcome != EvalContinue {
		t.Fatalf("fresh session: got %v, want Continue", ev.Outcome)
	}
}
