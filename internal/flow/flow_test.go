package flow

import "testing"

func TestReviewHappyPath(t *testing.T) {
	path := []struct {
		step  Step
		event Event
		want  Step
	}{
		{StepReviewPlate, EventInput, StepReviewRating},
		{StepReviewRating, EventInput, StepReviewComment},
		{StepReviewComment, EventInput, StepReviewLocation},
		{StepReviewLocation, EventSkip, StepReviewMedia},
		{StepReviewMedia, EventSkip, StepNone},
	}
	for _, p := range path {
		got, ok := Next(p.step, p.event)
		if !ok {
			t.Fatalf("%s + %s: move rejected", p.step, p.event)
		}
		if got != p.want {
			t.Errorf("%s + %s = %s, want %s", p.step, p.event, got, p.want)
		}
	}
}

func TestCancelFromEveryStep(t *testing.T) {
	steps := []Step{
		StepSearchPlate, StepReviewPlate, StepReviewRating, StepReviewComment,
		StepReviewLocation, StepReviewMedia, StepGaragePlate, StepPaymentReceipt,
		StepAdminBroadcast, StepAdminDeletePlate, StepAdminFindUser,
	}
	for _, s := range steps {
		got, ok := Next(s, EventCancel)
		if !ok || got != StepNone {
			t.Errorf("cancel at %s = (%s, %v), want (none, true)", s, got, ok)
		}
	}
}

func TestSkipOnlyOnOptionalSteps(t *testing.T) {
	if !Optional(StepReviewLocation) || !Optional(StepReviewMedia) {
		t.Error("location and media must be skippable")
	}
	for _, s := range []Step{StepReviewPlate, StepReviewRating, StepReviewComment, StepSearchPlate} {
		if Optional(s) {
			t.Errorf("%s must not be skippable", s)
		}
		if _, ok := Next(s, EventSkip); ok {
			t.Errorf("skip at %s must be rejected", s)
		}
	}
}

func TestNoMovesFromIdle(t *testing.T) {
	for _, e := range []Event{EventInput, EventSkip, EventCancel} {
		if _, ok := Next(StepNone, e); ok {
			t.Errorf("event %s from idle must be rejected", e)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !Terminal(StepReviewMedia, EventInput) {
		t.Error("media input must finish the review")
	}
	if Terminal(StepReviewPlate, EventInput) {
		t.Error("plate input must not finish the review")
	}
	if !Terminal(StepSearchPlate, EventInput) {
		t.Error("search is a single-step conversation")
	}
}

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{BtnSearch, IntentSearch},
		{BtnReview, IntentReview},
		{BtnGarage, IntentGarage},
		{BtnSubscription, IntentSubscription},
		{BtnSupport, IntentSupport},
		{BtnInvite, IntentInvite},
		{BtnMyStats, IntentMyStats},
		{BtnCancel, IntentCancel},
		{"/cancel", IntentCancel},
		{"  " + BtnSearch + "  ", IntentSearch},
		{"просто текст", IntentNone},
		{"123ABC02", IntentNone},
	}
	for _, tc := range cases {
		if got := DetectIntent(tc.text); got != tc.want {
			t.Errorf("DetectIntent(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
	if !IsSkip(BtnSkip) || IsSkip("нет") {
		t.Error("IsSkip mismatch")
	}
}
