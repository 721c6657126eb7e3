package bot

import (
	"errors"
	"strings"
	"testing"

	"driverbot/core/telegram/state"
	"driverbot/internal/flow"
)

func newTestBot() *Bot {
	return New(Options{FSM: state.NewMemoryManager()})
}

// The review conversation must move exactly as the transition table
// prescribes, temps surviving every step.
func TestAdvanceFollowsTransitionTable(t *testing.T) {
	b := newTestBot()
	const user int64 = 7

	b.fsm.SetState(user, st(flow.StepReviewPlate))
	b.fsm.SetTemp(user, tmpPlate, "123ABC02")

	path := []struct {
		from flow.Step
		ev   flow.Event
		want flow.Step
	}{
		{flow.StepReviewPlate, flow.EventInput, flow.StepReviewRating},
		{flow.StepReviewRating, flow.EventInput, flow.StepReviewComment},
		{flow.StepReviewComment, flow.EventInput, flow.StepReviewLocation},
		{flow.StepReviewLocation, flow.EventSkip, flow.StepReviewMedia},
	}
	for _, p := range path {
		b.advance(user, p.from, p.ev)
		if got := b.fsm.GetState(user); got != st(p.want) {
			t.Fatalf("after %s + %s: state = %q, want %q", p.from, p.ev, got, p.want)
		}
	}
	if plate, ok := b.fsm.GetTempString(user, tmpPlate); !ok || plate != "123ABC02" {
		t.Errorf("plate temp lost mid-flow: %q, %v", plate, ok)
	}

	// terminal move clears the whole session, temps included
	b.advance(user, flow.StepReviewMedia, flow.EventInput)
	if got := b.fsm.GetState(user); got != state.StateIdle {
		t.Errorf("state after terminal move = %q, want idle", got)
	}
	if _, ok := b.fsm.GetTempString(user, tmpPlate); ok {
		t.Error("temps must be cleared on completion")
	}
}

func TestAdvanceRejectsMovesOutsideTable(t *testing.T) {
	b := newTestBot()
	const user int64 = 7

	b.fsm.SetState(user, st(flow.StepReviewComment))
	b.advance(user, flow.StepReviewComment, flow.EventSkip)
	if got := b.fsm.GetState(user); got != st(flow.StepReviewComment) {
		t.Errorf("skip on a required step moved state to %q", got)
	}

	b.advance(user, flow.StepNone, flow.EventInput)
	if got := b.fsm.GetState(user); got != st(flow.StepReviewComment) {
		t.Errorf("move from idle changed state to %q", got)
	}
}

func TestReceiptOutcome(t *testing.T) {
	sendFail := errors.New("telegram: 502")
	fwdFail := errors.New("telegram: message not found")

	settled, reply := receiptOutcome(sendFail, nil)
	if settled {
		t.Error("failed card send must ask the user to resubmit")
	}
	if !strings.Contains(reply, "Не удалось") {
		t.Errorf("retry reply = %q", reply)
	}

	settled, reply = receiptOutcome(nil, fwdFail)
	if !settled {
		t.Error("failed forward alone must not force a resubmit")
	}
	if !strings.Contains(reply, "✅") {
		t.Errorf("forward-failure reply = %q", reply)
	}

	settled, reply = receiptOutcome(nil, nil)
	if !settled || !strings.Contains(reply, "на проверку") {
		t.Errorf("clean delivery = (%v, %q)", settled, reply)
	}
}
