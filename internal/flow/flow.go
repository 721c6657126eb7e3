// Package flow defines the conversational steps of the bot as an explicit
// state set with a static transition table, plus the mapping from menu
// button text to user intent. It is pure: no Telegram types, no storage.
package flow

// Step is one waiting state of a multi-message conversation.
type Step string

const (
	// StepNone means no conversation is in progress.
	StepNone Step = ""

	// Plate lookup
	StepSearchPlate Step = "search:plate"

	// Review submission
	StepReviewPlate    Step = "review:plate"
	StepReviewRating   Step = "review:rating"
	StepReviewComment  Step = "review:comment"
	StepReviewLocation Step = "review:location"
	StepReviewMedia    Step = "review:media"

	// Garage
	StepGaragePlate Step = "garage:plate"

	// Payment
	StepPaymentReceipt Step = "payment:receipt"

	// Moderator conversations
	StepAdminBroadcast   Step = "admin:broadcast"
	StepAdminDeletePlate Step = "admin:del_plate"
	StepAdminFindUser    Step = "admin:find_user"
)

// Event classifies the user's reply within a conversation.
type Event string

const (
	// EventInput is a valid payload for the current step.
	EventInput Event = "input"
	// EventSkip skips an optional step.
	EventSkip Event = "skip"
	// EventCancel abandons the conversation.
	EventCancel Event = "cancel"
)

// transitions is the closed table of legal moves. A (step, event) pair
// absent from the table is rejected; the conversation stays where it is.
var transitions = map[Step]map[Event]Step{
	StepSearchPlate: {
		EventInput:  StepNone,
		EventCancel: StepNone,
	},
	StepReviewPlate: {
		EventInput:  StepReviewRating,
		EventCancel: StepNone,
	},
	StepReviewRating: {
		EventInput:  StepReviewComment,
		EventCancel: StepNone,
	},
	StepReviewComment: {
		EventInput:  StepReviewLocation,
		EventCancel: StepNone,
	},
	StepReviewLocation: {
		EventInput:  StepReviewMedia,
		EventSkip:   StepReviewMedia,
		EventCancel: StepNone,
	},
	StepReviewMedia: {
		EventInput:  StepNone,
		EventSkip:   StepNone,
		EventCancel: StepNone,
	},
	StepGaragePlate: {
		EventInput:  StepNone,
		EventCancel: StepNone,
	},
	StepPaymentReceipt: {
		EventInput:  StepNone,
		EventCancel: StepNone,
	},
	StepAdminBroadcast: {
		EventInput:  StepNone,
		EventCancel: StepNone,
	},
	StepAdminDeletePlate: {
		EventInput:  StepNone,
		EventCancel: StepNone,
	},
	StepAdminFindUser: {
		EventInput:  StepNone,
		EventCancel: StepNone,
	},
}

// Next resolves the step reached by applying event at step. The second
// return is false when the move is not in the table.
func Next(step Step, event Event) (Step, bool) {
	byEvent, ok := transitions[step]
	if !ok {
		return step, false
	}
	next, ok := byEvent[event]
	if !ok {
		return step, false
	}
	return next, true
}

// Terminal reports whether applying event at step ends the conversation.
func Terminal(step Step, event Event) bool {
	next, ok := Next(step, event)
	return ok && next == StepNone
}

// Optional reports whether the step may be skipped.
func Optional(step Step) bool {
	_, ok := transitions[step][EventSkip]
	return ok
}
