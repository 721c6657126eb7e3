// Package state provides a small per-user finite state machine for
// multi-step Telegram conversations. Handlers are registered per state
// on a Manager; the message router dispatches updates from users with
// an active state to ManagerHandler.
package state
