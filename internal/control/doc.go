// Package control dispatches operator commands (pause, resume, stop) to
// individual workers.
//
// The Dispatcher never mutates cached fleet state. Whatever the backend
// answers, it asks the reconciliation loop for a refresh so the displayed
// state converges on what the backend actually did. Stop is destructive and
// passes a confirmation gate first; a declined stop sends nothing.
package control
