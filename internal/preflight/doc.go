// Package preflight verifies that fleetdeck can reach its backend and use
// its local directories before long-running commands start.
package preflight
