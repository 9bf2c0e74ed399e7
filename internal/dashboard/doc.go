// Package dashboard serves the fleet snapshot and worker controls over HTTP.
//
// The server exposes the reconciliation loop's current snapshot as JSON,
// streams every newly published snapshot over a WebSocket, proxies worker
// log tails, and accepts pause/resume/stop requests that go through the same
// control.Dispatcher as the CLI. A file lock under the state directory keeps
// a single dashboard instance per host. When a token is configured every
// endpoint requires "Authorization: Bearer <token>".
package dashboard
