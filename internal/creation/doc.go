// Package creation submits new download workers to the backend.
//
// A Request names a local job descriptor (.torrent file) and the container
// parameters for the worker that will serve it. Submit uploads the
// descriptor, registers the container, and asks the reconciliation loop for a
// refresh; the new worker shows up in the next published snapshot.
package creation
