// Package filter decides which exchanges are worth capturing and remembers
// the server identity discovered by classification.
//
// A Filter holds two pieces of state, both safe for concurrent use without
// caller-side locking:
//
//   - the capture Rules (hosts and content types of interest), swapped
//     atomically when the configuration is reloaded;
//   - the detected server, a write-once cell set by the first caller of
//     TryDetect or SetServerName.
//
// IsNeed never blocks and takes no lock; it is evaluated for every response
// chunk of every exchange.
package filter
