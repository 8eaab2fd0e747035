// Package classify turns captured payloads into typed records.
//
// A Task carries one captured payload and the host it came from. The
// Classifier runs a task through its states:
//
//	Received -> Decoded -> Published
//	                    -> Discarded
//
// Decoding first removes any Content-Encoding from the captured response
// body and then hands the result to a Decoder. A record of kind Undefined is
// discarded without touching the record queue or the filter state. A
// recognized record is enqueued and, if no server has been detected yet,
// the task's host is offered as the detected server.
//
// Decoder errors and panics are caught at the task boundary. They fail the
// task, are logged, and never reach the proxying path or stop a worker.
//
// Tasks are dispatched through a Dispatcher. Pool runs them on a fixed set
// of workers fed by an unbounded backlog, so Submit never blocks. Inline
// runs each task on the caller's goroutine and is meant for tests.
package classify
