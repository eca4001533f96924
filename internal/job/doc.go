// Package job implements the orchestration state machine that adapts the
// synchronous request/response contract onto the asynchronous polling
// backend: submit, poll under a deadline, resolve the output artifact,
// retrieve and post-process it, and normalize the outcome into exactly one
// response document.
package job
