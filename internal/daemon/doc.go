// Package daemon hosts the synchronous HTTP surface of the worker: one
// blocking /run endpoint, a /healthz probe, and a file lock that keeps a
// second instance from binding the same backend.
package daemon
