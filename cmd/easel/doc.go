// Package main hosts the easel CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot job runs against the
// generation backend, preflight readiness checks, and configuration
// scaffolding. It centralizes configuration resolution so subcommands
// can focus on user experience instead of wiring.
package main
