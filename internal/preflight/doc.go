// Package preflight runs the one-shot startup checks the worker performs
// before accepting jobs: backend readiness, model file presence, and
// directory access, plus diagnostic directory listings for debugging
// misconfigured model mounts.
package preflight
