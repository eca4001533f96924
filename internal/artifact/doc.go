// Package artifact resolves which output node of a completed execution holds
// the artifact to return, honoring the caller's preferred node order with a
// deterministic document-order fallback.
package artifact
