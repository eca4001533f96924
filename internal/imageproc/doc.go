// Package imageproc recompresses image artifacts before they are returned to
// the caller. Transcoding is strictly best-effort: any failure, and any
// result that would meaningfully inflate the payload, degrades to the
// original bytes with an advisory note.
package imageproc
