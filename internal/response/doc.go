// Package response defines the stable documents returned to callers. Every
// job produces exactly one Success or one Error, regardless of how the
// backend behaved.
package response
