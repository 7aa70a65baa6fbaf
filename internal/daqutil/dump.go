// Package daqutil holds small cross-cutting helpers that don't belong to
// any one pipeline stage. Today that's just verbose debug dumping of
// configuration and status structures during development, using
// github.com/davecgh/go-spew/spew.
package daqutil

import (
	"github.com/davecgh/go-spew/spew"
)

// Dump renders v as a multi-line, field-annotated string suitable for
// verbose (-v) CLI output when logging a newly-applied configuration.
func Dump(v interface{}) string {
	return spew.Sdump(v)
}
