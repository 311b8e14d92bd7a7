package token

import "github.com/davecgh/go-spew/spew"

// dumpConfig renders token trees without the *Token pointer noise that the
// default spew.Dump would include. Dump is its only user; the parser calls
// Dump to fill errz.UnexpectedToken's partial tree.
var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
}

// Dump returns a human-readable, indented rendering of a (possibly partial
// or nil) token tree. It is embedded in the UnexpectedToken parser error
// so a host can show a caller what the parser had managed to build before
// it gave up.
func Dump(t *Token) string {
	if t == nil {
		return "<nil>"
	}
	return dumpConfig.Sdump(t)
}
