//go:build !debug

package debug

// Debug reports whether the binary was built with the debug tag.
const Debug = false

// Assert does nothing unless the debug build tag is set.
func Assert(condition bool, message ...string) {}
