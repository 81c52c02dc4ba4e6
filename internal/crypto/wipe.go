package crypto

import "runtime"

// Wipe overwrites b with zeros. Used on seeds and derived keys once they
// have been sealed or consumed.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
