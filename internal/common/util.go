package common

// WipeByteArray overwrites b with zeros. Used for passwords read into
// byte slices once they are no longer needed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
