//go:build !unix

package history

// Without flock only the in-process mutex serializes appends.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
