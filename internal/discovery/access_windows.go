//go:build windows

package discovery

import (
	"errors"
	"io"
	"os"
)

// Windows has no access(2); a directory is readable if it can be listed and
// writable unless it carries the read-only attribute.
func canRead(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	return err == nil || errors.Is(err, io.EOF)
}

func canWrite(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0200 != 0
}
