package instance

import (
	"os"
	"testing"
)

func TestLockIsExclusive(t *testing.T) {
	dir := t.TempDir()

	fl, err := Lock(dir, 8000)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if err := WriteAddr(dir, 8000, "127.0.0.1:8000"); err != nil {
		t.Fatal(err)
	}

	if _, err := Lock(dir, 8000); err == nil {
		t.Fatal("second lock on the same port must fail")
	}

	other, err := Lock(dir, 8001)
	if err != nil {
		t.Fatalf("lock on another port: %v", err)
	}
	Release(dir, 8001, other)

	Release(dir, 8000, fl)
	if _, err := os.Stat(addrPath(dir, 8000)); !os.IsNotExist(err) {
		t.Errorf("address file should be removed, stat err = %v", err)
	}

	again, err := Lock(dir, 8000)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	Release(dir, 8000, again)
}
