package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// officeOwnerPrefix marks the owner file office suites create next to an
// open document.
const officeOwnerPrefix = "~$"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLedgerClosed fails when a spreadsheet application has the ledger
// open, detected through its owner file. Saving over an open ledger either
// fails or is lost when the application saves its own copy.
func CheckLedgerClosed(name, path string) Result {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: "not created yet"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	for _, owner := range ownerFiles(path) {
		if _, err := os.Stat(owner); err == nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s is open in another application (%s)", filepath.Base(path), filepath.Base(owner))}
		}
	}
	if err := unix.Access(path, unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: filepath.Base(path)}
}

// ownerFiles lists the owner file names office suites use for path: the
// full name prefixed, and the name with its first two characters replaced.
func ownerFiles(path string) []string {
	dir, base := filepath.Split(path)
	names := []string{officeOwnerPrefix + base}
	if len(base) > 2 {
		names = append(names, officeOwnerPrefix+base[2:])
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}

// CheckLockFree reports whether another run holds the directory lock. The
// lock is released immediately when it could be taken.
func CheckLockFree(dir, lockFile string) Result {
	const name = "Directory lock"
	lock := flock.New(filepath.Join(dir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	if !ok {
		return Result{Name: name, Detail: "another grd run is in progress"}
	}
	_ = lock.Unlock()
	return Result{Name: name, Passed: true, Detail: "free"}
}
