// Package fileutil copies and moves delivery files.
package fileutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// CopyFile streams src to dst and carries over the source modification time
// so delivered copies keep the timestamp the snapshot compares against.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	written, err := io.Copy(out, in)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// MoveFile renames src to dst, falling back to copy and remove when the two
// paths live on different filesystems.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// RetryPolicy bounds retries of operations failing with permission errors,
// typically a document held open by a CAD or office application.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy is used when a caller passes the zero policy.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second}

// ErrRetriesExhausted wraps the last permission error once every attempt failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// IsPermission reports whether err is a permission or sharing violation.
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EBUSY)
}

// Retry runs op until it succeeds, fails with a non-permission error, or the
// policy is exhausted. Backoff doubles after each failure up to MaxBackoff.
func Retry(ctx context.Context, policy RetryPolicy, op func() error) error {
	if policy.Attempts <= 0 {
		policy = DefaultRetryPolicy
	}
	if ctx == nil {
		ctx = context.Background()
	}
	delay := policy.InitialBackoff
	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsPermission(lastErr) {
			return lastErr
		}
		if attempt == policy.Attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= policy.MaxBackoff {
			delay = next
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, policy.Attempts, lastErr)
}

// MoveWithRetry moves src to dst, retrying permission errors.
func MoveWithRetry(ctx context.Context, policy RetryPolicy, src, dst string) error {
	return Retry(ctx, policy, func() error { return MoveFile(src, dst) })
}

// UniquePath returns path itself when free, otherwise the first
// "<stem><sep><n><ext>" (n from 1) that does not exist.
func UniquePath(path, sep string) string {
	if !Exists(path) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s%s%d%s", stem, sep, n, ext)
		if !Exists(candidate) {
			return candidate
		}
	}
}

// Exists reports whether path exists. Stat errors other than not-exist count
// as existing so callers never overwrite something they cannot inspect.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
