package utils

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// IsRemote reports whether source parses as an absolute URI. Single-letter
// schemes are Windows drive letters and file:// URLs name local paths, so
// neither counts as remote. No network access happens here.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil || !u.IsAbs() {
		return false
	}
	if len(u.Scheme) < 2 || strings.EqualFold(u.Scheme, "file") {
		return false
	}
	return true
}

func DetermineJobType(source string) string {
	if !IsRemote(source) {
		return JobTypeLocal
	}
	u, _ := url.Parse(source)
	scheme := strings.ToLower(u.Scheme)
	switch {
	case scheme == "s3":
		return JobTypeS3
	case blobSchemes[scheme]:
		return JobTypeBlob
	default:
		return JobTypeHTTP
	}
}

// LocalSourcePath turns a file:// URL into a filesystem path and returns
// anything else unchanged.
func LocalSourcePath(source string) string {
	u, err := url.Parse(source)
	if err != nil || !strings.EqualFold(u.Scheme, "file") {
		return source
	}
	if u.Path == "" {
		return u.Opaque
	}
	return filepath.FromSlash(u.Path)
}

// ResolveDir returns the absolute destination directory for a job; an empty
// dir means the current working directory at the time of the call.
func ResolveDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

// RemoteFileName returns the last segment of a URL path or object key.
func RemoteFileName(p string) string {
	parts := strings.Split(p, "/")
	name := parts[len(parts)-1]
	if name == "" || name == "." || name == ".." {
		return DefaultFileName
	}
	return name
}

// Percentage is floor(100*done/total), clamped to 100, or 0 when the total
// is unknown.
func Percentage(done, total int64) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return int(done * 100 / total)
}

func ClampBufferSize(size int) int {
	if size <= 0 {
		return DefaultBufferSize
	}
	return max(MinBufferSize, min(size, MaxBufferSize))
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	bps := float64(bytes) / elapsed
	return FormatBytes(uint64(bps)) + "/s"
}
