//go:build linux || darwin

package autopkg

import "golang.org/x/sys/unix"

// The download processor stamps HTTP caching headers onto the artifact as
// extended attributes so later runs can revalidate without refetching.
const (
	etagAttr         = "com.github.autopkg.etag"
	lastModifiedAttr = "com.github.autopkg.last-modified"
)

// artifactAttr reads one extended attribute from the artifact. Missing
// attributes and unsupported filesystems report ok=false.
func artifactAttr(path, name string) (string, bool) {
	size, err := unix.Getxattr(path, name, nil)
	if err != nil || size <= 0 {
		return "", false
	}
	buf := make([]byte, size)
	n, err := unix.Getxattr(path, name, buf)
	if err != nil || n <= 0 {
		return "", false
	}
	return string(buf[:n]), true
}
