//go:build !linux && !darwin

package autopkg

const (
	etagAttr         = "com.github.autopkg.etag"
	lastModifiedAttr = "com.github.autopkg.last-modified"
)

func artifactAttr(_, _ string) (string, bool) {
	return "", false
}
