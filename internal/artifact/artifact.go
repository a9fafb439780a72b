// Package artifact models file-backed classpath entries and ordered,
// path-deduplicated collections of them.
package artifact

// Artifact is one file-backed compiled unit: an archive or a directory of
// classes. Artifacts are identified by path; two artifacts with the same path
// are the same artifact.
type Artifact struct {
	Path string
}

// New returns an artifact for the given path.
func New(path string) Artifact {
	return Artifact{Path: path}
}

func (a Artifact) String() string {
	return a.Path
}
