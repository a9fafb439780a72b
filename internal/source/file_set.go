package source

import "sync"

// FileSet memoizes script loads for the duration of one compilation run.
// Safe for concurrent use.
type FileSet struct {
	mu    sync.Mutex
	files map[string]*File
}

// NewFileSet creates an empty file set.
func NewFileSet() *FileSet {
	return &FileSet{files: make(map[string]*File)}
}

// Load returns the cached file for path, reading it on first use. Read
// failures are not cached; a later call retries.
func (fs *FileSet) Load(path string) (*File, error) {
	key := normalizePath(path)

	fs.mu.Lock()
	if f, ok := fs.files[key]; ok {
		fs.mu.Unlock()
		return f, nil
	}
	fs.mu.Unlock()

	f, err := Load(path)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	// Другая горутина могла загрузить первой; оставляем её копию.
	if prev, ok := fs.files[key]; ok {
		return prev, nil
	}
	fs.files[key] = f
	return f, nil
}

// LineAt returns line num of the script at path, or the empty string when the
// script cannot be read.
func (fs *FileSet) LineAt(path string, num int) string {
	f, err := fs.Load(path)
	if err != nil {
		return ""
	}
	return f.Line(num)
}

// Len returns the number of loaded files.
func (fs *FileSet) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.files)
}
