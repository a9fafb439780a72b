// Package source gives diagnostics access to script text by line.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"fortio.org/safecast"
)

// File is one loaded script with an index of its line breaks.
type File struct {
	Path    string
	Content []byte
	lineIdx []uint32 // позиции '\n' в Content
}

// New wraps already loaded content. The content is indexed as-is; use Load to
// get BOM stripping and CRLF normalization.
func New(path string, content []byte) *File {
	return &File{Path: path, Content: content, lineIdx: buildLineIndex(content)}
}

// Load reads a script from disk, strips a UTF-8 BOM, and normalizes CRLF line
// endings so diagnostics see the same text on every platform.
func Load(path string) (*File, error) {
	// #nosec G304 -- скрипт указывает вызывающая сторона
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content, _ = removeBOM(content)
	content, _ = normalizeCRLF(content)
	return New(path, content), nil
}

// Line returns the 1-based line with the given number, without its trailing
// newline. Out-of-range numbers return the empty string.
func (f *File) Line(num int) string {
	if f == nil || num <= 0 {
		return ""
	}
	lineNum, err := safecast.Conv[uint32](num)
	if err != nil {
		return ""
	}

	var start, end, lenLineIdx, lenContent uint32
	lenLineIdx, err = safecast.Conv[uint32](len(f.lineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent, err = safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}

	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = f.lineIdx[lineNum-2] + 1
	default:
		return ""
	}

	if (lineNum - 1) < lenLineIdx {
		end = f.lineIdx[lineNum-1]
	} else {
		end = lenContent
	}

	if start >= lenContent {
		return ""
	}
	if end > lenContent {
		end = lenContent
	}

	return string(f.Content[start:end])
}

// LineCount returns the number of lines in the file. A trailing newline does
// not start a new line.
func (f *File) LineCount() int {
	if f == nil || len(f.Content) == 0 {
		return 0
	}
	count := len(f.lineIdx)
	if f.Content[len(f.Content)-1] != '\n' {
		count++
	}
	return count
}

// normalizeCRLF заменяет все \r\n на \n, не трогая одиночные \r.
func normalizeCRLF(content []byte) ([]byte, bool) {
	// Быстрый путь: без \r ничего менять не надо.
	if !slices.Contains(content, '\r') {
		return content, false
	}

	out := make([]byte, 0, len(content))
	changed := false
	i := 0
	for i < len(content) {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i += 2
			changed = true
		} else {
			out = append(out, content[i])
			i++
		}
	}
	return out, changed
}

// removeBOM отрезает UTF-8 BOM, если он есть.
func removeBOM(content []byte) ([]byte, bool) {
	if len(content) < 3 {
		return content, false
	}
	if content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}
	return content, false
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content)/32)
	for i, b := range content {
		if b == '\n' {
			idx, err := safecast.Conv[uint32](i)
			if err != nil {
				panic(fmt.Errorf("line offset overflow: %w", err))
			}
			out = append(out, idx)
		}
	}
	return out
}

// normalizePath приводит путь к единому виду для ключей кеша.
func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
