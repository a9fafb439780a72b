package diag

// Location pins a compiler message to a position inside a script.
type Location struct {
	// Path of the script as the compiler reported it.
	Path string
	// Line is 1-based; negative when the compiler gave no line.
	Line int
	// Column within the line as the compiler reported it; negative when
	// unknown.
	Column int
	// Content is the text of the offending source line, when available.
	Content string
}

// Located reports whether the location carries a usable line number.
func (l *Location) Located() bool {
	return l != nil && l.Line >= 0
}

// Diagnostic is one compiler message. Location is nil when the message has no
// source position.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location *Location
}
