package kanboard

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// AsyncMarker is the suffix that selects the asynchronous call shape in
// Dispatch and Procedure, e.g. "create_project_async".
const AsyncMarker = "_async"

// ToCamelCase maps a snake_case invocation name to the remote procedure name:
// the first segment is kept as is and every following segment gets its first
// rune title-cased. Empty segments are skipped.
//
//	ToCamelCase("get_all_tasks") == "getAllTasks"
func ToCamelCase(name string) string {
	segments := strings.Split(name, "_")

	var b strings.Builder
	b.Grow(len(name))
	b.WriteString(segments[0])
	for _, segment := range segments[1:] {
		if segment == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(segment)
		b.WriteRune(unicode.ToTitle(r))
		b.WriteString(segment[size:])
	}
	return b.String()
}

// IsAsyncMethodName reports whether name ends with AsyncMarker.
func IsAsyncMethodName(name string) bool {
	return strings.HasSuffix(name, AsyncMarker)
}

// MethodFromAsyncName strips AsyncMarker from name, if present.
func MethodFromAsyncName(name string) string {
	return strings.TrimSuffix(name, AsyncMarker)
}

// RemoteName is the procedure name sent on the wire for an invocation name:
// the async marker is stripped first, then the rest is camel-cased.
func RemoteName(name string) string {
	return ToCamelCase(MethodFromAsyncName(name))
}
