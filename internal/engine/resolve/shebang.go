package resolve

import (
	"regexp"
	"strings"

	"glot/internal/core/catalog"
)

// shebangRegex extracts the interpreter from a shebang line, including the
// env forms (#!/usr/bin/env python, #!/usr/bin/env -S deno run).
var shebangRegex = regexp.MustCompile(`^#!\s*(?:\S*[/\\](?:env\s+(?:-\S+\s+)*)?)?([^\s.\d]+)`)

// Interpreter returns the interpreter name from a shebang line, or "" when
// the line is not a shebang.
func Interpreter(line string) string {
	line = strings.TrimRight(line, "\r\n")
	match := shebangRegex.FindStringSubmatch(line)
	if match == nil {
		return ""
	}
	return match[1]
}

func (m *Matcher) matchShebang(line string) (*catalog.Descriptor, bool) {
	interpreter := Interpreter(line)
	if interpreter == "" {
		return nil, false
	}
	d, ok := m.byShebang[interpreter]
	return d, ok
}
