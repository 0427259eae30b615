package ledger

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// openMarker is appended to folder links; spreadsheet applications rewrite
// bare directory links relative to the workbook, but leave this form intact.
const openMarker = "/?open"

// FolderURI renders a directory as "file:///<path>/?open". Backslashes become
// slashes and every byte outside [A-Za-z0-9/:_.-] is percent-encoded.
func FolderURI(dir string) string {
	p := strings.ReplaceAll(dir, `\`, "/")
	p = strings.TrimRight(strings.TrimLeft(p, "/"), "/")

	var b strings.Builder
	b.WriteString("file:///")
	for i := 0; i < len(p); i++ {
		c := p[i]
		if isAllowed(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	b.WriteString(openMarker)
	return b.String()
}

func isAllowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '/', c == ':', c == '-', c == '_', c == '.':
		return true
	default:
		return false
	}
}

// FolderFromURI reverses FolderURI. It reports false for links that are not
// local file links.
func FolderFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, "file:///")
	if !ok {
		return "", false
	}
	rest = strings.TrimRight(strings.TrimSuffix(rest, openMarker), "/")
	p, err := url.PathUnescape(rest)
	if err != nil || p == "" {
		return "", false
	}
	if len(p) < 2 || p[1] != ':' {
		p = "/" + p
	}
	return filepath.FromSlash(p), true
}
