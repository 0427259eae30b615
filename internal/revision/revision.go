package revision

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// None is the revision of a file without an explicit revision marker.
const None = ""

var (
	revisionPattern = regexp.MustCompile(`(?i)^(.*?)-R(\d{1,3})$`)
	digitsPattern   = regexp.MustCompile(`\d+`)
)

// Key identifies a document lineage. Both fields are lower-cased; Base has
// underscores folded to hyphens and the revision suffix removed.
type Key struct {
	Base string
	Ext  string
}

// String renders the key in the "<base>|<ext>" form used by the snapshot file.
func (k Key) String() string {
	return k.Base + "|" + k.Ext
}

// ParseKey reverses Key.String. Keys without a separator are treated as
// extension-less bases.
func ParseKey(s string) Key {
	base, ext, _ := strings.Cut(s, "|")
	return Key{Base: base, Ext: ext}
}

// Parse extracts the base name, revision and lower-cased extension of a
// filename. The revision is always rendered as "R" plus two digits; a name
// without a "-R<digits>" or "_R<digits>" suffix yields None.
func Parse(filename string) (base, rev, ext string) {
	name := norm.NFC.String(filepath.Base(filename))
	ext = filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	ext = strings.ToLower(ext)
	stem = strings.ReplaceAll(stem, "_", "-")

	m := revisionPattern.FindStringSubmatch(stem)
	if m == nil {
		return stem, None, ext
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return stem, None, ext
	}
	return m[1], Format(n), ext
}

// KeyOf returns the lineage key of a filename.
func KeyOf(filename string) Key {
	base, _, ext := Parse(filename)
	return Key{Base: strings.ToLower(base), Ext: ext}
}

// Format renders a revision number as a label ("R01"). Negative numbers
// render as None.
func Format(n int) string {
	if n < 0 {
		return None
	}
	return fmt.Sprintf("R%02d", n)
}

// Number returns the first digit run of a revision label, or -1 when the
// label is empty or carries no digits.
func Number(rev string) int {
	m := digitsPattern.FindString(rev)
	if m == "" {
		return -1
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return -1
	}
	return n
}

// Compare orders two revision labels by Number, returning -1, 0 or +1.
// A missing revision sorts below R00.
func Compare(a, b string) int {
	na, nb := Number(a), Number(b)
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	default:
		return 0
	}
}
