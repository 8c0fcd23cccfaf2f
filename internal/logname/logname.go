// Package logname implements the date-stamped log file naming convention,
// <prefix><date>.<ext>, e.g. ACTSentinel20261017.log.
package logname

import (
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Convention describes how log files are named.
type Convention struct {
	Prefix     string
	Extension  string // without the leading dot
	DateLayout string // Go time layout, e.g. 20060102
}

// ForDate returns the file name written on the day of t.
func (c Convention) ForDate(t time.Time) string {
	return c.Prefix + t.Format(c.layout()) + "." + c.ext()
}

// Pattern returns the glob matching every file of the convention.
func (c Convention) Pattern() string {
	return escapeMeta(c.Prefix) + "*." + escapeMeta(c.ext())
}

// Match reports whether name belongs to the convention.
func (c Convention) Match(name string) bool {
	ok, err := doublestar.Match(c.Pattern(), name)
	return err == nil && ok
}

// Count returns the number of matching regular files directly inside dir.
func (c Convention) Count(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && c.Match(e.Name()) {
			n++
		}
	}
	return n, nil
}

func (c Convention) layout() string {
	if c.DateLayout == "" {
		return "20060102"
	}
	return c.DateLayout
}

func (c Convention) ext() string {
	return strings.TrimPrefix(c.Extension, ".")
}

// escapeMeta backslash-escapes glob metacharacters so prefixes like
// "app[1]" match literally.
func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
