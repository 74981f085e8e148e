package conversion

import "strings"

// JoinOptions controls JoinStrings.
type JoinOptions struct {
	Delimiter    string
	OmitEmpty    bool
	LeftClosure  string // written before each part
	RightClosure string // written after each part
}

// JoinStrings joins parts, enclosing each one in the configured closures.
// The result is built with a single allocation.
func JoinStrings(parts []string, opts JoinOptions) string {
	entries, size := 0, 0
	for _, p := range parts {
		if opts.OmitEmpty && p == "" {
			continue
		}
		size += len(p)
		entries++
	}
	if entries == 0 {
		return ""
	}
	size += entries*(len(opts.LeftClosure)+len(opts.RightClosure)) + (entries-1)*len(opts.Delimiter)

	var b strings.Builder
	b.Grow(size)
	written := 0
	for _, p := range parts {
		if opts.OmitEmpty && p == "" {
			continue
		}
		if written > 0 {
			b.WriteString(opts.Delimiter)
		}
		b.WriteString(opts.LeftClosure)
		b.WriteString(p)
		b.WriteString(opts.RightClosure)
		written++
	}
	return b.String()
}

// EmptyPartsTreat specifies the role of empty parts when splitting strings.
type EmptyPartsTreat int

const (
	// Keep keeps empty parts.
	Keep EmptyPartsTreat = iota
	// Omit drops empty parts.
	Omit
	// Merge drops empty parts but joins the parts around them using the delimiter.
	Merge
)

// SplitString splits s at delimiter. maxParts <= 0 means unlimited; once
// the limit is reached the remainder of s becomes the last part.
// A trailing delimiter does not produce a trailing empty part.
func SplitString(s, delimiter string, treat EmptyPartsTreat, maxParts int) []string {
	if s == "" {
		return nil
	}
	if delimiter == "" {
		return []string{s}
	}

	maxParts--
	var res []string
	merge := false
	for i, end := 0, len(s); i < end; {
		delimPos := strings.Index(s[i:], delimiter)
		if delimPos >= 0 {
			delimPos += i
		}
		if !merge && maxParts >= 0 && len(res) == maxParts {
			if delimPos == i && treat == Merge && len(res) > 0 {
				merge = true
				i = delimPos + len(delimiter)
				continue
			}
			delimPos = -1
		}
		if delimPos < 0 {
			delimPos = end
		}

		switch {
		case treat == Keep || i != delimPos:
			if merge {
				res[len(res)-1] += delimiter + s[i:delimPos]
				merge = false
			} else {
				res = append(res, s[i:delimPos])
			}
		case treat == Merge:
			if len(res) > 0 {
				merge = true
			}
		}
		i = delimPos + len(delimiter)
	}
	return res
}

// TruncateString cuts s at the first occurrence of term.
func TruncateString(s string, term byte) string {
	if i := strings.IndexByte(s, term); i >= 0 {
		return s[:i]
	}
	return s
}
