package text

import "strings"

// Escape escapes s for Telegram MarkdownV2. Newline, carriage return and tab
// become the two-character sequences \n, \r and \t so the result fits on a
// single line of a configuration document; ExpandControl turns them back at
// render time. The empty string escapes to the empty string.
//
// Escape is not idempotent: callers escape user text exactly once, when it is
// ingested.
func Escape(s string) string {
	if s == "" {
		return ""
	}
	return markdownReplacer.Replace(s)
}

// ExpandControl converts the \n, \r and \t sequences produced by Escape back
// into real control characters. Every other backslash pair is copied as is,
// so an escaped backslash followed by "n" stays an escaped backslash.
func ExpandControl(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}

		next := s[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(c)
			b.WriteByte(next)
		}
		i++
	}

	return b.String()
}

// Render prepares arbitrary plain text for a MarkdownV2 message.
func Render(s string) string {
	return ExpandControl(Escape(s))
}
