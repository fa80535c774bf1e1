// Package text escapes and normalizes user-supplied text before it is embedded
// into bot configurations or sent to Telegram as MarkdownV2.
package text

import (
	"regexp"
	"strings"
)

var (
	// markdownReplacer maps every MarkdownV2-significant character to its
	// backslash-escaped form. strings.Replacer scans the input once, so the
	// backslashes it inserts are never escaped a second time.
	markdownReplacer = strings.NewReplacer(
		`\`, `\\`,
		"_", `\_`,
		"*", `\*`,
		"[", `\[`,
		"]", `\]`,
		"(", `\(`,
		")", `\)`,
		"~", `\~`,
		"`", "\\`",
		">", `\>`,
		"#", `\#`,
		"+", `\+`,
		"-", `\-`,
		"=", `\=`,
		"|", `\|`,
		"{", `\{`,
		"}", `\}`,
		".", `\.`,
		"!", `\!`,
		`"`, `\"`,
		"'", `\'`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)

	// unicodeReplacer normalizes invisible and exotic whitespace characters
	// that users paste from other apps.
	unicodeReplacer = strings.NewReplacer(
		"\u2060", "", // Word Joiner
		"\uFEFF", "", // Byte Order Mark
		"\u00AD", "", // Soft Hyphen
		"\u200E", "", // Left-to-Right Mark
		"\u200F", "", // Right-to-Left Mark
		"\u2028", "\n", // Line Separator
		"\u2029", "\n", // Paragraph Separator
		"\u200B", " ", // Zero Width Space
		"\u200C", " ", // Zero Width Non-Joiner
		"\u2009", " ", // Thin Space
		"\u200A", " ", // Hair Space
		"\u202F", " ", // Narrow No-Break Space
		"\u3000", " ", // Ideographic Space
		"\u00A0", " ", // Non-breaking Space
	)

	// controlCharsRegex matches ASCII control characters (including DEL 0x7F) except tab and newline.
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
)

// allowedPunctuation is the non-letter part of the free-text allow-list.
const allowedPunctuation = " ,.!?+-*()[]{}:;@#$%^&_=<>~`"
