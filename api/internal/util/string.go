package util

import (
	"regexp"
	"strings"
)

// Модель иногда заворачивает JSON в ```json ... ``` несмотря на инструкцию.
var codeFenceRe = regexp.MustCompile("```(?i:json)?[ \t]*\r?\n?")

// StripCodeFences removes every Markdown fence marker and trims the result.
func StripCodeFences(s string) string {
	return strings.TrimSpace(codeFenceRe.ReplaceAllString(s, ""))
}

// Truncate обрезает строку до n байт, не разрывая руну.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
