package strx

// Coalesce returns s if non-empty, otherwise d.
func Coalesce(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
