package services

import "strings"

// NormalizePhone strips the relay channel prefix and formatting so phones
// from the relay match the stored ones.
func NormalizePhone(raw string) string {
	p := strings.TrimSpace(raw)
	if i := strings.IndexByte(p, ':'); i >= 0 {
		p = p[i+1:]
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, p)
}
