package scan

import "strings"

// StripComments removes line and block comment content from s while
// preserving line breaks, so statement boundaries survive the pass.
// Block comments do not nest: the first */ closes the innermost open
// block, and an unterminated block consumes to end of input.
func StripComments(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i < len(s) && s[i] != '\n' {
					i++
				}
				continue
			case '*':
				i += 2
				for i < len(s) {
					if s[i] == '\n' {
						out.WriteByte('\n')
						i++
						continue
					}
					if s[i] == '*' && i+1 < len(s) && s[i+1] == '/' {
						i += 2
						break
					}
					i++
				}
				continue
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}
