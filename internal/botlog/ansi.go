package botlog

import "regexp"

var ansiRe = regexp.MustCompile(`[\x1b\x{9b}][\[()#;?]*(?:[0-9]{1,4}(?:;[0-9]{0,4})*)?[0-9A-ORZcf-nqry=><]`)

// StripANSI removes terminal colour and cursor sequences.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
