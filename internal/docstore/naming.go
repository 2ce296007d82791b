package docstore

import "unicode"

// CamelCase renders a Go field name the way document properties are named in the store:
// the leading run of upper-case letters is lowered, except the last one when it starts
// the next word. FirstName -> firstName, ID -> id, HTTPServer -> httpServer, UserID -> userID.
func CamelCase(name string) string {
	if name == "" {
		return name
	}

	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		if i == 1 && !unicode.IsUpper(runes[i]) {
			break
		}

		hasNext := i+1 < len(runes)
		if i > 0 && hasNext && !unicode.IsUpper(runes[i+1]) {
			break
		}

		runes[i] = unicode.ToLower(runes[i])
	}

	return string(runes)
}
