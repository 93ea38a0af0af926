package vcf

import "strings"

// SplitPropertyList splits the body of a structured metadata line
// (the text between < and >) on commas that are not inside a double-quoted
// span. Backslash escapes inside quotes are kept verbatim.
func SplitPropertyList(text string) ([]string, error) {
	var (
		parts   []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if inQuote {
				i++ // skip the escaped character
			}
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, formatErrorf("unmatched quote in %q", text)
	}
	return append(parts, text[start:]), nil
}

// JoinPropertyList is the inverse of SplitPropertyList.
func JoinPropertyList(props []string) string {
	return strings.Join(props, ",")
}

// SplitKeyValue splits a property on its first '='.
func SplitKeyValue(prop string) (key, value string, err error) {
	idx := strings.IndexByte(prop, '=')
	if idx < 0 {
		return "", "", formatErrorf("property %q has no '='", prop)
	}
	return prop[:idx], prop[idx+1:], nil
}

// Quote wraps s in double quotes.
func Quote(s string) string {
	return `"` + s + `"`
}

// Unquote removes surrounding double quotes if both are present.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// IsQuoted reports whether s is wrapped in double quotes.
func IsQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// UnwrapAngle removes the angle brackets around a structured metadata value.
func UnwrapAngle(s string) (string, error) {
	if len(s) < 2 || s[0] != '<' || s[len(s)-1] != '>' {
		return "", formatErrorf("value %q is not enclosed in angle brackets", s)
	}
	return s[1 : len(s)-1], nil
}

// isAngleWrapped reports whether s looks like <...>.
func isAngleWrapped(s string) bool {
	return len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>'
}

// parseProperties splits a structured metadata body into ordered key/value
// pairs.
func parseProperties(body string) ([]Property, error) {
	parts, err := SplitPropertyList(body)
	if err != nil {
		return nil, err
	}
	props := make([]Property, 0, len(parts))
	for _, part := range parts {
		key, value, err := SplitKeyValue(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		props = append(props, Property{Key: key, Value: value})
	}
	return props, nil
}
