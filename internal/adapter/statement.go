package adapter

import "strings"

// readKeywords are the leading keywords that make a statement a read.
var readKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"PRAGMA":   true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
	"DESC":     true,
	"VALUES":   true,
	"TABLE":    true,
}

// IsReadStatement reports whether a statement returns rows, judged only by
// its first keyword after whitespace and leading comments. Anything not
// recognized is executed as a write or DDL statement. A data-modifying CTE
// ("WITH ... INSERT") is therefore run as a read.
func IsReadStatement(statement string) bool {
	return readKeywords[LeadingKeyword(statement)]
}

// LeadingKeyword returns the first word of a statement, upper-cased, skipping
// whitespace and leading "--" and "/* */" comments.
func LeadingKeyword(statement string) string {
	q := strings.TrimSpace(statement)
	for {
		if strings.HasPrefix(q, "--") {
			idx := strings.Index(q, "\n")
			if idx < 0 {
				return ""
			}
			q = strings.TrimSpace(q[idx+1:])
			continue
		}
		if strings.HasPrefix(q, "/*") {
			idx := strings.Index(q, "*/")
			if idx < 0 {
				return ""
			}
			q = strings.TrimSpace(q[idx+2:])
			continue
		}
		break
	}

	end := strings.IndexFunc(q, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_')
	})
	if end < 0 {
		end = len(q)
	}
	return strings.ToUpper(q[:end])
}

// QuoteIdentifier wraps name in the quote character q, doubling any q inside
// it. Relational dialects use '"', MySQL uses '`'.
func QuoteIdentifier(name string, q rune) string {
	s := string(q)
	return s + strings.ReplaceAll(name, s, s+s) + s
}
