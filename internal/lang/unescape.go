package lang

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	errMalformedLiteral = errors.New("malformed string literal")
	errFormattedLiteral = errors.New("formatted string literal has no constant value")
)

// escapeDialect captures the differences between backslash escape rules.
type escapeDialect struct {
	bell        bool // \a is BEL
	longUnicode bool // \UXXXXXXXX
	bracedHex   bool // \u{X...}
	keepUnknown bool // unknown escapes keep their backslash

	// namedEscapes marks \N{...} as valid syntax. Character names are not
	// looked up: a literal containing one is rejected, leaving the docstring empty.
	namedEscapes bool
}

var (
	pythonEscapes = escapeDialect{bell: true, longUnicode: true, keepUnknown: true, namedEscapes: true}
	jsEscapes     = escapeDialect{bracedHex: true}
)

// unescapePython evaluates a Python string literal, including prefixes
// and triple quotes. Formatted strings are rejected.
func unescapePython(lit string) (string, error) {
	i := 0
	raw := false
	for i < len(lit) && strings.IndexByte("rRbBuUfF", lit[i]) >= 0 {
		switch lit[i] {
		case 'r', 'R':
			raw = true
		case 'f', 'F':
			return "", errFormattedLiteral
		}
		i++
	}
	inner, err := stripQuotes(lit[i:], `"""`, `'''`, `"`, `'`)
	if err != nil {
		return "", err
	}
	if raw {
		return inner, nil
	}
	return decodeEscapes(inner, pythonEscapes)
}

// unescapeJavaScript evaluates a quoted JavaScript string literal.
func unescapeJavaScript(lit string) (string, error) {
	inner, err := stripQuotes(lit, `"`, `'`)
	if err != nil {
		return "", err
	}
	return decodeEscapes(inner, jsEscapes)
}

func stripQuotes(lit string, quotes ...string) (string, error) {
	for _, q := range quotes {
		if len(lit) >= 2*len(q) && strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) {
			return lit[len(q) : len(lit)-len(q)], nil
		}
	}
	return "", errMalformedLiteral
}

func decodeEscapes(s string, d escapeDialect) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errMalformedLiteral
		}
		switch e := s[i]; e {
		case '\n':
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'a':
			if d.bell {
				b.WriteByte('\a')
			} else {
				b.WriteByte('a')
			}
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		case 'x':
			r, n, err := hexRune(s[i+1:], 2)
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += n
		case 'u':
			if d.bracedHex && i+1 < len(s) && s[i+1] == '{' {
				end := strings.IndexByte(s[i+1:], '}')
				if end < 0 {
					return "", errMalformedLiteral
				}
				r, _, err := hexRune(s[i+2:i+1+end], end-1)
				if err != nil {
					return "", err
				}
				b.WriteRune(r)
				i += end + 1
				continue
			}
			r, n, err := hexRune(s[i+1:], 4)
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += n
		case 'U':
			if !d.longUnicode {
				b.WriteByte('U')
				continue
			}
			r, n, err := hexRune(s[i+1:], 8)
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += n
		case 'N':
			if d.namedEscapes {
				return "", errMalformedLiteral
			}
			b.WriteByte('N')
		default:
			if d.keepUnknown {
				b.WriteByte('\\')
			}
			b.WriteByte(e)
		}
	}
	return b.String(), nil
}

func hexRune(s string, n int) (rune, int, error) {
	if n <= 0 || len(s) < n {
		return 0, 0, errMalformedLiteral
	}
	v, err := strconv.ParseUint(s[:n], 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, 0, errMalformedLiteral
	}
	return rune(v), n, nil
}
