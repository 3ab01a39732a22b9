// Package search implements the list search syntax.
//
//	nguyen van          contains "nguyen van"
//	"Nguyễn Văn An"     whole-value match
//	an AND hà nội       both must match
//	an OR binh          either may match
//	an NOT nghi         first matches, second does not
//	ng*n, b?nh          wildcards (* any run, ? one rune)
//	phong_ban:kế toán   match only the named field
//
// Operators are evaluated left to right with no precedence. Matching is case
// insensitive by default and can ignore Vietnamese diacritics.
package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TokenType classifies a parsed token.
type TokenType string

const (
	TokenExact    TokenType = "exact"
	TokenAnd      TokenType = "and"
	TokenOr       TokenType = "or"
	TokenNot      TokenType = "not"
	TokenWildcard TokenType = "wildcard"
	TokenField    TokenType = "field"
	TokenText     TokenType = "text"
)

// Token is one element of a parsed query.
type Token struct {
	Type  TokenType `json:"type"`
	Value string    `json:"value"`
	Field string    `json:"field,omitempty"`
}

// IsOperator reports whether the token is AND, OR or NOT.
func (t Token) IsOperator() bool {
	return t.Type == TokenAnd || t.Type == TokenOr || t.Type == TokenNot
}

var fieldToken = regexp.MustCompile(`^(\w+):(.+)$`)

var operators = []struct {
	word string
	typ  TokenType
}{
	{" AND ", TokenAnd},
	{" OR ", TokenOr},
	{" NOT ", TokenNot},
}

// Parse splits a query into tokens. An unterminated quote runs to the end
// of the query.
func Parse(query string) []Token {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	var (
		tokens   []Token
		current  strings.Builder
		inQuotes bool
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			tokens = append(tokens, parseTerm(s))
		}
		current.Reset()
	}

	for i := 0; i < len(query); {
		c := query[i]

		if c == '"' {
			if inQuotes {
				if s := strings.TrimSpace(current.String()); s != "" {
					tokens = append(tokens, Token{Type: TokenExact, Value: s})
				}
				current.Reset()
			} else {
				flush()
			}
			inQuotes = !inQuotes
			i++
			continue
		}

		if !inQuotes && strings.TrimSpace(current.String()) != "" {
			if op, n := operatorAt(query[i:]); n > 0 {
				flush()
				tokens = append(tokens, Token{Type: op, Value: strings.ToUpper(string(op))})
				i += n
				continue
			}
		}

		current.WriteByte(c)
		i++
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		if inQuotes {
			tokens = append(tokens, Token{Type: TokenExact, Value: s})
		} else {
			tokens = append(tokens, parseTerm(s))
		}
	}
	return tokens
}

func operatorAt(s string) (TokenType, int) {
	for _, op := range operators {
		if len(s) >= len(op.word) && strings.EqualFold(s[:len(op.word)], op.word) {
			return op.typ, len(op.word)
		}
	}
	return "", 0
}

func parseTerm(term string) Token {
	if m := fieldToken.FindStringSubmatch(term); m != nil {
		return Token{Type: TokenField, Field: m[1], Value: m[2]}
	}
	if strings.ContainsAny(term, "*?") {
		return Token{Type: TokenWildcard, Value: term}
	}
	return Token{Type: TokenText, Value: term}
}

// Matcher evaluates tokens against text.
type Matcher struct {
	CaseSensitive bool

	// FoldDiacritics compares text with Vietnamese marks removed.
	FoldDiacritics bool
}

// Default matches case-insensitively and ignores diacritics.
var Default = Matcher{FoldDiacritics: true}

func (m Matcher) normalize(s string) string {
	if m.FoldDiacritics {
		s = Fold(s)
	}
	if !m.CaseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

// Match reports whether text matches a single non-operator token. Field
// tokens match on their value; use EvaluateRecord to scope them.
func (m Matcher) Match(text string, tok Token) bool {
	t := m.normalize(text)
	v := m.normalize(tok.Value)

	switch tok.Type {
	case TokenExact:
		return t == v
	case TokenWildcard:
		return wildcardRegexp(v).MatchString(t)
	case TokenText, TokenField:
		return strings.Contains(t, v)
	default:
		return false
	}
}

func wildcardRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// Evaluate reports whether text satisfies query. An empty query matches.
func (m Matcher) Evaluate(query, text string) bool {
	return m.evaluate(Parse(query), func(tok Token) bool { return m.Match(text, tok) })
}

// EvaluateRecord evaluates query against a record. Field tokens match the
// named key; other tokens match when any of fields matches.
func (m Matcher) EvaluateRecord(query string, record map[string]any, fields []string) bool {
	return m.EvaluateTokens(Parse(query), record, fields)
}

// EvaluateTokens is EvaluateRecord over already parsed tokens.
func (m Matcher) EvaluateTokens(tokens []Token, record map[string]any, fields []string) bool {
	return m.evaluate(tokens, func(tok Token) bool {
		if tok.Type == TokenField {
			v, ok := record[tok.Field]
			return ok && v != nil && m.Match(Stringify(v), tok)
		}
		for _, f := range fields {
			if v, ok := record[f]; ok && v != nil && m.Match(Stringify(v), tok) {
				return true
			}
		}
		return false
	})
}

func (m Matcher) evaluate(tokens []Token, match func(Token) bool) bool {
	result := true
	var op TokenType

	for _, tok := range tokens {
		if tok.IsOperator() {
			op = tok.Type
			continue
		}
		ok := match(tok)
		switch op {
		case TokenOr:
			result = result || ok
		case TokenNot:
			result = result && !ok
		default:
			result = result && ok
		}
		op = ""
	}
	return result
}

// Evaluate evaluates query against text with the Default matcher.
func Evaluate(query, text string) bool {
	return Default.Evaluate(query, text)
}

// Fold removes Vietnamese diacritics: "Đặng Thị Hà" → "Dang Thi Ha".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}
