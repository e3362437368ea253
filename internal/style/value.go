// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package style

import (
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// lengthUnits are the dimension units accepted for min/max sizes.
var lengthUnits = map[string]bool{
	"px": true, "rem": true, "em": true, "vh": true, "vw": true,
	"vmin": true, "vmax": true, "ch": true,
}

// colorFunctions are the functional color notations accepted for
// background colors.
var colorFunctions = map[string]bool{
	"rgb(": true, "rgba(": true, "hsl(": true, "hsla(": true,
}

// token is a lexed CSS token with its raw text.
type token struct {
	tt   css.TokenType
	data string
}

// lex tokenizes a single CSS value, dropping surrounding whitespace.
// It reports false if the lexer hits an error before the end of input.
func lex(value string) ([]token, bool) {
	l := css.NewLexer(parse.NewInputString(value))
	var toks []token
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, false
			}
			break
		}
		toks = append(toks, token{tt: tt, data: string(data)})
	}
	for len(toks) > 0 && toks[0].tt == css.WhitespaceToken {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].tt == css.WhitespaceToken {
		toks = toks[:len(toks)-1]
	}
	return toks, len(toks) > 0
}

// validColor accepts a single hex color, a named color keyword, or an
// rgb()/rgba()/hsl()/hsla() function whose arguments are plain numbers.
// It returns the canonical text to emit.
func validColor(value string) (string, bool) {
	toks, ok := lex(value)
	if !ok {
		return "", false
	}

	if len(toks) == 1 {
		t := toks[0]
		switch t.tt {
		case css.HashToken:
			hex := strings.TrimPrefix(t.data, "#")
			switch len(hex) {
			case 3, 4, 6, 8:
			default:
				return "", false
			}
			for _, r := range hex {
				if !isHex(r) {
					return "", false
				}
			}
			return "#" + strings.ToLower(hex), true
		case css.IdentToken:
			for _, r := range t.data {
				if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
					return "", false
				}
			}
			return strings.ToLower(t.data), true
		}
		return "", false
	}

	fn := strings.ToLower(toks[0].data)
	if toks[0].tt != css.FunctionToken || !colorFunctions[fn] {
		return "", false
	}
	last := toks[len(toks)-1]
	if last.tt != css.RightParenthesisToken {
		return "", false
	}

	var b strings.Builder
	b.WriteString(fn)
	for _, t := range toks[1 : len(toks)-1] {
		switch t.tt {
		case css.NumberToken, css.PercentageToken:
			b.WriteString(t.data)
		case css.DimensionToken:
			if !strings.HasSuffix(strings.ToLower(t.data), "deg") {
				return "", false
			}
			b.WriteString(t.data)
		case css.CommaToken:
			b.WriteString(", ")
		case css.WhitespaceToken:
			// Separators are normalized by the comma case.
		case css.DelimToken:
			if t.data != "/" {
				return "", false
			}
			b.WriteString(" / ")
		default:
			return "", false
		}
	}
	b.WriteString(")")
	return b.String(), true
}

// validLength accepts a single dimension with a known unit, a percentage,
// a bare number (treated as pixels) or the keywords auto/none.
func validLength(value string) (string, bool) {
	toks, ok := lex(value)
	if !ok || len(toks) != 1 {
		return "", false
	}
	t := toks[0]
	switch t.tt {
	case css.DimensionToken:
		num, unit := splitDimension(t.data)
		if num == "" || !lengthUnits[strings.ToLower(unit)] {
			return "", false
		}
		return num + strings.ToLower(unit), true
	case css.PercentageToken:
		return t.data, true
	case css.NumberToken:
		if t.data == "0" {
			return "0", true
		}
		return t.data + "px", true
	case css.IdentToken:
		switch kw := strings.ToLower(t.data); kw {
		case "auto", "none":
			return kw, true
		}
	}
	return "", false
}

// splitDimension separates the numeric part of a dimension token from its unit.
func splitDimension(s string) (string, string) {
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == '-' || s[i] == '+') {
		i++
	}
	return s[:i], s[i:]
}

func isHex(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}
