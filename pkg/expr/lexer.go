// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expr

import (
	"fmt"
	"strings"
)

type tokenKind uint8

const (
	tEOF tokenKind = iota
	tLParen
	tRParen
	tComma
	tPlus
	tMinus
	tStar
	tSlash
	tEq
	tNe
	tLt
	tLe
	tGt
	tGe
	tIdent
	tNumber
	tString
)

type token struct {
	kind tokenKind
	text string
	ival int64
	fval float64
	isFloat bool
}

type lexer struct {
	src []byte
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: []byte(src)} }

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		break
	}
}

// next returns the next token. The parser collects every token up front
// and looks ahead through that slice, so the lexer never pushes a token
// back.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tEOF}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tLParen}, nil
	case c == ')':
		l.pos++
		return token{kind: tRParen}, nil
	case c == ',':
		l.pos++
		return token{kind: tComma}, nil
	case c == '+':
		l.pos++
		return token{kind: tPlus}, nil
	case c == '-':
		l.pos++
		return token{kind: tMinus}, nil
	case c == '*':
		l.pos++
		return token{kind: tStar}, nil
	case c == '/':
		l.pos++
		return token{kind: tSlash}, nil
	case c == '=':
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
		}
		return token{kind: tEq}, nil
	case c == '!':
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
			return token{kind: tNe}, nil
		}
		return token{}, fmt.Errorf("expr: unexpected '!' at %d", l.pos-1)
	case c == '<':
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
			return token{kind: tLe}, nil
		}
		return token{kind: tLt}, nil
	case c == '>':
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
			return token{kind: tGe}, nil
		}
		return token{kind: tGt}, nil
	case c == '\'' || c == '"':
		return l.lexString(c)
	case c >= '0' && c <= '9':
		return l.lexNumber()
	case isIdentStart(c):
		return l.lexIdent()
	default:
		return token{}, fmt.Errorf("expr: unexpected character %q at %d", c, l.pos)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tIdent, text: string(l.src[start:l.pos])}, nil
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			isFloat = true
			for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
				l.pos++
			}
		} else {
			l.pos = save
		}
	}
	text := string(l.src[start:l.pos])
	tok := token{kind: tNumber, text: text, isFloat: isFloat}
	if isFloat {
		var f float64
		_, err := fmt.Sscanf(text, "%g", &f)
		if err != nil {
			return token{}, fmt.Errorf("expr: invalid number %q", text)
		}
		tok.fval = f
	} else {
		var i int64
		_, err := fmt.Sscanf(text, "%d", &i)
		if err != nil {
			return token{}, fmt.Errorf("expr: invalid number %q", text)
		}
		tok.ival = i
	}
	return tok, nil
}

func (l *lexer) lexString(quote byte) (token, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("expr: unterminated string literal")
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			break
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{kind: tString, text: sb.String()}, nil
}
