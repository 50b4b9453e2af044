package quadfl

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
)

// call ::= name(call1, .., callN)

type parsedCall struct {
	sym  string
	args []*parsedCall
}

func stripSpaces(str string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			// if the character is a space, drop it
			return -1
		}
		// else keep it in the string
		return r
	}, str)
}

func parseCall(s string) (*parsedCall, error) {
	name, rest, foundOpen := strings.Cut(s, "(")
	f := &parsedCall{
		sym:  name,
		args: make([]*parsedCall, 0),
	}
	if !foundOpen {
		if strings.ContainsAny(name, "),") {
			return nil, fmt.Errorf("unexpected ')': '%s'", s)
		}
		if len(name) == 0 {
			return nil, fmt.Errorf("empty name not allowed: '%s'", s)
		}
		return f, nil
	}
	spl, err := splitArgs(rest)
	if err != nil {
		return nil, err
	}
	for _, call := range spl {
		ff, err := parseCall(call)
		if err != nil {
			return nil, err
		}
		f.args = append(f.args, ff)
	}
	return f, nil
}

// splitArgs expects ','-delimited list of calls, which ends with ')'
func splitArgs(argsStr string) ([]string, error) {
	ret := make([]string, 0)
	var buf bytes.Buffer
	level := 0
	for _, c := range []byte(argsStr) {
		if level < 0 {
			return nil, fmt.Errorf("unbalanced paranthesis: '%s'", argsStr)
		}
		switch c {
		case ',':
			if level == 0 {
				p := make([]byte, len(buf.Bytes()))
				copy(p, buf.Bytes())
				ret = append(ret, string(p))
				buf.Reset()
			} else {
				buf.WriteByte(c)
			}
		case '(':
			buf.WriteByte(c)
			level++
		case ')':
			level--
			if level >= 0 {
				buf.WriteByte(c)
			}
		default:
			buf.WriteByte(c)
		}
	}
	if level != -1 {
		return nil, fmt.Errorf("unclosed '(': '%s'", argsStr)
	}
	if len(buf.Bytes()) > 0 {
		p := make([]byte, len(buf.Bytes()))
		copy(p, buf.Bytes())
		ret = append(ret, string(p))
	}
	return ret, nil
}
