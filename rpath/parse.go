package rpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/signadot/rbel/element"
)

var ErrSyntax = errors.New("rpath syntax error")

type segKind int

const (
	segName segKind = iota
	segWildcard
	segDescend
	segIndex
	segFilter
)

// Segment is one step of a compiled path.  Segments form a linked list.
type Segment struct {
	kind   segKind
	name   string
	index  int
	src    string
	filter Filter
	Next   *Segment
}

// String returns the path text of the segment chain starting at s.
func (s *Segment) String() string {
	var b strings.Builder
	for x := s; x != nil; x = x.Next {
		switch x.kind {
		case segName:
			b.WriteString(element.PathSegment(x.name))
		case segWildcard:
			b.WriteString(".*")
		case segDescend:
			b.WriteString("..")
			if x.Next != nil && x.Next.kind == segName && !element.NeedsQuote(x.Next.name) {
				b.WriteString(x.Next.name)
				x = x.Next
			} else if x.Next != nil && x.Next.kind == segWildcard {
				b.WriteString("*")
				x = x.Next
			}
		case segIndex:
			fmt.Fprintf(&b, "[%d]", x.index)
		case segFilter:
			fmt.Fprintf(&b, "[?(%s)]", x.src)
		}
	}
	return b.String()
}

type parser struct {
	src  string
	i    int
	opts *options
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d in %q: %s", ErrSyntax, p.i, p.src, fmt.Sprintf(format, args...))
}

func (p *parser) peek() byte {
	if p.i >= len(p.src) {
		return 0
	}
	return p.src[p.i]
}

func (p *parser) parse() (*Segment, error) {
	p.src = strings.TrimSpace(p.src)
	if !strings.HasPrefix(p.src, "$") {
		return nil, p.errorf("path must start with $")
	}
	p.i = 1
	var head, tail *Segment
	add := func(s *Segment) {
		if head == nil {
			head = s
		} else {
			tail.Next = s
		}
		tail = s
	}
	for p.i < len(p.src) {
		switch p.peek() {
		case '.':
			p.i++
			if p.peek() == '.' {
				p.i++
				add(&Segment{kind: segDescend})
				// "$..name", "$..*" and "$..[...]" continue without a dot.
				if p.i < len(p.src) && p.peek() != '.' && p.peek() != '[' {
					seg, err := p.parseDotted()
					if err != nil {
						return nil, err
					}
					add(seg)
				}
				continue
			}
			if p.peek() == '[' {
				continue
			}
			seg, err := p.parseDotted()
			if err != nil {
				return nil, err
			}
			add(seg)
		case '[':
			seg, err := p.parseBracket()
			if err != nil {
				return nil, err
			}
			add(seg)
		default:
			return nil, p.errorf("unexpected %q", p.peek())
		}
	}
	return head, nil
}

func (p *parser) parseDotted() (*Segment, error) {
	switch c := p.peek(); c {
	case 0:
		return nil, p.errorf("missing name")
	case '*':
		p.i++
		return &Segment{kind: segWildcard}, nil
	case '\'', '"':
		name, err := p.parseQuoted()
		if err != nil {
			return nil, err
		}
		return &Segment{kind: segName, name: name}, nil
	}
	start := p.i
	for p.i < len(p.src) && p.src[p.i] != '.' && p.src[p.i] != '[' {
		p.i++
	}
	name := p.src[start:p.i]
	if name == "" {
		return nil, p.errorf("missing name")
	}
	return &Segment{kind: segName, name: name}, nil
}

func (p *parser) parseQuoted() (string, error) {
	q := p.peek()
	p.i++
	start := p.i
	for p.i < len(p.src) && p.src[p.i] != q {
		p.i++
	}
	if p.i >= len(p.src) {
		return "", p.errorf("unterminated quote")
	}
	name := p.src[start:p.i]
	p.i++
	return name, nil
}

func (p *parser) parseBracket() (*Segment, error) {
	p.i++ // [
	var seg *Segment
	switch c := p.peek(); {
	case c == '*':
		p.i++
		seg = &Segment{kind: segWildcard}
	case c == '\'' || c == '"':
		name, err := p.parseQuoted()
		if err != nil {
			return nil, err
		}
		seg = &Segment{kind: segName, name: name}
	case c == '?':
		src, err := p.parseFilterSource()
		if err != nil {
			return nil, err
		}
		if p.opts.filter == nil {
			return nil, p.errorf("filter expressions are not enabled")
		}
		f, err := p.opts.filter(src)
		if err != nil {
			return nil, fmt.Errorf("%w: filter %q: %w", ErrSyntax, src, err)
		}
		seg = &Segment{kind: segFilter, src: src, filter: f}
	case c >= '0' && c <= '9':
		start := p.i
		for p.i < len(p.src) && p.src[p.i] >= '0' && p.src[p.i] <= '9' {
			p.i++
		}
		n, err := strconv.Atoi(p.src[start:p.i])
		if err != nil {
			return nil, p.errorf("bad index: %v", err)
		}
		seg = &Segment{kind: segIndex, index: n}
	default:
		return nil, p.errorf("unexpected %q in brackets", c)
	}
	if p.peek() != ']' {
		return nil, p.errorf("expected ]")
	}
	p.i++
	return seg, nil
}

// parseFilterSource reads "?(...)" up to the balancing paren, honoring quotes.
func (p *parser) parseFilterSource() (string, error) {
	p.i++ // ?
	if p.peek() != '(' {
		return "", p.errorf("expected ( after ?")
	}
	p.i++
	start := p.i
	depth := 1
	var quote byte
	for ; p.i < len(p.src); p.i++ {
		c := p.src[p.i]
		if quote != 0 {
			if c == '\\' {
				p.i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				src := strings.TrimSpace(p.src[start:p.i])
				p.i++
				return src, nil
			}
		}
	}
	return "", p.errorf("unbalanced filter")
}
