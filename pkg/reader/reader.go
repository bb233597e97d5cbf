// Package reader implements the recursive-descent reader: source text in,
// cons-linked forms out, via the heap allocator. It mirrors
// original_source/rt_read.c's structure almost line for line, translated
// from C's exit(1)-on-error posture to returned *rterr.SourceError values.
package reader

import (
	"strconv"
	"strings"

	"slangrt/pkg/heap"
	"slangrt/pkg/rterr"
	"slangrt/pkg/rtvalue"
	"slangrt/pkg/symbol"
)

// SourceMap records, for each cons allocated while reading a list, the
// source location of that cons's car (spec.md §4.5). It is owned by the
// current module and must be traced as an extra GC root (spec.md §4.3.2);
// Heap.SourceMapKeys is wired to a SourceMap's Keys method for that.
type SourceMap struct {
	locs map[*rtvalue.Box]rterr.SourceLoc
	keys []rtvalue.Any
}

func NewSourceMap() *SourceMap {
	return &SourceMap{locs: make(map[*rtvalue.Box]rterr.SourceLoc)}
}

func (m *SourceMap) put(key rtvalue.Any, loc rterr.SourceLoc) {
	if key.Ref == nil || key.Ref.Box == nil {
		return
	}
	m.locs[key.Ref.Box] = loc
	m.keys = append(m.keys, key)
}

// Lookup returns the recorded source location for a cons-keyed Any, if
// any was recorded for it.
func (m *SourceMap) Lookup(key rtvalue.Any) (rterr.SourceLoc, bool) {
	if key.Ref == nil || key.Ref.Box == nil {
		return rterr.SourceLoc{}, false
	}
	loc, ok := m.locs[key.Ref.Box]
	return loc, ok
}

// Keys returns the full key set, for wiring into Heap.SourceMapKeys.
func (m *SourceMap) Keys() []rtvalue.Any { return m.keys }

func isUpper(ch byte) bool { return ch >= 'A' && ch <= 'Z' }
func isLower(ch byte) bool { return ch >= 'a' && ch <= 'z' }
func isAlpha(ch byte) bool { return isUpper(ch) || isLower(ch) }
func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }
func isAlphanum(ch byte) bool { return isAlpha(ch) || isDigit(ch) }

func isSymChar(ch byte) bool {
	switch ch {
	case '_', '-', '=', '+', '*', '/', '?', '!', '&', '%', '^', '~':
		return true
	default:
		return false
	}
}

// Reader owns a position and a source location over a single source
// string, and allocates its output forms through a Heap.
type Reader struct {
	h    *heap.Heap
	syms *symbol.Table
	sm   *SourceMap

	text string
	pos  int
	loc  rterr.SourceLoc
}

// New constructs a Reader over text, allocating through h and interning
// symbols through syms. sm may be nil if source locations need not be
// tracked.
func New(h *heap.Heap, syms *symbol.Table, sm *SourceMap, text string) *Reader {
	return &Reader{h: h, syms: syms, sm: sm, text: text}
}

func (r *Reader) errorf(format string, args ...any) error {
	return rterr.NewSourceError(r.loc, format, args...)
}

func (r *Reader) peek(offset int) byte {
	i := r.pos + offset
	if i < 0 || i >= len(r.text) {
		return 0
	}
	return r.text[i]
}

func (r *Reader) step() {
	r.loc.Col++
	r.pos++
}

// spacestep advances one position, treating \r, \n and \r\n as a single
// newline that resets the column and bumps the line (spec.md §6.4).
func (r *Reader) spacestep() {
	ch := r.peek(0)
	if ch == '\r' {
		if r.peek(1) != '\n' {
			r.loc.Line++
			r.loc.Col = 0
			r.pos++
			return
		}
	} else if ch == '\n' {
		r.loc.Line++
		r.loc.Col = 0
		r.pos++
		return
	}
	r.loc.Col++
	r.pos++
}

func (r *Reader) skipSpace() {
	for {
		switch r.peek(0) {
		case ' ', '\t', '\f', '\v', '\r', '\n':
			r.spacestep()
			continue
		case ';':
			for {
				r.spacestep()
				ch := r.peek(0)
				if ch == 0 || ch == '\n' || ch == '\r' {
					break
				}
			}
			continue
		default:
			return
		}
	}
}

func (r *Reader) expectDelim() error {
	switch r.peek(0) {
	case 0, ' ', '\t', '\f', '\v', '\r', '\n', '.', ':', '(', ')', '[', ']':
		return nil
	}
	return r.errorf("expected delimiter after expression")
}

var stringEscapes = map[byte]byte{
	'\'': '\'', '"': '"', '?': '?', '\\': '\\',
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

func (r *Reader) readString() (rtvalue.Any, error) {
	var sb strings.Builder
	for {
		ch := r.peek(0)
		switch {
		case ch == '"':
			r.step()
			return r.h.NewString(sb.String()), nil
		case ch == '\\':
			r.step()
			esc := r.peek(0)
			if esc == 0 {
				return rtvalue.Nil, r.errorf("unexpected end of input while reading string")
			}
			rep, ok := stringEscapes[esc]
			if !ok {
				return rtvalue.Nil, r.errorf("unexpected escape char: %c", esc)
			}
			sb.WriteByte(rep)
			r.step()
		case ch == 0:
			return rtvalue.Nil, r.errorf("unexpected end of input while reading string")
		case ch == '\r' || ch == '\n':
			r.spacestep()
			sb.WriteByte(ch)
		default:
			r.step()
			sb.WriteByte(ch)
		}
	}
}

func (r *Reader) readSymbol() (rtvalue.Any, error) {
	var sb strings.Builder
	for {
		ch := r.peek(0)
		if !isAlphanum(ch) && !isSymChar(ch) {
			if sb.Len() == 0 {
				return rtvalue.Nil, r.errorf("expected a symbol")
			}
			return r.syms.Intern(sb.String()), nil
		}
		sb.WriteByte(ch)
		r.step()
	}
}

func (r *Reader) readNumber() (rtvalue.Any, error) {
	start := r.pos
	for isDigit(r.peek(0)) || ((r.peek(0) == '+' || r.peek(0) == '-') && start == r.pos) {
		r.step()
	}
	if r.peek(0) != '.' {
		text := r.text[start:r.pos]
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return rtvalue.Nil, r.errorf("error parsing number: %v", err)
		}
		return rtvalue.NewI64(r.h.Registry(), v), nil
	}
	r.step() // consume '.'
	for isDigit(r.peek(0)) {
		r.step()
	}
	text := r.text[start:r.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return rtvalue.Nil, r.errorf("error parsing number: %v", err)
	}
	return rtvalue.NewF64(r.h.Registry(), v), nil
}

// readList reads forms up to and including the closing delimiter end,
// returning a nil-terminated cons chain and recording each cons's car
// location in the source map.
func (r *Reader) readList(end byte) (rtvalue.Any, error) {
	r.skipSpace()
	if r.peek(0) == end {
		r.step()
		return rtvalue.Nil, nil
	}
	origLoc := r.loc
	form, err := r.readForm()
	if err != nil {
		return rtvalue.Nil, err
	}
	rest, err := r.readList(end)
	if err != nil {
		return rtvalue.Nil, err
	}
	result := r.h.NewCons(form, rest)
	if r.sm != nil {
		r.sm.put(result, origLoc)
	}
	return result, nil
}

func (r *Reader) readForm() (rtvalue.Any, error) {
	r.skipSpace()
	reg := r.h.Registry()
	var result rtvalue.Any
	ch := r.peek(0)

	switch {
	case ch == '(':
		r.step()
		form, err := r.readList(')')
		if err != nil {
			return rtvalue.Nil, err
		}
		result = form
	case ch == '#':
		r.step()
		switch r.peek(0) {
		case 't':
			r.step()
			if err := r.expectDelim(); err != nil {
				return rtvalue.Nil, err
			}
			result = rtvalue.NewBool(reg, true)
		case 'f':
			r.step()
			if err := r.expectDelim(); err != nil {
				return rtvalue.Nil, err
			}
			result = rtvalue.NewBool(reg, false)
		default:
			return rtvalue.Nil, r.errorf("expected #t or #f")
		}
	case ch == '\'':
		r.step()
		form, err := r.readForm()
		if err != nil {
			return rtvalue.Nil, err
		}
		result = r.h.NewCons(r.syms.Intern("quote"), r.h.NewCons(form, rtvalue.Nil))
	case ch == '"':
		r.step()
		s, err := r.readString()
		if err != nil {
			return rtvalue.Nil, err
		}
		result = s
	case isAlpha(ch) || isSymChar(ch):
		s, err := r.readSymbol()
		if err != nil {
			return rtvalue.Nil, err
		}
		result = s
	case isDigit(ch) || ((ch == '+' || ch == '-') && isDigit(r.peek(1))):
		n, err := r.readNumber()
		if err != nil {
			return rtvalue.Nil, err
		}
		if err := r.expectDelim(); err != nil {
			return rtvalue.Nil, err
		}
		result = n
	default:
		return rtvalue.Nil, r.errorf("expected an expression")
	}

	for {
		r.skipSpace()
		ch = r.peek(0)
		if ch == '.' {
			r.step()
			r.skipSpace()
			sym, err := r.readSymbol()
			if err != nil {
				return rtvalue.Nil, err
			}
			result = r.h.NewCons(r.syms.Intern("."), r.h.NewCons(sym, r.h.NewCons(result, rtvalue.Nil)))
		} else if ch == '[' {
			r.step()
			list, err := r.readList(']')
			if err != nil {
				return rtvalue.Nil, err
			}
			result = r.h.NewCons(result, list)
		} else {
			break
		}
	}

	if ch == ':' {
		r.step()
		typeform, err := r.readForm()
		if err != nil {
			return rtvalue.Nil, err
		}
		result = r.h.NewCons(r.syms.Intern(":"), r.h.NewCons(result, r.h.NewCons(typeform, rtvalue.Nil)))
	}
	return result, nil
}

// ReadForm reads a single top-level form from the reader's source text.
func (r *Reader) ReadForm() (rtvalue.Any, error) {
	return r.readForm()
}

// ReadAll reads every top-level form in the source text, returning them
// in order.
func (r *Reader) ReadAll() ([]rtvalue.Any, error) {
	var forms []rtvalue.Any
	for {
		r.skipSpace()
		if r.pos >= len(r.text) {
			return forms, nil
		}
		form, err := r.readForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
}
