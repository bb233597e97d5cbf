// Package printer renders reader forms back to source text, enough to
// exercise the reader/printer round-trip invariant spec.md §8.1 calls
// out as testable.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"slangrt/pkg/heap"
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
	"slangrt/pkg/symbol"
)

var stringEscapes = map[byte]string{
	'"': `\"`, '\\': `\\`, '\n': `\n`, '\r': `\r`, '\t': `\t`,
	'\a': `\a`, '\b': `\b`, '\f': `\f`, '\v': `\v`,
}

// Print renders a single form as source text.
func Print(a rtvalue.Any) string {
	var sb strings.Builder
	write(&sb, a)
	return sb.String()
}

func write(sb *strings.Builder, a rtvalue.Any) {
	switch {
	case a.IsNil():
		sb.WriteString("()")
	case rtvalue.IsSymbol(a):
		text, _ := symbol.Text(a)
		sb.WriteString(text)
	case heap.IsString(a):
		writeString(sb, a)
	case rtvalue.IsCons(a):
		writeList(sb, a)
	default:
		writeScalar(sb, a)
	}
}

func writeString(sb *strings.Builder, a rtvalue.Any) {
	text, _ := heap.StringText(a)
	sb.WriteByte('"')
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if esc, ok := stringEscapes[ch]; ok {
			sb.WriteString(esc)
		} else {
			sb.WriteByte(ch)
		}
	}
	sb.WriteByte('"')
}

func writeList(sb *strings.Builder, a rtvalue.Any) {
	sb.WriteByte('(')
	first := true
	cur := a
	for rtvalue.IsCons(cur) {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		write(sb, rtvalue.ConsCar(cur))
		cur = rtvalue.ConsCdr(cur)
	}
	if !cur.IsNil() {
		sb.WriteString(" . ")
		write(sb, cur)
	}
	sb.WriteByte(')')
}

func writeScalar(sb *strings.Builder, a rtvalue.Any) {
	if a.Type == nil {
		sb.WriteString("()")
		return
	}
	switch a.Type.Kind {
	case rttype.KindBool:
		b, _ := rtvalue.ToBool(a)
		if b {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case rttype.KindSigned:
		v, _ := rtvalue.ToI64(a)
		sb.WriteString(strconv.FormatInt(v, 10))
	case rttype.KindUnsigned:
		v, _ := rtvalue.ToU64(a)
		sb.WriteString(strconv.FormatUint(v, 10))
	case rttype.KindReal:
		v, _ := rtvalue.ToF64(a)
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		fmt.Fprintf(sb, "#<%s>", a.Type.Desc)
	}
}
