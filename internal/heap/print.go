package heap

import (
	"bytes"
	"fmt"
	"strconv"
	"unsafe"
)

// Print renders v the way spec §4.A requires: numbers without a fractional
// part print as integers, all other numbers print at four decimal digits,
// and heap objects print a type-tagged summary. Map and Udata defer to a
// MetaOps print hook when one is installed.
func Print(v Value) string {
	switch {
	case IsNull(v):
		return "null"
	case IsBool(v):
		if AsBool(v) {
			return "true"
		}
		return "false"
	case IsNumber(v):
		return printNumber(AsNumber(v))
	case IsPointer(v):
		return printObject(object(v))
	}
	return "<unknown>"
}

func printNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func printObject(o *Object) string {
	switch o.Kind {
	case KindString:
		s := (*String)(unsafe.Pointer(o))
		return string(s.Bytes[:s.Length])
	case KindList:
		l := (*List)(unsafe.Pointer(o))
		var b bytes.Buffer
		b.WriteByte('[')
		for i := 0; i < l.Size; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Print(l.Data[i]))
		}
		b.WriteByte(']')
		return b.String()
	case KindMap:
		m := (*Map)(unsafe.Pointer(o))
		if m.MetaOps != nil && m.MetaOps.Print != nil {
			if s, err := m.MetaOps.Print(boxPointer(&m.Object)); err == nil {
				return s
			}
		}
		var b bytes.Buffer
		b.WriteByte('{')
		first := true
		for i := range m.Slots {
			s := &m.Slots[i]
			if !s.Used || s.Deleted {
				continue
			}
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, "%s: %s", printObject(&s.Key.Object), Print(s.Value))
		}
		b.WriteByte('}')
		return b.String()
	case KindProto:
		p := (*Proto)(unsafe.Pointer(o))
		return fmt.Sprintf("<proto %s>", p.Name)
	case KindClosure:
		c := (*Closure)(unsafe.Pointer(o))
		name := "?"
		if c.Proto != nil {
			name = c.Proto.Name
		}
		return fmt.Sprintf("<closure %s>", name)
	case KindMethod:
		me := (*Method)(unsafe.Pointer(o))
		return fmt.Sprintf("<method %s>", me.Name)
	case KindUdata:
		u := (*Udata)(unsafe.Pointer(o))
		if u.Meta != nil && u.Meta.Print != nil {
			if s, err := u.Meta.Print(boxPointer(&u.Object)); err == nil {
				return s
			}
		}
		return fmt.Sprintf("<udata %s>", u.Name)
	case KindIterator:
		return "<iterator>"
	case KindModule:
		mod := (*Module)(unsafe.Pointer(o))
		return fmt.Sprintf("<module %s>", mod.Path)
	case KindComponent:
		return "<component>"
	case KindLoop:
		l := (*Loop)(unsafe.Pointer(o))
		return fmt.Sprintf("<loop %d..%d:%d>", l.Start, l.End, l.Step)
	case KindLoopIterator:
		return "<loop_iterator>"
	}
	return "<object>"
}

// Equal implements spec §4.A equality: bitwise for primitives, pointer
// identity for interned strings, content comparison for non-interned
// strings, and structural (recursive) comparison for List/Map.
func Equal(a, b Value) bool {
	if !IsPointer(a) || !IsPointer(b) {
		return EqualPrimitive(a, b)
	}
	oa, ob := object(a), object(b)
	if oa == ob {
		return true
	}
	if oa.Kind != ob.Kind {
		return false
	}
	switch oa.Kind {
	case KindString:
		sa := (*String)(unsafe.Pointer(oa))
		sb := (*String)(unsafe.Pointer(ob))
		if sa.Interned && sb.Interned {
			return false // distinct interned pointers are distinct strings
		}
		return bytes.Equal(sa.Bytes[:sa.Length], sb.Bytes[:sb.Length])
	case KindList:
		la := (*List)(unsafe.Pointer(oa))
		lb := (*List)(unsafe.Pointer(ob))
		if la.Size != lb.Size {
			return false
		}
		for i := 0; i < la.Size; i++ {
			if !Equal(la.Data[i], lb.Data[i]) {
				return false
			}
		}
		return true
	case KindMap:
		ma := (*Map)(unsafe.Pointer(oa))
		mb := (*Map)(unsafe.Pointer(ob))
		if ma.LiveCnt != mb.LiveCnt {
			return false
		}
		for i := range ma.Slots {
			s := &ma.Slots[i]
			if !s.Used || s.Deleted {
				continue
			}
			v, ok := MapGet(mb, s.Key)
			if !ok || !Equal(v, s.Value) {
				return false
			}
		}
		return true
	}
	return false
}

// CompareStrings implements spec §4.A's lexicographic byte ordering.
func CompareStrings(a, b *String) int {
	return bytes.Compare(a.Bytes[:a.Length], b.Bytes[:b.Length])
}

