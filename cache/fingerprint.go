package cache

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// maxFingerprintDepth bounds the walk so cyclic arguments terminate.
const maxFingerprintDepth = 16

// Kind tags keep values of different shapes from colliding trivially.
const (
	tagNil byte = iota
	tagBool
	tagInt
	tagUint
	tagFloat
	tagComplex
	tagString
	tagSeq
	tagMap
	tagStruct
	tagPtr
	tagFunc
	tagOpaque
	tagDeep
)

// fingerprinter writes a structural hash of argument values.
//
// The walk mirrors reflect.DeepEqual: pointers and interfaces are followed,
// slices and arrays hash element-wise, and map entries are combined without
// regard to iteration order. Deep-equal values therefore always produce the
// same fingerprint. The converse does not hold; Key.Equal settles ties.
type fingerprinter struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newFingerprinter() *fingerprinter {
	return &fingerprinter{d: xxhash.New()}
}

func (f *fingerprinter) sum() uint64 {
	return f.d.Sum64()
}

func (f *fingerprinter) tag(t byte) {
	f.buf[0] = t
	_, _ = f.d.Write(f.buf[:1])
}

func (f *fingerprinter) u64(v uint64) {
	binary.LittleEndian.PutUint64(f.buf[:], v)
	_, _ = f.d.Write(f.buf[:])
}

func (f *fingerprinter) float(v float64) {
	// DeepEqual treats 0 and -0 as equal.
	if v == 0 {
		v = 0
	}
	f.u64(math.Float64bits(v))
}

func (f *fingerprinter) value(v reflect.Value, depth int) {
	if !v.IsValid() {
		f.tag(tagNil)
		return
	}
	if depth > maxFingerprintDepth {
		f.tag(tagDeep)
		f.u64(uint64(v.Kind()))
		return
	}

	switch v.Kind() {
	case reflect.Bool:
		f.tag(tagBool)
		if v.Bool() {
			f.u64(1)
		} else {
			f.u64(0)
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.tag(tagInt)
		f.u64(uint64(v.Int()))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f.tag(tagUint)
		f.u64(v.Uint())

	case reflect.Float32, reflect.Float64:
		f.tag(tagFloat)
		f.float(v.Float())

	case reflect.Complex64, reflect.Complex128:
		f.tag(tagComplex)
		c := v.Complex()
		f.float(real(c))
		f.float(imag(c))

	case reflect.String:
		f.tag(tagString)
		_, _ = f.d.WriteString(v.String())

	case reflect.Slice, reflect.Array:
		f.tag(tagSeq)
		n := v.Len()
		f.u64(uint64(n))
		for i := 0; i < n; i++ {
			f.value(v.Index(i), depth+1)
		}

	case reflect.Map:
		f.tag(tagMap)
		f.u64(uint64(v.Len()))
		var acc uint64
		iter := v.MapRange()
		for iter.Next() {
			sub := newFingerprinter()
			sub.value(iter.Key(), depth+1)
			sub.value(iter.Value(), depth+1)
			acc += sub.sum()
		}
		f.u64(acc)

	case reflect.Struct:
		f.tag(tagStruct)
		n := v.NumField()
		f.u64(uint64(n))
		for i := 0; i < n; i++ {
			f.value(v.Field(i), depth+1)
		}

	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			f.tag(tagNil)
			return
		}
		f.tag(tagPtr)
		f.value(v.Elem(), depth+1)

	case reflect.Func:
		// Non-nil funcs are never deep-equal, so only nil-ness matters.
		f.tag(tagFunc)
		if v.IsNil() {
			f.u64(0)
		} else {
			f.u64(1)
		}

	default:
		// Chan and UnsafePointer compare by identity.
		f.tag(tagOpaque)
		f.u64(uint64(v.Pointer()))
	}
}

// ownerFingerprint hashes an owner by identity. Pointer-like owners hash by
// address so mutating the instance never moves its entries.
func ownerFingerprint(f *fingerprinter, owner any) {
	if owner == nil {
		f.tag(tagNil)
		return
	}
	v := reflect.ValueOf(owner)
	switch v.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		f.tag(tagOpaque)
		f.u64(uint64(v.Pointer()))
	default:
		if t, ok := owner.(reflect.Type); ok {
			f.tag(tagString)
			_, _ = f.d.WriteString(t.PkgPath())
			_, _ = f.d.WriteString(t.String())
			return
		}
		f.value(v, 0)
	}
}
