// Package backend lowers an exec.Program into a relocatable native
// object: memory layout, witness/vtable construction, stack-machine
// instruction selection, and ELF assembly.
package backend

import "github.com/isaacparker0/coppice-sub000/internal/types"

// SlotSize is the width in bytes of every value slot: all values are
// 64-bit except Boolean/Nil/Never, which occupy 8 bits in value
// position but are still zero-extended into a full 64-bit slot when
// stored.
const SlotSize = 8

// Tag constants identify a union box's payload kind.
const (
	TagInt64       int64 = 1
	TagBoolean     int64 = 2
	TagString      int64 = 3
	TagNil         int64 = 4 // covers both Nil and Never
	TagStructLike  int64 = 5 // Struct, List, TypeParam, Applied
	TagEnumVariant int64 = 6
	TagFunction    int64 = 7
)

// UnionBoxSize is the byte size of a boxed union value:
// {tag:i64 at 0, payload:i64 at 8}.
const UnionBoxSize = 16

// InterfaceValueSize is the byte size of a boxed interface value:
// {data_pointer:i64 at 0, vtable_pointer:i64 at 8}.
const InterfaceValueSize = 16

// ListHeaderSize is the byte size of a list header:
// {length:i64 at 0, data_pointer:i64 at 8}.
const ListHeaderSize = 16

// StructFieldOffset returns the byte offset of the idx'th field in a
// struct's contiguous 64-bit-slot layout.
func StructFieldOffset(idx int) int64 { return int64(idx) * SlotSize }

// UnionTagOf reports the runtime tag for a concrete (non-union)
// payload type identified by its display kind, used both to build a
// box at an assignment site and to check a box's tag in match/matches
// lowering.
func UnionTagOf(kind PayloadKind) int64 {
	switch kind {
	case PayloadInt64:
		return TagInt64
	case PayloadBoolean:
		return TagBoolean
	case PayloadString:
		return TagString
	case PayloadNil:
		return TagNil
	case PayloadEnumVariant:
		return TagEnumVariant
	case PayloadFunction:
		return TagFunction
	default:
		return TagStructLike
	}
}

// PayloadKind classifies a concrete type for the purpose of choosing a
// union tag; it does not distinguish between different struct/list/
// applied types since they all share TagStructLike.
type PayloadKind int

const (
	PayloadStructLike PayloadKind = iota
	PayloadInt64
	PayloadBoolean
	PayloadString
	PayloadNil
	PayloadEnumVariant
	PayloadFunction
)

// ClassifyPayload maps a resolved *types.Type to the PayloadKind used
// to pick a union box tag. Enum-variant classification is the caller's
// responsibility (a QualifiedPattern target, not a *types.Type, names
// the variant) — this only distinguishes the primitive/function/
// struct-like split visible on *types.Type itself.
func ClassifyPayload(t *types.Type) PayloadKind {
	if t == nil {
		return PayloadNil
	}
	switch t.Kind {
	case types.KindPrimitive:
		switch t.Prim {
		case types.Int64:
			return PayloadInt64
		case types.Boolean:
			return PayloadBoolean
		case types.String:
			return PayloadString
		default: // Nil, Never
			return PayloadNil
		}
	case types.KindFunction:
		return PayloadFunction
	default: // Named, Applied, TypeParameter
		return PayloadStructLike
	}
}

// EnumVariantTag computes the expected payload tag for an enum
// variant pattern: a deterministic 64-bit FNV-1a hash of
// "enumName::variantName". Only a stable, compact tag is needed, not
// collision resistance.
func EnumVariantTag(enumName, variantName string) int64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	var h uint64 = offset64
	for _, b := range []byte(enumName + "::" + variantName) {
		h ^= uint64(b)
		h *= prime64
	}
	return int64(h & 0x7fffffffffffffff)
}
