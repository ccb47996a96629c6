package backend_test

import (
	"bytes"
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/backend"
	"github.com/isaacparker0/coppice-sub000/internal/exec"
	"github.com/isaacparker0/coppice-sub000/internal/types"
	"github.com/stretchr/testify/require"
)

func TestMangleFunction(t *testing.T) {
	require.Equal(t, "coppice_pkg_shapes_area", backend.MangleFunction("pkg/shapes", "area"))
}

func TestMangleMethod(t *testing.T) {
	require.Equal(t, "coppice_pkg_shapes_Point_sum", backend.MangleMethod("pkg/shapes", "Point", "sum"))
}

func TestStructFieldOffsetIsSlotAligned(t *testing.T) {
	require.Equal(t, int64(0), backend.StructFieldOffset(0))
	require.Equal(t, int64(8), backend.StructFieldOffset(1))
	require.Equal(t, int64(16), backend.StructFieldOffset(2))
}

func TestUnionTagOfCoversEveryPayloadKind(t *testing.T) {
	require.Equal(t, backend.TagInt64, backend.UnionTagOf(backend.PayloadInt64))
	require.Equal(t, backend.TagBoolean, backend.UnionTagOf(backend.PayloadBoolean))
	require.Equal(t, backend.TagString, backend.UnionTagOf(backend.PayloadString))
	require.Equal(t, backend.TagNil, backend.UnionTagOf(backend.PayloadNil))
	require.Equal(t, backend.TagStructLike, backend.UnionTagOf(backend.PayloadStructLike))
	require.Equal(t, backend.TagEnumVariant, backend.UnionTagOf(backend.PayloadEnumVariant))
	require.Equal(t, backend.TagFunction, backend.UnionTagOf(backend.PayloadFunction))
}

func TestClassifyPayload(t *testing.T) {
	require.Equal(t, backend.PayloadInt64, backend.ClassifyPayload(types.NewPrimitive(types.Int64)))
	require.Equal(t, backend.PayloadNil, backend.ClassifyPayload(nil))
	require.Equal(t, backend.PayloadStructLike, backend.ClassifyPayload(types.NewNamed("pkg/shapes", "Point")))
}

func TestEnumVariantTagDeterministic(t *testing.T) {
	a := backend.EnumVariantTag("Color", "Red")
	b := backend.EnumVariantTag("Color", "Red")
	c := backend.EnumVariantTag("Color", "Blue")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func mainOnlyProgram() *exec.Program {
	return &exec.Program{
		Entrypoint: exec.FunctionRef{PackagePath: "pkg/main", Name: "main"},
		Functions: []*exec.FunctionDecl{
			{
				PackagePath: "pkg/main", Name: "main",
				Result: types.NewPrimitive(types.Nil),
				Body:   &ast.Block{},
			},
		},
	}
}

func TestEmitProducesDeterministicBytes(t *testing.T) {
	prog := mainOnlyProgram()
	obj1, reports1 := backend.Emit(prog)
	require.Empty(t, reports1)
	require.NotNil(t, obj1)

	obj2, reports2 := backend.Emit(mainOnlyProgram())
	require.Empty(t, reports2)
	require.Equal(t, obj1.Bytes, obj2.Bytes)
	require.Equal(t, obj1.BuildID, obj2.BuildID)
}

func TestEmitObjectCarriesELF64Magic(t *testing.T) {
	prog := mainOnlyProgram()
	obj, reports := backend.Emit(prog)
	require.Empty(t, reports)
	require.GreaterOrEqual(t, len(obj.Bytes), 4)
	require.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, obj.Bytes[:4])
}

func TestBuildVTablesReportsMissingMethod(t *testing.T) {
	prog := &exec.Program{
		Interfaces: []*exec.InterfaceDecl{{
			PackagePath: "pkg/shapes", Name: "Shape",
			MethodOrder: []string{"area"},
			Methods:     map[string]*types.MethodSig{"area": {Name: "area", Result: types.NewPrimitive(types.Int64)}},
		}},
		Structs: []*exec.StructDecl{{
			PackagePath: "pkg/shapes", Name: "Point", Implements: []string{"Shape"},
		}},
	}
	_, errs := backend.BuildVTables(prog)
	require.Len(t, errs, 1)
}

func TestEmitInterfaceProgramCarriesVTable(t *testing.T) {
	area := &types.MethodSig{Name: "area", Result: types.NewPrimitive(types.Int64)}
	prog := &exec.Program{
		Entrypoint: exec.FunctionRef{PackagePath: "pkg/main", Name: "main"},
		Interfaces: []*exec.InterfaceDecl{{
			PackagePath: "pkg/main", Name: "Shape",
			MethodOrder: []string{"area"},
			Methods:     map[string]*types.MethodSig{"area": area},
		}},
		Structs: []*exec.StructDecl{{
			PackagePath: "pkg/main", Name: "Square",
			FieldOrder: []string{"side"},
			Fields:     map[string]*types.Type{"side": types.NewPrimitive(types.Int64)},
			Implements: []string{"Shape"},
			Methods: []*exec.MethodDecl{{
				Name: "area", Result: types.NewPrimitive(types.Int64),
				Body: &ast.Block{},
			}},
		}},
		Functions: []*exec.FunctionDecl{{
			PackagePath: "pkg/main", Name: "main",
			Result: types.NewPrimitive(types.Nil),
			Body:   &ast.Block{},
		}},
	}
	obj, reports := backend.Emit(prog)
	require.Empty(t, reports)
	require.NotNil(t, obj)
	require.True(t, bytes.Contains(obj.Bytes, []byte("coppice_vtable_pkg_main_Square_pkg_main_Shape")))
	require.True(t, bytes.Contains(obj.Bytes, []byte("coppice_pkg_main_Square_area")))
}

func TestEmitDefinesRuntimeSurface(t *testing.T) {
	obj, reports := backend.Emit(mainOnlyProgram())
	require.Empty(t, reports)
	for _, sym := range []string{"main", "print", "abort", "assert", "string"} {
		require.True(t, bytes.Contains(obj.Bytes, []byte(sym)), "object should define %s", sym)
	}
}
