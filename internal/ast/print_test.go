package ast_test

import (
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/parser"
	"github.com/stretchr/testify/require"
)

const sample = `public type Point :: struct {
  x: Int64, y: Int64

  function length(self) -> Int64 {
    return self.x
  }
}

public type Shape :: interface {
  function area(self) -> Int64
}

type Color :: enum { Red, Green, Blue }

type Maybe[T] :: union T | Nil

constant MaxSize :: Int64 = 64

public function add(a: Int64, b: Int64) -> Int64 {
  return a + b
}

import "pkg/list" { List, Node as ListNode }

exports { add, Point }
`

func TestPrintIdempotent(t *testing.T) {
	f1, reports := parser.ParseFile([]byte(sample), "t.cop")
	require.Empty(t, reports)
	out1 := ast.Print(f1)

	f2, reports2 := parser.ParseFile([]byte(out1), "t.cop")
	require.Empty(t, reports2)
	out2 := ast.Print(f2)

	require.Equal(t, out1, out2)
}
