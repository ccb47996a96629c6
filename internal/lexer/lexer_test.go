package lexer

import (
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/token"
	"github.com/stretchr/testify/require"
)

func TestTokenizeBasics(t *testing.T) {
	src := []byte(`public type Point :: struct {
  x: Int64, y: Int64
}
function main() -> Nil { print("hi") }
`)
	toks, reports := Tokenize(src, "main.cop")
	require.Empty(t, reports)

	var kinds []token.Kind
	for _, tok := range toks {
		if tok.Kind == token.EOF {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, token.PUBLIC)
	require.Contains(t, kinds, token.STRUCT)
	require.Contains(t, kinds, token.FUNCTION)
	require.Contains(t, kinds, token.TERMINATOR)
}

func TestTokenizeInsertsTerminatorOnlyAtZeroDepth(t *testing.T) {
	src := []byte("function f(\n  x: Int64\n) -> Int64 {\n  return x\n}\n")
	toks, reports := Tokenize(src, "f.cop")
	require.Empty(t, reports)

	depth := 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.TERMINATOR:
			require.Zero(t, depth, "terminator inserted at nonzero bracket depth")
		}
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, reports := Tokenize([]byte(`constant X :: String = "oops`), "x.cop")
	require.Len(t, reports, 1)
	require.Equal(t, "LEX001", reports[0].Code)
}

func TestTokenizeIntegerOverflow(t *testing.T) {
	_, reports := Tokenize([]byte("constant BIG :: Int64 = 99999999999999999999"), "big.cop")
	require.Len(t, reports, 1)
	require.Equal(t, "LEX002", reports[0].Code)
}

func TestTokenizeDocComment(t *testing.T) {
	src := []byte("/// Computes area.\npublic function area() -> Int64 { return 0 }\n")
	toks, reports := Tokenize(src, "area.cop")
	require.Empty(t, reports)
	require.Equal(t, token.DOC_COMMENT, toks[0].Kind)
	require.Equal(t, "Computes area.", toks[0].Literal)
}
