// Package semantic implements C5: purely syntactic desugaring of
// string interpolation into `String + expr + String` chains, and
// pre-order ExpressionId assignment over the resulting tree. Neither
// step consults or produces type information.
package semantic

import "github.com/isaacparker0/coppice-sub000/internal/ast"

// Lower rewrites f in place: every *ast.InterpString is replaced by a
// left-to-right chain of `+` BinaryExprs over its literal and embedded
// parts, and every expression in the resulting tree receives a
// monotonically increasing ExpressionId via pre-order traversal.
func Lower(f *ast.File) {
	for _, d := range f.Decls {
		lowerDecl(d)
	}
	var next uint64 = 1
	for _, d := range f.Decls {
		assignIDsDecl(d, &next)
	}
}

func lowerDecl(d ast.Decl) {
	switch v := d.(type) {
	case *ast.TypeDecl:
		for _, m := range v.Methods {
			lowerBlock(m.Body)
		}
	case *ast.ConstantDecl:
		v.Value = lowerExpr(v.Value)
	case *ast.FunctionDecl:
		lowerBlock(v.Body)
	}
}

func lowerBlock(b *ast.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		lowerStmt(s)
	}
}

func lowerStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.ExprStmt:
		v.X = lowerExpr(v.X)
	case *ast.VarDecl:
		v.Value = lowerExpr(v.Value)
	case *ast.AssignStmt:
		v.Value = lowerExpr(v.Value)
	case *ast.ReturnStmt:
		if v.Value != nil {
			v.Value = lowerExpr(v.Value)
		}
	case *ast.WhileStmt:
		v.Cond = lowerExpr(v.Cond)
		lowerBlock(v.Body)
	}
}

// lowerExpr recursively desugars e's children and, if e is itself an
// *ast.InterpString, replaces it with its `+`-chain expansion.
func lowerExpr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case *ast.InterpString:
		return desugarInterp(v)
	case *ast.UnaryExpr:
		v.X = lowerExpr(v.X)
		return v
	case *ast.BinaryExpr:
		v.X = lowerExpr(v.X)
		v.Y = lowerExpr(v.Y)
		return v
	case *ast.MatchesExpr:
		v.X = lowerExpr(v.X)
		return v
	case *ast.CallExpr:
		v.Callee = lowerExpr(v.Callee)
		for i, a := range v.Args {
			v.Args[i] = lowerExpr(a)
		}
		return v
	case *ast.FieldAccess:
		v.X = lowerExpr(v.X)
		return v
	case *ast.StructLit:
		for _, f := range v.Fields {
			f.Value = lowerExpr(f.Value)
		}
		return v
	case *ast.IfExpr:
		v.Cond = lowerExpr(v.Cond)
		lowerBlock(v.Then)
		switch e := v.Else.(type) {
		case *ast.IfExpr:
			v.Else = lowerExpr(e)
		case *ast.Block:
			lowerBlock(e)
		}
		return v
	case *ast.MatchExpr:
		v.Subject = lowerExpr(v.Subject)
		for _, arm := range v.Arms {
			arm.Body = lowerExpr(arm.Body)
		}
		return v
	default:
		return e
	}
}

// desugarInterp turns `"a{x}b{y}c"` into `((("a" + x) + "b") + y) + "c"`
// style left-to-right `+` chains. Each literal part becomes a StringLit
// and each embedded expression its own operand; no empty literal is
// inserted, so adjacent embedded expressions are chained directly and
// a lone embedded expression desugars to that expression itself. An
// interpolation with no parts at all desugars to an empty string.
func desugarInterp(s *ast.InterpString) ast.Expr {
	if len(s.Parts) == 0 {
		return &ast.StringLit{Value: "", Pos: s.Pos}
	}
	var chain ast.Expr
	for _, part := range s.Parts {
		var operand ast.Expr
		if part.Expr != nil {
			operand = lowerExpr(part.Expr)
		} else {
			operand = &ast.StringLit{Value: part.Text, Pos: s.Pos}
		}
		if chain == nil {
			chain = operand
			continue
		}
		chain = &ast.BinaryExpr{Op: "+", X: chain, Y: operand, Pos: s.Pos}
	}
	return chain
}

func assignIDsDecl(d ast.Decl, next *uint64) {
	switch v := d.(type) {
	case *ast.TypeDecl:
		for _, m := range v.Methods {
			assignIDsBlock(m.Body, next)
		}
	case *ast.ConstantDecl:
		assignIDsExpr(v.Value, next)
	case *ast.FunctionDecl:
		assignIDsBlock(v.Body, next)
	}
}

func assignIDsBlock(b *ast.Block, next *uint64) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		assignIDsStmt(s, next)
	}
}

func assignIDsStmt(s ast.Stmt, next *uint64) {
	switch v := s.(type) {
	case *ast.ExprStmt:
		assignIDsExpr(v.X, next)
	case *ast.VarDecl:
		assignIDsExpr(v.Value, next)
	case *ast.AssignStmt:
		assignIDsExpr(v.Value, next)
	case *ast.ReturnStmt:
		if v.Value != nil {
			assignIDsExpr(v.Value, next)
		}
	case *ast.WhileStmt:
		assignIDsExpr(v.Cond, next)
		assignIDsBlock(v.Body, next)
	}
}

// assignIDsExpr assigns e's own ExpressionId before descending into
// its children (pre-order, so a parent's ID is always lower than its
// children's).
func assignIDsExpr(e ast.Expr, next *uint64) {
	if e == nil {
		return
	}
	e.SetExprID(*next)
	*next++

	switch v := e.(type) {
	case *ast.UnaryExpr:
		assignIDsExpr(v.X, next)
	case *ast.BinaryExpr:
		assignIDsExpr(v.X, next)
		assignIDsExpr(v.Y, next)
	case *ast.MatchesExpr:
		assignIDsExpr(v.X, next)
	case *ast.CallExpr:
		assignIDsExpr(v.Callee, next)
		for _, a := range v.Args {
			assignIDsExpr(a, next)
		}
	case *ast.FieldAccess:
		assignIDsExpr(v.X, next)
	case *ast.StructLit:
		for _, f := range v.Fields {
			assignIDsExpr(f.Value, next)
		}
	case *ast.IfExpr:
		assignIDsExpr(v.Cond, next)
		assignIDsBlock(v.Then, next)
		switch e := v.Else.(type) {
		case *ast.IfExpr:
			assignIDsExpr(e, next)
		case *ast.Block:
			assignIDsBlock(e, next)
		}
	case *ast.MatchExpr:
		assignIDsExpr(v.Subject, next)
		for _, arm := range v.Arms {
			assignIDsExpr(arm.Body, next)
		}
	}
}
