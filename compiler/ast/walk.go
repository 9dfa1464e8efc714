package ast

// Children returns the direct children of n in source order.
func Children(n Node) (r []Node) {
	add := func(l ...Node) {
		for _, x := range l {
			if isNil(x) {
				continue
			}

			r = append(r, x)
		}
	}

	switch n := n.(type) {
	case *BinOp:
		add(n.Left, n.Right)
	case *UnOp:
		add(n.X)
	case *Assign:
		add(n.Target, n.Value)
	case *Block:
		add(n.Stmts...)
	case *DeclList:
		add(n.Decls...)
	case *VarDecl:
		add(n.Name, n.Init)
	case *ArrayDecl:
		add(n.Name)
		add(n.Elems...)
	case *FuncDecl:
		add(n.Name)

		for _, p := range n.Params {
			add(p)
		}

		add(n.Decls, n.Body)
	case *Proto:
		add(n.Name)

		for _, p := range n.Params {
			add(p)
		}
	case *Call:
		add(n.Func)
		add(n.Args...)
	case *Return:
		add(n.X)
	case *While:
		add(n.Cond, n.Body)
	case *DoWhile:
		add(n.Body, n.Cond)
	case *If:
		add(n.Cond, n.Then, n.Else)
	case *For:
		add(n.Init, n.Cond, n.Body)
	case *IO:
		add(n.X)
	case *Index:
		add(n.Array, n.Index)
	case *Alloc:
		add(n.Ptr, n.Size)
	case *Program:
		add(n.Decls, n.Main)
	}

	return r
}

// Walk calls f for n and its descendants in pre-order.
// Children are skipped when f returns false.
func Walk(n Node, f func(Node) bool) {
	if isNil(n) || !f(n) {
		return
	}

	for _, c := range Children(n) {
		Walk(c, f)
	}
}

// Find returns the innermost node of type T containing line:col.
func Find[T Node](root Node, line, col int) (r T, ok bool) {
	Walk(root, func(n Node) bool {
		if !n.Info().Span.Contains(line, col) {
			_, list := n.(*DeclList)
			_, block := n.(*Block)

			return list || block
		}

		if x, is := n.(T); is {
			r, ok = x, true
		}

		return true
	})

	return
}

func Name(n Node) string {
	switch n.(type) {
	case *Number:
		return "number"
	case *Ident:
		return "ident"
	case *BinOp:
		return "bin_op"
	case *UnOp:
		return "un_op"
	case *Assign:
		return "assign"
	case *Block:
		return "instr_list"
	case *DeclList:
		return "decl_list"
	case *VarDecl:
		return "var_decl"
	case *ArrayDecl:
		return "array_decl"
	case *FuncDecl:
		return "func_decl"
	case *Proto:
		return "prototype"
	case *Call:
		return "call"
	case *Return:
		return "return"
	case *While:
		return "while"
	case *DoWhile:
		return "do_while"
	case *If:
		return "if"
	case *For:
		return "for"
	case *IO:
		return "io"
	case *Index:
		return "array_access"
	case *Alloc:
		return "alloc"
	case *Program:
		return "program"
	default:
		return "unknown"
	}
}

func isNil(n Node) bool {
	if n == nil {
		return true
	}

	switch n := n.(type) {
	case *Block:
		return n == nil
	case *DeclList:
		return n == nil
	case *Ident:
		return n == nil
	case *Assign:
		return n == nil
	case *BinOp:
		return n == nil
	case *FuncDecl:
		return n == nil
	case *VarDecl:
		return n == nil
	}

	return false
}
