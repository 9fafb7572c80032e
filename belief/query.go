package belief

// Predicate is a user-supplied callback evaluated against a belief
// Context. It is the canonical, primary mechanism for preconditions,
// satisfaction checks, and drop conditions (§1 Non-goals: the parsed
// expression form below is an optional helper, not a general purpose
// expression language).
type Predicate func(ctx *Context) bool

// Query is a predicate over a belief Context: either a user-supplied
// Predicate or a parsed Expr produced by ParseExpr. Evaluation must be
// pure — it must never mutate the context.
type Query struct {
	predicate Predicate
	expr      Expr
	symbols   []string
}

// FromPredicate wraps a callback as a Query.
func FromPredicate(p Predicate) Query {
	return Query{predicate: p}
}

// FromExpr wraps a parsed expression as a Query. Use ParseExpr to build
// expr from source text.
func FromExpr(expr Expr, symbols []string) Query {
	return Query{expr: expr, symbols: symbols}
}

// Valid reports whether the query was constructed with either a predicate
// or a non-empty expression.
func (q Query) Valid() bool {
	return q.predicate != nil || q.expr != nil
}

// Symbols returns the set of symbol names referenced by a parsed-
// expression query, used by the engine to subscribe to relevant belief
// updates. Predicate-backed queries return nil since their dependencies
// are opaque.
func (q Query) Symbols() []string {
	return q.symbols
}

// Eval evaluates the query against ctx. An invalid (zero-value) query
// evaluates to false.
func (q Query) Eval(ctx *Context) bool {
	switch {
	case q.predicate != nil:
		return q.predicate(ctx)
	case q.expr != nil:
		v, err := q.expr.Eval(ctx)
		if err != nil {
			return false
		}
		return truthy(v)
	default:
		return false
	}
}

// Always returns a Query that is always satisfied; used as the default
// precondition/drop-when for goals and plans that declare none.
func Always() Query {
	return FromPredicate(func(*Context) bool { return true })
}

// Never returns a Query that is never satisfied.
func Never() Query {
	return FromPredicate(func(*Context) bool { return false })
}

func truthy(v ExprValue) bool {
	switch v.Kind {
	case ExprBool:
		return v.Bool
	case ExprNumber:
		return v.Number != 0
	case ExprString:
		return v.Str != ""
	default:
		return false
	}
}
