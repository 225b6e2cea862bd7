package convert

import (
	"strconv"
	"strings"
)

// expr.go implements the tiny pure expression language §4.4.4 allows for a
// FieldSpec's Compute and a TransformSpec's Filter: literals, field
// references, unary -/!, binary arithmetic/comparison/logical operators, a
// ternary, and four built-in functions (len/lower/upper/contains). It is
// hand-rolled rather than pulled from a library on purpose (see DESIGN.md):
// the spec narrows the language specifically to avoid needing a sandboxed
// general-purpose engine, and no pack example exercises one.

// exprNode is a compiled expression ready to evaluate against a Record.
type exprNode interface {
	eval(rec Record) (Scalar, error)
}

// compileExpr parses src into an evaluable tree. Compilation happens once,
// at TransformSpec construction time (transform.go caches the result);
// evaluation happens once per record.
func compileExpr(src string) (exprNode, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	n, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, newErr(KindInvalidOption, "unexpected token in expression: "+p.toks[p.pos].text)
	}
	return n, nil
}

// ─── Lexer ───────────────────────────────────────────────────────────────

type exprTokKind int

const (
	tokEOF exprTokKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type exprTok struct {
	kind exprTokKind
	text string
}

func lexExpr(src string) ([]exprTok, error) {
	var toks []exprTok
	i, n := 0, len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, exprTok{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, exprTok{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, exprTok{tokComma, ","})
			i++
		case c == '"' || c == '\'':
			j := i + 1
			var sb strings.Builder
			for j < n && src[j] != c {
				if src[j] == '\\' && j+1 < n {
					j++
				}
				sb.WriteByte(src[j])
				j++
			}
			if j >= n {
				return nil, newErr(KindInvalidOption, "unterminated string literal in expression")
			}
			toks = append(toks, exprTok{tokString, sb.String()})
			i = j + 1
		case c >= '0' && c <= '9':
			j := i
			for j < n && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			toks = append(toks, exprTok{tokNumber, src[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, exprTok{tokIdent, src[i:j]})
			i = j
		default:
			op, l, err := lexOp(src[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, exprTok{tokOp, op})
			i += l
		}
	}
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func lexOp(s string) (string, int, error) {
	twoChar := []string{"==", "!=", "<=", ">=", "&&", "||"}
	for _, op := range twoChar {
		if strings.HasPrefix(s, op) {
			return op, 2, nil
		}
	}
	switch s[0] {
	case '+', '-', '*', '/', '%', '<', '>', '!', '?', ':':
		return string(s[0]), 1, nil
	}
	return "", 0, newErr(KindInvalidOption, "unexpected character in expression: "+string(s[0]))
}

// ─── Parser (recursive descent, one precedence level per method) ─────────

type exprParser struct {
	toks []exprTok
	pos  int
}

func (p *exprParser) peek() exprTok {
	if p.pos >= len(p.toks) {
		return exprTok{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() exprTok {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) atOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

// ternary := logicalOr ('?' ternary ':' ternary)?
func (p *exprParser) parseTernary() (exprNode, error) {
	cond, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.atOp("?") {
		p.next()
		thenExpr, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if !p.atOp(":") {
			return nil, newErr(KindInvalidOption, "expected ':' in ternary expression")
		}
		p.next()
		elseExpr, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		return &condExpr{cond, thenExpr, elseExpr}, nil
	}
	return cond, nil
}

func (p *exprParser) parseLogicalOr() (exprNode, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.atOp("||") {
		p.next()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &binExpr{"||", left, right}
	}
	return left, nil
}

func (p *exprParser) parseLogicalAnd() (exprNode, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.atOp("&&") {
		p.next()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &binExpr{"&&", left, right}
	}
	return left, nil
}

func (p *exprParser) parseEquality() (exprNode, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.atOp("==") || p.atOp("!=") {
		op := p.next().text
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &binExpr{op, left, right}
	}
	return left, nil
}

func (p *exprParser) parseRelational() (exprNode, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.atOp("<") || p.atOp("<=") || p.atOp(">") || p.atOp(">=") {
		op := p.next().text
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &binExpr{op, left, right}
	}
	return left, nil
}

func (p *exprParser) parseAdditive() (exprNode, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atOp("+") || p.atOp("-") {
		op := p.next().text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binExpr{op, left, right}
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atOp("*") || p.atOp("/") || p.atOp("%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binExpr{op, left, right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (exprNode, error) {
	if p.atOp("-") || p.atOp("!") {
		op := p.next().text
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op, operand}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if strings.ContainsAny(t.text, ".eE") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, newErr(KindInvalidOption, "invalid number literal: "+t.text)
			}
			return &litExpr{FloatScalar(f)}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, newErr(KindInvalidOption, "invalid number literal: "+t.text)
		}
		return &litExpr{IntScalar(n)}, nil
	case tokString:
		return &litExpr{StringScalar(t.text)}, nil
	case tokLParen:
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, newErr(KindInvalidOption, "expected ')' in expression")
		}
		p.next()
		return inner, nil
	case tokIdent:
		switch t.text {
		case "true":
			return &litExpr{BoolScalar(true)}, nil
		case "false":
			return &litExpr{BoolScalar(false)}, nil
		case "null":
			return &litExpr{NullScalar}, nil
		}
		if p.peek().kind == tokLParen {
			return p.parseCall(t.text)
		}
		return &fieldExpr{t.text}, nil
	}
	return nil, newErr(KindInvalidOption, "unexpected end of expression")
}

func (p *exprParser) parseCall(name string) (exprNode, error) {
	p.next() // consume '('
	var args []exprNode
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind == tokComma {
				p.next()
				continue
			}
			break
		}
	}
	if p.peek().kind != tokRParen {
		return nil, newErr(KindInvalidOption, "expected ')' after call arguments")
	}
	p.next()
	switch name {
	case "len", "lower", "upper", "contains":
		return &callExpr{name, args}, nil
	default:
		return nil, newErr(KindInvalidOption, "unknown function: "+name)
	}
}

// ─── AST nodes ─────────────────────────────────────────────────────────────

type litExpr struct{ v Scalar }

func (e *litExpr) eval(rec Record) (Scalar, error) { return e.v, nil }

type fieldExpr struct{ name string }

func (e *fieldExpr) eval(rec Record) (Scalar, error) {
	v, ok := rec.Get(e.name)
	if !ok {
		return NullScalar, nil
	}
	return v, nil
}

type unaryExpr struct {
	op      string
	operand exprNode
}

func (e *unaryExpr) eval(rec Record) (Scalar, error) {
	v, err := e.operand.eval(rec)
	if err != nil {
		return Scalar{}, err
	}
	switch e.op {
	case "-":
		f, err := scalarAsFloat(v)
		if err != nil {
			return Scalar{}, err
		}
		return FloatScalar(-f), nil
	case "!":
		return BoolScalar(!scalarTruthy(v)), nil
	}
	return Scalar{}, newErr(KindInvalidOption, "unknown unary operator: "+e.op)
}

type binExpr struct {
	op          string
	left, right exprNode
}

func (e *binExpr) eval(rec Record) (Scalar, error) {
	l, err := e.left.eval(rec)
	if err != nil {
		return Scalar{}, err
	}
	switch e.op {
	case "&&":
		if !scalarTruthy(l) {
			return BoolScalar(false), nil
		}
		r, err := e.right.eval(rec)
		if err != nil {
			return Scalar{}, err
		}
		return BoolScalar(scalarTruthy(r)), nil
	case "||":
		if scalarTruthy(l) {
			return BoolScalar(true), nil
		}
		r, err := e.right.eval(rec)
		if err != nil {
			return Scalar{}, err
		}
		return BoolScalar(scalarTruthy(r)), nil
	}

	r, err := e.right.eval(rec)
	if err != nil {
		return Scalar{}, err
	}

	switch e.op {
	case "==":
		return BoolScalar(scalarEqual(l, r)), nil
	case "!=":
		return BoolScalar(!scalarEqual(l, r)), nil
	}

	if e.op == "+" && (l.Kind == KindString || r.Kind == KindString) {
		return StringScalar(l.AsString() + r.AsString()), nil
	}

	lf, err := scalarAsFloat(l)
	if err != nil {
		return Scalar{}, err
	}
	rf, err := scalarAsFloat(r)
	if err != nil {
		return Scalar{}, err
	}
	switch e.op {
	case "+":
		return FloatScalar(lf + rf), nil
	case "-":
		return FloatScalar(lf - rf), nil
	case "*":
		return FloatScalar(lf * rf), nil
	case "/":
		if rf == 0 {
			return Scalar{}, newErr(KindInvalidOption, "division by zero in expression")
		}
		return FloatScalar(lf / rf), nil
	case "%":
		if rf == 0 {
			return Scalar{}, newErr(KindInvalidOption, "modulo by zero in expression")
		}
		return FloatScalar(float64(int64(lf) % int64(rf))), nil
	case "<":
		return BoolScalar(lf < rf), nil
	case "<=":
		return BoolScalar(lf <= rf), nil
	case ">":
		return BoolScalar(lf > rf), nil
	case ">=":
		return BoolScalar(lf >= rf), nil
	}
	return Scalar{}, newErr(KindInvalidOption, "unknown binary operator: "+e.op)
}

type condExpr struct {
	cond, then, els exprNode
}

func (e *condExpr) eval(rec Record) (Scalar, error) {
	c, err := e.cond.eval(rec)
	if err != nil {
		return Scalar{}, err
	}
	if scalarTruthy(c) {
		return e.then.eval(rec)
	}
	return e.els.eval(rec)
}

type callExpr struct {
	name string
	args []exprNode
}

func (e *callExpr) eval(rec Record) (Scalar, error) {
	vals := make([]Scalar, len(e.args))
	for i, a := range e.args {
		v, err := a.eval(rec)
		if err != nil {
			return Scalar{}, err
		}
		vals[i] = v
	}
	switch e.name {
	case "len":
		if len(vals) != 1 {
			return Scalar{}, newErr(KindInvalidOption, "len() takes exactly one argument")
		}
		return IntScalar(int64(len(vals[0].AsString()))), nil
	case "lower":
		if len(vals) != 1 {
			return Scalar{}, newErr(KindInvalidOption, "lower() takes exactly one argument")
		}
		return StringScalar(strings.ToLower(vals[0].AsString())), nil
	case "upper":
		if len(vals) != 1 {
			return Scalar{}, newErr(KindInvalidOption, "upper() takes exactly one argument")
		}
		return StringScalar(strings.ToUpper(vals[0].AsString())), nil
	case "contains":
		if len(vals) != 2 {
			return Scalar{}, newErr(KindInvalidOption, "contains() takes exactly two arguments")
		}
		return BoolScalar(strings.Contains(vals[0].AsString(), vals[1].AsString())), nil
	}
	return Scalar{}, newErr(KindInvalidOption, "unknown function: "+e.name)
}

// ─── Scalar coercion helpers shared by the evaluator ──────────────────────

func scalarAsFloat(s Scalar) (float64, error) {
	switch s.Kind {
	case KindInt:
		return float64(s.Int), nil
	case KindFloat:
		return s.Flt, nil
	case KindBool:
		if s.Bool {
			return 1, nil
		}
		return 0, nil
	case KindNull:
		return 0, nil
	default:
		f, err := strconv.ParseFloat(s.AsString(), 64)
		if err != nil {
			return 0, coercionErr("", s.AsString(), "expression operand is not numeric")
		}
		return f, nil
	}
}

func scalarTruthy(s Scalar) bool {
	switch s.Kind {
	case KindNull:
		return false
	case KindBool:
		return s.Bool
	case KindString, KindRaw, KindRawJSON:
		return s.Str != ""
	case KindInt:
		return s.Int != 0
	case KindFloat:
		return s.Flt != 0
	default:
		return false
	}
}

func scalarEqual(a, b Scalar) bool {
	if a.Kind == KindNull || b.Kind == KindNull {
		return a.Kind == b.Kind
	}
	af, aerr := scalarAsFloat(a)
	bf, berr := scalarAsFloat(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	return a.AsString() == b.AsString()
}
