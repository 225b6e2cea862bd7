package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalExpr(t *testing.T, src string, rec Record) Scalar {
	t.Helper()
	n, err := compileExpr(src)
	require.NoError(t, err)
	v, err := n.eval(rec)
	require.NoError(t, err)
	return v
}

func TestExprArithmeticPrecedence(t *testing.T) {
	v := evalExpr(t, "1 + 2 * 3", Record{})
	assert.Equal(t, float64(7), v.Flt)
}

func TestExprFieldReference(t *testing.T) {
	r := NewRecord(1)
	r.Set("age", IntScalar(30))
	v := evalExpr(t, "age >= 18", r)
	assert.True(t, v.Bool)
}

func TestExprMissingFieldIsNull(t *testing.T) {
	v := evalExpr(t, "missing == null", NewRecord(0))
	assert.True(t, v.Bool)
}

func TestExprTernary(t *testing.T) {
	r := NewRecord(1)
	r.Set("n", IntScalar(5))
	v := evalExpr(t, `n > 3 ? "big" : "small"`, r)
	assert.Equal(t, "big", v.Str)
}

func TestExprLogicalShortCircuit(t *testing.T) {
	// right side would error (division by zero) if evaluated; && should
	// short-circuit on a false left operand without evaluating it.
	v := evalExpr(t, "false && (1/0 > 0)", Record{})
	assert.False(t, v.Bool)
}

func TestExprStringConcat(t *testing.T) {
	r := NewRecord(2)
	r.Set("first", StringScalar("Jane"))
	r.Set("last", StringScalar("Doe"))
	v := evalExpr(t, "first + \" \" + last", r)
	assert.Equal(t, "Jane Doe", v.Str)
}

func TestExprBuiltinFunctions(t *testing.T) {
	r := NewRecord(1)
	r.Set("name", StringScalar("Alice"))
	assert.Equal(t, int64(5), evalExpr(t, "len(name)", r).Int)
	assert.Equal(t, "alice", evalExpr(t, "lower(name)", r).Str)
	assert.Equal(t, "ALICE", evalExpr(t, "upper(name)", r).Str)
	assert.True(t, evalExpr(t, `contains(name, "lic")`, r).Bool)
}

func TestExprUnaryOperators(t *testing.T) {
	assert.Equal(t, float64(-5), evalExpr(t, "-5", Record{}).Flt)
	assert.True(t, evalExpr(t, "!false", Record{}).Bool)
}

func TestExprDivisionByZeroErrors(t *testing.T) {
	n, err := compileExpr("1 / 0")
	require.NoError(t, err)
	_, err = n.eval(Record{})
	require.Error(t, err)
}

func TestExprUnknownFunctionFailsToCompile(t *testing.T) {
	_, err := compileExpr("nope(1)")
	require.Error(t, err)
}

func TestExprUnterminatedStringFailsToCompile(t *testing.T) {
	_, err := compileExpr(`"unterminated`)
	require.Error(t, err)
}
