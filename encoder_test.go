package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recFrom(pairs ...string) Record {
	r := NewRecord(len(pairs) / 2)
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i], StringScalar(pairs[i+1]))
	}
	return r
}

func TestDSVEncoderWritesHeaderOnFirstRecord(t *testing.T) {
	enc := newDSVEncoder(DSVOptions{HasHeader: true, Delimiter: ',', Quote: '"'})
	out := newOutBuffer(64)

	require.NoError(t, enc.writeRecord(recFrom("name", "Ada", "age", "36"), out))
	require.NoError(t, enc.writeRecord(recFrom("name", "Linus", "age", "54"), out))
	require.NoError(t, enc.finish(out))

	assert.Equal(t, "name,age\nAda,36\nLinus,54\n", string(out.drain()))
}

func TestDSVEncoderQuotesSpecialValues(t *testing.T) {
	enc := newDSVEncoder(DSVOptions{HasHeader: true, Delimiter: ',', Quote: '"'})
	out := newOutBuffer(64)

	require.NoError(t, enc.writeRecord(recFrom("a", "has,comma", "b", `has"quote`), out))
	require.NoError(t, enc.finish(out))

	assert.Equal(t, "a,b\n\"has,comma\",\"has\"\"quote\"\n", string(out.drain()))
}

func TestDSVEncoderEmptyInputEmitsHeaderOnly(t *testing.T) {
	enc := newDSVEncoder(DSVOptions{HasHeader: true, Delimiter: ',', Quote: '"', Header: []string{"a", "b"}})
	out := newOutBuffer(64)
	require.NoError(t, enc.finish(out))
	assert.Equal(t, "a,b\n", string(out.drain()))
}

func TestNDJSONEncoderOneObjectPerLine(t *testing.T) {
	enc := newNDJSONEncoder()
	out := newOutBuffer(64)

	require.NoError(t, enc.writeRecord(recFrom("id", "1"), out))
	require.NoError(t, enc.writeRecord(recFrom("id", "2"), out))
	require.NoError(t, enc.finish(out))

	assert.Equal(t, "{\"id\":\"1\"}\n{\"id\":\"2\"}\n", string(out.drain()))
}

func TestNDJSONEncoderEmptyInputEmitsNothing(t *testing.T) {
	enc := newNDJSONEncoder()
	out := newOutBuffer(64)
	require.NoError(t, enc.finish(out))
	assert.Nil(t, out.drain())
}

func TestJSONArrayEncoderFraming(t *testing.T) {
	enc := newJSONArrayEncoder()
	out := newOutBuffer(64)

	require.NoError(t, enc.writeRecord(recFrom("id", "1"), out))
	require.NoError(t, enc.writeRecord(recFrom("id", "2"), out))
	require.NoError(t, enc.finish(out))

	assert.Equal(t, `[{"id":"1"},{"id":"2"}]`, string(out.drain()))
}

func TestJSONArrayEncoderEmptyInputEmitsEmptyArray(t *testing.T) {
	enc := newJSONArrayEncoder()
	out := newOutBuffer(64)
	require.NoError(t, enc.finish(out))
	assert.Equal(t, "[]", string(out.drain()))
}

func TestXMLEncoderWrapsRecordsAndClosesWrapper(t *testing.T) {
	enc := newXMLEncoder(XMLOptions{RecordElement: "row", WrapperElement: "rows"})
	out := newOutBuffer(128)

	require.NoError(t, enc.writeRecord(recFrom("name", "Ada"), out))
	require.NoError(t, enc.finish(out))

	assert.Equal(t, "<rows><row><name>Ada</name></row></rows>", string(out.drain()))
}

func TestXMLEncoderEmptyInputEmitsWrapperOnly(t *testing.T) {
	enc := newXMLEncoder(XMLOptions{RecordElement: "row", WrapperElement: "rows"})
	out := newOutBuffer(128)
	require.NoError(t, enc.finish(out))
	assert.Equal(t, "<rows></rows>", string(out.drain()))
}

func TestXMLEncoderEscapesTextAndAttributes(t *testing.T) {
	enc := newXMLEncoder(XMLOptions{RecordElement: "row", WrapperElement: "rows"})
	out := newOutBuffer(128)

	require.NoError(t, enc.writeRecord(recFrom("note", "A & B < C"), out))
	require.NoError(t, enc.finish(out))

	assert.Equal(t, "<rows><row><note>A &amp; B &lt; C</note></row></rows>", string(out.drain()))
}
