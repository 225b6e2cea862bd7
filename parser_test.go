package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSVFieldCountMismatchPadsWithNull(t *testing.T) {
	out, _, err := Convert([]byte("a,b,c\n1,2\n"), Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatJSON,
		DSV: DSVOptions{
			HasHeader:            true,
			OnFieldCountMismatch: OnFieldCountPadNull,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"a":"1","b":"2","c":null}]`, string(out))
}

func TestDSVFieldCountMismatchFails(t *testing.T) {
	_, _, err := Convert([]byte("a,b,c\n1,2\n"), Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatJSON,
		DSV: DSVOptions{
			HasHeader:            true,
			OnFieldCountMismatch: OnFieldCountFail,
		},
	})
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindParseError, ce.Kind)
}

func TestDSVCRLFTerminator(t *testing.T) {
	out, _, err := Convert([]byte("a,b\r\n1,2\r\n3,4\r\n"), Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatNDJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":\"1\",\"b\":\"2\"}\n{\"a\":\"3\",\"b\":\"4\"}\n", string(out))
}

func TestDSVQuotedFieldWithEmbeddedNewline(t *testing.T) {
	out, _, err := Convert([]byte("a,b\n\"line1\nline2\",2\n"), Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"a":"line1\nline2","b":"2"}]`, string(out))
}

func TestXMLAttributesIncluded(t *testing.T) {
	in := `<rows><row id="1"><name>Ada</name></row></rows>`
	out, _, err := Convert([]byte(in), Options{
		InputFormat:  FormatXML,
		OutputFormat: FormatJSON,
		XML:          XMLOptions{RecordElement: "row", IncludeAttributes: true},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"@id":"1","name":"Ada"}]`, string(out))
}

func TestXMLRepeatedChildBecomesRepeatedField(t *testing.T) {
	in := `<rows><row><tag>a</tag><tag>b</tag></row></rows>`
	out, _, err := Convert([]byte(in), Options{
		InputFormat:  FormatXML,
		OutputFormat: FormatJSON,
		XML:          XMLOptions{RecordElement: "row"},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"tag":["a","b"]}]`, string(out))
}

func TestNDJSONNonObjectTopLevelWrapsInValueField(t *testing.T) {
	out, _, err := Convert([]byte("1\n\"two\"\n"), Options{
		InputFormat:  FormatNDJSON,
		OutputFormat: FormatNDJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"value\":1}\n{\"value\":\"two\"}\n", string(out))
}

func TestNDJSONStrictObjectsRejectsNonObject(t *testing.T) {
	_, _, err := Convert([]byte("1\n"), Options{
		InputFormat:  FormatNDJSON,
		OutputFormat: FormatNDJSON,
		JSON:         JSONOptions{StrictObjects: true},
	})
	require.Error(t, err)
}

func TestJSONArrayRecordPath(t *testing.T) {
	in := `{"meta":{"total":2},"items":[{"id":1},{"id":2}]}`
	out, _, err := Convert([]byte(in), Options{
		InputFormat:  FormatJSON,
		OutputFormat: FormatNDJSON,
		JSON:         JSONOptions{RecordPath: "items"},
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1}\n{\"id\":2}\n", string(out))
}
