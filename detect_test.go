package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormatXML(t *testing.T) {
	sample := []byte(`<records><row><id>1</id></row></records>`)
	assert.Equal(t, FormatXML, DetectFormat(sample, DetectOptions{}))
}

func TestDetectFormatJSONArray(t *testing.T) {
	sample := []byte(`[{"id":1},{"id":2}]`)
	assert.Equal(t, FormatJSON, DetectFormat(sample, DetectOptions{}))
}

func TestDetectFormatNDJSON(t *testing.T) {
	sample := []byte("{\"id\":1}\n{\"id\":2}\n{\"id\":3}\n")
	assert.Equal(t, FormatNDJSON, DetectFormat(sample, DetectOptions{}))
}

func TestDetectFormatDSV(t *testing.T) {
	sample := []byte("id,name\n1,alice\n2,bob\n")
	assert.Equal(t, FormatDSV, DetectFormat(sample, DetectOptions{}))
}

func TestDetectFormatUnknown(t *testing.T) {
	sample := []byte("just some prose with no structure")
	assert.Equal(t, FormatUnknown, DetectFormat(sample, DetectOptions{}))
}

func TestDetectStructureDSVHeaderAndDelimiter(t *testing.T) {
	sample := []byte("id;name\n1;alice\n2;bob\n")
	info, err := DetectStructure(sample, FormatAuto, DetectOptions{})
	require.NoError(t, err)
	assert.Equal(t, FormatDSV, info.Format)
	assert.Equal(t, byte(';'), info.Delimiter)
	assert.Equal(t, []string{"id", "name"}, info.Fields)
}

func TestDetectStructureNDJSONFields(t *testing.T) {
	sample := []byte("{\"id\":1,\"name\":\"a\"}\n{\"id\":2,\"name\":\"b\"}\n")
	info, err := DetectStructure(sample, FormatAuto, DetectOptions{})
	require.NoError(t, err)
	assert.Equal(t, FormatNDJSON, info.Format)
	assert.ElementsMatch(t, []string{"id", "name"}, info.Fields)
}

func TestDetectStructureXMLRecordElement(t *testing.T) {
	sample := []byte(`<root><item><id>1</id><name>a</name></item><item><id>2</id><name>b</name></item></root>`)
	info, err := DetectStructure(sample, FormatXML, DetectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "item", info.RecordElement)
	assert.ElementsMatch(t, []string{"id", "name"}, info.Fields)
}

func TestDetectStructureUnknownFormatErrors(t *testing.T) {
	_, err := DetectStructure([]byte("prose"), FormatAuto, DetectOptions{})
	require.Error(t, err)
}
