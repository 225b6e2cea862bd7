package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelChunkedPushEqualsOneShot(t *testing.T) {
	in := "name,age\nAda,36\nLinus,54\n"

	oneShot, _, err := Convert([]byte(in), Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatNDJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.NoError(t, err)

	k, err := NewKernel(Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatNDJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.NoError(t, err)

	var chunked []byte
	for _, part := range []string{"name,age\n", "Ada,", "36\nLinus,54\n"} {
		out, err := k.Push([]byte(part))
		require.NoError(t, err)
		chunked = append(chunked, out...)
	}
	out, err := k.Finish()
	require.NoError(t, err)
	chunked = append(chunked, out...)

	assert.Equal(t, string(oneShot), string(chunked))
	assert.Equal(t, "{\"name\":\"Ada\",\"age\":\"36\"}\n{\"name\":\"Linus\",\"age\":\"54\"}\n", string(chunked))
}

func TestKernelOneByteAtATimeMatchesOneShot(t *testing.T) {
	in := "a,b\n1,2\n3,4\n"

	oneShot, _, err := Convert([]byte(in), Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.NoError(t, err)

	k, err := NewKernel(Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.NoError(t, err)

	var got []byte
	for i := 0; i < len(in); i++ {
		out, err := k.Push([]byte{in[i]})
		require.NoError(t, err)
		got = append(got, out...)
	}
	out, err := k.Finish()
	require.NoError(t, err)
	got = append(got, out...)

	assert.Equal(t, string(oneShot), string(got))
}

func TestKernelAbortIsTerminal(t *testing.T) {
	k, err := NewKernel(Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatNDJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.NoError(t, err)

	_, err = k.Push([]byte("a,b\n1,2\n"))
	require.NoError(t, err)

	k.Abort()
	assert.True(t, k.IsAborted())

	_, err = k.Push([]byte("3,4\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)

	_, err = k.Finish()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)

	// Abort is idempotent.
	k.Abort()
	assert.True(t, k.IsAborted())

	stats := k.Stats()
	assert.Equal(t, int64(1), stats.RecordsProcessed)
}

func TestKernelPauseBlocksPush(t *testing.T) {
	k, err := NewKernel(Options{
		InputFormat:  FormatNDJSON,
		OutputFormat: FormatNDJSON,
	})
	require.NoError(t, err)

	k.Pause()
	assert.True(t, k.IsPaused())
	_, err = k.Push([]byte(`{"a":1}` + "\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaused)

	k.Resume()
	assert.False(t, k.IsPaused())
	out, err := k.Push([]byte(`{"a":1}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(out))
}

func TestKernelFinishAfterFinishErrors(t *testing.T) {
	k, err := NewKernel(Options{InputFormat: FormatNDJSON, OutputFormat: FormatNDJSON})
	require.NoError(t, err)

	_, err = k.Push([]byte(`{"a":1}` + "\n"))
	require.NoError(t, err)
	_, err = k.Finish()
	require.NoError(t, err)

	_, err = k.Push([]byte(`{"a":2}` + "\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFinished)

	_, err = k.Finish()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFinished)
}

func TestKernelXMLDetectionAndConvert(t *testing.T) {
	in := `<rows><row><name>Ada</name><age>36</age></row><row><name>Linus</name><age>54</age></row></rows>`
	out, _, err := Convert([]byte(in), Options{
		InputFormat:  FormatXML,
		OutputFormat: FormatJSON,
		XML:          XMLOptions{RecordElement: "row"},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Ada","age":"36"},{"name":"Linus","age":"54"}]`, string(out))
}

func TestKernelAutoDetectXML(t *testing.T) {
	in := `<rows><row><name>Ada</name></row><row><name>Linus</name></row></rows>`
	out, _, err := Convert([]byte(in), Options{
		InputFormat:  FormatAuto,
		OutputFormat: FormatNDJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"name\":\"Ada\"}\n{\"name\":\"Linus\"}\n", string(out))
}

func TestKernelBufferOverflow(t *testing.T) {
	k, err := NewKernel(Options{
		InputFormat:    FormatNDJSON,
		OutputFormat:   FormatNDJSON,
		MaxBufferBytes: 4,
	})
	require.NoError(t, err)

	_, err = k.Push([]byte(`{"a":"this is a long value that exceeds the cap"}` + "\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBufferOverflow)
}

func TestKernelHeaderOnlyDSVYieldsZeroRecords(t *testing.T) {
	out, stats, err := Convert([]byte("a,b\n"), Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
	assert.Equal(t, int64(0), stats.RecordsProcessed)
}

func TestKernelUnterminatedQuotedFieldAtEOF(t *testing.T) {
	_, _, err := Convert([]byte("a,b\n\"unterminated,2\n"), Options{
		InputFormat:  FormatDSV,
		OutputFormat: FormatJSON,
		DSV:          DSVOptions{HasHeader: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}
