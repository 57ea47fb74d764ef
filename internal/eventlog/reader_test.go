package eventlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_Fields(t *testing.T) {
	rec, err := ParseLine([]byte(`{"timestamp":"2025-01-01T00:00:00Z","src_ip":"1.2.3.4","dest_ip":"5.6.7.8","alert":{"signature":"Test Sig"},"proto":"TCP"}`))
	require.NoError(t, err)

	require.NotNil(t, rec.Timestamp)
	require.NotNil(t, rec.SrcIP)
	require.NotNil(t, rec.DestIP)
	assert.Equal(t, "2025-01-01T00:00:00Z", *rec.Timestamp)
	assert.Equal(t, "1.2.3.4", *rec.SrcIP)
	assert.Equal(t, "5.6.7.8", *rec.DestIP)
	assert.Equal(t, "Test Sig", rec.AlertSignature)
}

func TestParseLine_AbsentFields(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantSig string
	}{
		{"no alert", `{"event_type":"flow"}`, DefaultSignature},
		{"alert without signature", `{"alert":{"severity":2}}`, DefaultSignature},
		{"null alert", `{"alert":null}`, DefaultSignature},
		{"empty signature kept", `{"alert":{"signature":""}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseLine([]byte(tt.line))
			require.NoError(t, err)
			assert.Nil(t, rec.Timestamp)
			assert.Nil(t, rec.SrcIP)
			assert.Nil(t, rec.DestIP)
			assert.Equal(t, tt.wantSig, rec.AlertSignature)
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	for _, line := range []string{
		`{"src_ip": "1.2.3.4"`,
		`not json`,
		`[1,2,3]`,
		`null`,
		`"string"`,
		`{"src_ip": 42}`,
	} {
		_, err := ParseLine([]byte(line))
		assert.Error(t, err, line)
	}
}

func TestReader_SkipsMalformedAndBlankLines(t *testing.T) {
	input := strings.Join([]string{
		`{"src_ip": "1.2.3.4", "dest_ip": `,
		``,
		`   `,
		`{"src_ip": "10.0.0.1", "dest_ip": "8.8.8.8", "alert": {"signature": "DNS Leak"}}`,
	}, "\n")

	records, malformed, err := Collect(NewReader(strings.NewReader(input)).Records())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "10.0.0.1", *records[0].SrcIP)
	assert.Equal(t, "DNS Leak", records[0].AlertSignature)

	require.Len(t, malformed, 1)
	assert.Equal(t, 1, malformed[0].Line)
	assert.Contains(t, malformed[0].Error(), "line 1")
}

func TestReader_PreservesOrder(t *testing.T) {
	input := "{\"src_ip\":\"a\"}\n{\"src_ip\":\"b\"}\r\n{\"src_ip\":\"c\"}"

	var got []string
	for rec, err := range NewReader(strings.NewReader(input)).Records() {
		require.NoError(t, err)
		got = append(got, *rec.SrcIP)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestReader_OverlongLineIsSkipped(t *testing.T) {
	long := `{"src_ip":"` + strings.Repeat("x", maxLineSize+1024) + `"}`
	input := long + "\n" + `{"src_ip":"8.8.8.8"}` + "\n"

	records, malformed, err := Collect(NewReader(strings.NewReader(input)).Records())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "8.8.8.8", *records[0].SrcIP)

	require.Len(t, malformed, 1)
	assert.Equal(t, 1, malformed[0].Line)
	assert.ErrorIs(t, malformed[0], ErrLineTooLong)
}

func TestReader_LineAtLimit(t *testing.T) {
	prefix, suffix := `{"src_ip":"`, `"}`
	line := prefix + strings.Repeat("y", maxLineSize-len(prefix)-len(suffix)) + suffix
	require.Len(t, line, maxLineSize)

	records, malformed, err := Collect(NewReader(strings.NewReader(line)).Records())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Empty(t, malformed)
}

func TestReader_StopsEarly(t *testing.T) {
	input := "{\"src_ip\":\"a\"}\n{\"src_ip\":\"b\"}\n"

	n := 0
	for range NewReader(strings.NewReader(input)).Records() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestReader_ReadFailure(t *testing.T) {
	r := iotest.DataErrReader(iotest.ErrReader(errors.New("disk gone")))

	_, _, err := Collect(NewReader(r).Records())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnreadable)

	var perr *ParseError
	assert.False(t, errors.As(err, &perr))
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eve.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"src_ip":"1.2.3.4"}`+"\n"), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	records, malformed, err := Collect(r.Records())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Empty(t, malformed)
}

func TestOpen_NotFound(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.Contains(t, err.Error(), "missing.json")
}

func TestReader_CloseWithoutFile(t *testing.T) {
	assert.NoError(t, NewReader(strings.NewReader("")).Close())
}
