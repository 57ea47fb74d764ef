package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"iocwatch/internal/eventlog"
	"iocwatch/internal/report"
	"iocwatch/internal/threat"
)

func TestCode(t *testing.T) {
	fetchErr := &threat.FetchError{Source: "otx", Err: errors.New("dial tcp: refused")}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"missing credential", fmt.Errorf("run: %w", threat.ErrMissingCredential), CodeMissingCredential},
		{"fetch", fetchErr, CodeFetch},
		{"not found", fmt.Errorf("%w: /tmp/eve.json", eventlog.ErrSourceNotFound), CodeSourceNotFound},
		{"unreadable", fmt.Errorf("%w: EISDIR", eventlog.ErrSourceUnreadable), CodeRead},
		{"write", &report.WriteError{Path: "out.json", Err: errors.New("EACCES")}, CodeWrite},
		{"joined prefers credential", errors.Join(fmt.Errorf("%w: x", eventlog.ErrSourceNotFound), threat.ErrMissingCredential), CodeMissingCredential},
		{"unknown", errors.New("something else"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestDiagnose(t *testing.T) {
	err := &threat.FetchError{Source: "otx", Status: 403, Err: errors.New("Authentication required")}

	quiet := Diagnose(err, false)
	assert.Equal(t, "E101: failed to fetch indicators from OTX", quiet)

	loud := Diagnose(err, true)
	assert.Contains(t, loud, "E101")
	assert.Contains(t, loud, "status 403")
	assert.Contains(t, loud, "Authentication required")

	assert.Equal(t, "E999: unknown flag: --nope", Diagnose(errors.New("unknown flag: --nope"), false))
}
