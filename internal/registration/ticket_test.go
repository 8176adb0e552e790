package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScan(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "json ticket", raw: `{"regId":"REG-0042","name":"A","mobile":"9000000001"}`, want: "REG-0042"},
		{name: "json ticket with padding", raw: "  {\"regId\":\" REG-0007 \"}\n", want: "REG-0007"},
		{name: "json without regId", raw: `{"name":"A"}`, wantErr: ErrUnrecognizedScan},
		{name: "json null", raw: `null`, wantErr: ErrUnrecognizedScan},
		{name: "raw reg id", raw: "REG-0100", want: "REG-0100"},
		{name: "raw reg id trimmed", raw: "  REG-0100\r\n", want: "REG-0100"},
		{name: "url", raw: "https://example.com/REG-0001", wantErr: ErrUnrecognizedScan},
		{name: "lowercase prefix", raw: "reg-0001", wantErr: ErrUnrecognizedScan},
		{name: "empty", raw: "   ", wantErr: ErrUnrecognizedScan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScan(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
