package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrincipal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid lowercase", input: "0x00000000000000000000000000000000000000a1", wantErr: false},
		{name: "valid checksummed", input: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", wantErr: false},
		{name: "missing prefix", input: "00000000000000000000000000000000000000a1", wantErr: false},
		{name: "too short", input: "0x1234", wantErr: true},
		{name: "not hex", input: "0xzz000000000000000000000000000000000000a1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePrincipal(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, ZeroPrincipal, p)
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, ZeroPrincipal, p)
			}
		})
	}
}

func TestParsePrincipal_RoundTrip(t *testing.T) {
	input := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	p, err := ParsePrincipal(input)
	require.NoError(t, err)

	reparsed, err := ParsePrincipal(p.Hex())
	require.NoError(t, err)
	assert.Equal(t, p, reparsed)
}

func TestValidProposalType(t *testing.T) {
	assert.True(t, ValidProposalType(ProposalRebalance))
	assert.True(t, ValidProposalType(ProposalFeeChange))
	assert.True(t, ValidProposalType(ProposalAssetAdd))

	assert.False(t, ValidProposalType("liquidate"))
	assert.False(t, ValidProposalType(""))
	assert.False(t, ValidProposalType("Rebalance"))
}

func TestServiceError(t *testing.T) {
	err := &ServiceError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be positive",
	}
	assert.Equal(t, "amount must be positive", err.Error())
}
