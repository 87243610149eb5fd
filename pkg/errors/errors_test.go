package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeInsufficientFunds)
	assert.Equal(t, http.StatusBadRequest, meta.HTTPStatus)
	assert.True(t, meta.DetailsAllowed)

	meta = MetadataFor(CodeInvalidStateTransition)
	assert.Equal(t, http.StatusUnprocessableEntity, meta.HTTPStatus)
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOT_A_REAL_CODE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestAsUnwrapsThroughChain(t *testing.T) {
	base := New(CodeWithdrawalPending, "pending withdrawal exists")
	wrapped := fmt.Errorf("request failed: %w", base)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeWithdrawalPending, typed.Code())
}

func TestIsCode(t *testing.T) {
	err := Wrap(CodeInsufficientTokens, fmt.Errorf("db says no"), "consume tokens")
	assert.True(t, IsCode(err, CodeInsufficientTokens))
	assert.False(t, IsCode(err, CodeInsufficientFunds))
	assert.False(t, IsCode(nil, CodeInsufficientFunds))
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("socket closed"), "payout provider call")
	dump := Dump(err)
	assert.Equal(t, CodeDependency, dump.Code)
	assert.Len(t, dump.Chain, 2)
}
