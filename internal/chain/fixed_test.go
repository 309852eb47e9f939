package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixed18RoundTrip(t *testing.T) {
	v := ToFixed18(1.5)
	assert.Equal(t, big.NewInt(0).Mul(big.NewInt(15), big.NewInt(1e17)), v)
	assert.InDelta(t, 1.5, FromFixed18(v), 1e-9)
}

func TestFixed18Zero(t *testing.T) {
	assert.Equal(t, big.NewInt(0), ToFixed18(0))
	assert.Equal(t, 0.0, FromFixed18(big.NewInt(0)))
}

func TestErrorsDistinguishable(t *testing.T) {
	assert.ErrorIs(t, ErrReadOnly, ErrReadOnly)
	assert.NotErrorIs(t, ErrReadOnly, ErrRegistrationSkipped)

	txErr := &TxError{Op: "postSignal", Err: ErrInvalidConfidence}
	assert.ErrorIs(t, txErr, ErrInvalidConfidence)
	assert.Contains(t, txErr.Error(), "postSignal")
}
