package evm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollup_RatiosComeFromSummedFigures(t *testing.T) {
	// A small troubled account must not drag the project index down the way
	// averaging per-account indices would.
	accounts := []AccountFigures{
		{ControlAccountID: "a", PV: d("100"), EV: d("80"), AC: d("100"), BAC: d("200"), EAC: d("220")},
		{ControlAccountID: "b", PV: d("300"), EV: d("300"), AC: d("250"), BAC: d("400"), EAC: d("380")},
	}

	s := Rollup(accounts)

	assertDecimal(t, "400", s.PV, "PV")
	assertDecimal(t, "380", s.EV, "EV")
	assertDecimal(t, "350", s.AC, "AC")
	assertDecimal(t, "600", s.BAC, "BAC")
	assertDecimal(t, "600", s.EAC, "EAC")
	assertDecimal(t, "30", s.CV, "CV")
	assertDecimal(t, "-20", s.SV, "SV")
	assertDecimal(t, "250", s.ETC, "ETC")
	assertDecimal(t, "0", s.VAC, "VAC")
	assertDecimal(t, "1.0857", s.CPI, "CPI")
	assertDecimal(t, "0.95", s.SPI, "SPI")
	require.NotNil(t, s.TCPI)
	assertDecimal(t, "0.88", *s.TCPI, "TCPI")
}

func TestRollup_Empty(t *testing.T) {
	s := Rollup(nil)

	assert.True(t, s.PV.IsZero())
	assert.True(t, s.CPI.IsZero())
	assert.True(t, s.SPI.IsZero())
	assert.Nil(t, s.TCPI)
}

func TestRollup_SingleAccountMatchesItsOwnFigures(t *testing.T) {
	s := Rollup([]AccountFigures{
		{ControlAccountID: "a", PV: d("100000"), EV: d("80000"), AC: d("90000"), BAC: d("200000"), EAC: d("210000")},
	})

	assertDecimal(t, "0.8889", s.CPI, "CPI")
	assertDecimal(t, "0.8", s.SPI, "SPI")
	assertDecimal(t, "-10000", s.VAC, "VAC")
}
