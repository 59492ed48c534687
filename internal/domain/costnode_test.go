package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostNodeValidateCode(t *testing.T) {
	valid := []string{"01", "01.02", "01.02.03", "99.00.01.07"}
	for _, code := range valid {
		n := &CostNode{Code: code}
		assert.NoError(t, n.ValidateCode(), "code %q", code)
	}

	invalid := []string{"", "1", "01.", ".01", "01.2", "abc", "01-02", "001"}
	for _, code := range invalid {
		n := &CostNode{Code: code}
		assert.ErrorIs(t, n.ValidateCode(), ErrValidation, "code %q", code)
	}
}

func TestCostNodeCurrentBudget(t *testing.T) {
	n := &CostNode{OriginalBudget: d("10000"), ApprovedChanges: d("-2500")}
	assert.True(t, n.CurrentBudget().Equal(d("7500")))
}

func TestCostNodeHasPostings(t *testing.T) {
	assert.False(t, (&CostNode{}).HasPostings())
	assert.True(t, (&CostNode{CommittedCost: d("1")}).HasPostings())
	assert.True(t, (&CostNode{ActualCost: d("1")}).HasPostings())
}

func TestEVMRecordDerivedFigures(t *testing.T) {
	r := &EVMRecord{PV: d("100000"), EV: d("80000"), AC: d("90000"), BAC: d("200000"), EAC: d("210000")}

	assert.True(t, r.CV().Equal(d("-10000")))
	assert.True(t, r.SV().Equal(d("-20000")))
	assert.True(t, r.VAC().Equal(d("-10000")))
	assert.True(t, r.CPI().Equal(d("0.8889")), "cpi: %s", r.CPI())
	assert.True(t, r.SPI().Equal(d("0.8")), "spi: %s", r.SPI())

	tcpi := r.TCPI()
	if assert.NotNil(t, tcpi) {
		assert.True(t, tcpi.Equal(d("1.0909")), "tcpi: %s", tcpi)
	}
}

func TestEVMRecordTCPI_NilWhenBACEqualsAC(t *testing.T) {
	r := &EVMRecord{EV: d("50"), AC: d("100"), BAC: d("100")}
	assert.Nil(t, r.TCPI())
}
