package types

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	sum, v := Add(3, 4)
	if v != AmountValid || sum != 7 {
		t.Errorf("Add(3,4) = (%d,%v), want (7,Valid)", sum, v)
	}

	zero, v := Add(0, 0)
	if v != AmountZero || zero != 0 {
		t.Errorf("Add(0,0) = (%d,%v), want (0,Zero)", zero, v)
	}

	_, v = Add(math.MaxUint64, 1)
	if v != AmountInvalid {
		t.Errorf("Add overflow should be Invalid, got %v", v)
	}
}

func TestSub(t *testing.T) {
	diff, v := Sub(10, 4)
	if v != AmountValid || diff != 6 {
		t.Errorf("Sub(10,4) = (%d,%v), want (6,Valid)", diff, v)
	}

	zero, v := Sub(5, 5)
	if v != AmountZero || zero != 0 {
		t.Errorf("Sub(5,5) = (%d,%v), want (0,Zero)", zero, v)
	}

	_, v = Sub(3, 4)
	if v != AmountInvalid {
		t.Errorf("Sub underflow should be Invalid, got %v", v)
	}
}

func TestSumAmounts(t *testing.T) {
	total, v := SumAmounts([]Amount{1, 2, 3, 4})
	if v != AmountValid || total != 10 {
		t.Errorf("SumAmounts = (%d,%v), want (10,Valid)", total, v)
	}

	total, v = SumAmounts(nil)
	if v != AmountZero || total != 0 {
		t.Errorf("SumAmounts(nil) = (%d,%v), want (0,Zero)", total, v)
	}

	_, v = SumAmounts([]Amount{math.MaxUint64, 1})
	if v != AmountInvalid {
		t.Errorf("SumAmounts overflow should be Invalid, got %v", v)
	}
}
