package tx

import "testing"

func TestEstimateTxFee(t *testing.T) {
	const overhead = 25  // type(1) + inputCount(4) + outputCount(4) + unlockHeight(8) + sequenceID(8)
	const perInput = 72  // 64-byte outpoint hash + 4-byte index + 4-byte unlock age
	const perOutput = 46 // 8-byte value + 1-byte lock type + 4-byte len + 33-byte pubkey

	tests := []struct {
		name       string
		numInputs  int
		numOutputs int
		feeRate    uint64
		want       uint64
	}{
		{"zero rate", 1, 2, 0, 0},
		{"simple 1-in 2-out", 1, 2, 10, uint64(overhead+perInput+2*perOutput) * 10},
		{"2-in 2-out", 2, 2, 10, uint64(overhead+2*perInput+2*perOutput) * 10},
		{"consolidate 10-in 1-out", 10, 1, 10, uint64(overhead+10*perInput+perOutput) * 10},
		{"rate 1", 1, 1, 1, uint64(overhead + perInput + perOutput)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTxFee(tt.numInputs, tt.numOutputs, tt.feeRate)
			if got != tt.want {
				t.Errorf("EstimateTxFee(%d, %d, %d) = %d, want %d",
					tt.numInputs, tt.numOutputs, tt.feeRate, got, tt.want)
			}
		})
	}
}
