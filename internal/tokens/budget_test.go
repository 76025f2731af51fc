package tokens

import "testing"

func TestEvaluate(t *testing.T) {
	b := Budget{
		ModelWindowTokens:    1000,
		SummaryTargetTokens:  200,
		LiveChatTargetTokens: 400,
		ReservedBufferTokens: 100,
	}

	tests := []struct {
		name                            string
		system, summary, live, tools, n int
		wantUsed, wantTotal             int
		wantPressure                    bool
	}{
		{name: "fits comfortably", system: 50, summary: 100, live: 300, tools: 0, n: 50, wantUsed: 500, wantTotal: 600, wantPressure: false},
		{name: "exactly at window", system: 300, summary: 200, live: 300, tools: 50, n: 50, wantUsed: 900, wantTotal: 1000, wantPressure: false},
		{name: "one over window", system: 300, summary: 200, live: 301, tools: 50, n: 50, wantUsed: 901, wantTotal: 1001, wantPressure: true},
		{name: "all zero", wantUsed: 0, wantTotal: 100, wantPressure: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := b.Evaluate(tt.system, tt.summary, tt.live, tt.tools, tt.n)
			if m.UsedWithoutReserve != tt.wantUsed {
				t.Errorf("UsedWithoutReserve = %d, want %d", m.UsedWithoutReserve, tt.wantUsed)
			}
			if m.TotalWithReserve != tt.wantTotal {
				t.Errorf("TotalWithReserve = %d, want %d", m.TotalWithReserve, tt.wantTotal)
			}
			if m.Pressure != tt.wantPressure {
				t.Errorf("Pressure = %v, want %v", m.Pressure, tt.wantPressure)
			}
			if m.ModelWindow != b.ModelWindowTokens {
				t.Errorf("ModelWindow = %d, want %d", m.ModelWindow, b.ModelWindowTokens)
			}
		})
	}
}

func TestEvaluateNegativeReserveClamped(t *testing.T) {
	b := Budget{ModelWindowTokens: 100, ReservedBufferTokens: -50}
	m := b.Evaluate(10, 10, 10, 0, 10)
	if m.ReservedBuffer != 0 {
		t.Errorf("ReservedBuffer = %d, want 0", m.ReservedBuffer)
	}
	if m.TotalWithReserve != 40 {
		t.Errorf("TotalWithReserve = %d, want 40", m.TotalWithReserve)
	}
}

func TestHeadroom(t *testing.T) {
	b := Budget{ModelWindowTokens: 1000, ReservedBufferTokens: 100}

	if got := b.Headroom(400); got != 500 {
		t.Errorf("Headroom(400) = %d, want 500", got)
	}
	if got := b.Headroom(950); got != 0 {
		t.Errorf("Headroom(950) = %d, want 0", got)
	}
	if got := b.Headroom(2000); got != 0 {
		t.Errorf("Headroom(2000) = %d, want 0", got)
	}
}
