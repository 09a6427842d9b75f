package application

type MockCalculationRecorder struct {
	Calls map[string]int
}

func (m *MockCalculationRecorder) TaxCalculated(taxpayerType string) {
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[taxpayerType]++
}
