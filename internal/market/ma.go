package market

// RollingMA is a streaming simple moving average over the last N prices.
type RollingMA struct {
	period int
	prices []float64
	head   int
	count  int
	sum    float64
}

// NewRollingMA creates a rolling average with the given period.
func NewRollingMA(period int) *RollingMA {
	if period <= 0 {
		period = 1
	}
	return &RollingMA{period: period, prices: make([]float64, period)}
}

// Update pushes a new price into the window.
func (m *RollingMA) Update(price float64) {
	if m.count == m.period {
		m.sum -= m.prices[m.head]
	} else {
		m.count++
	}
	m.prices[m.head] = price
	m.sum += price
	m.head = (m.head + 1) % m.period
}

// Ready reports whether a full window has been observed.
func (m *RollingMA) Ready() bool { return m.count == m.period }

// Value returns the current average; zero before Ready.
func (m *RollingMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(m.period)
}

// Enricher populates the optional MA50/MA200 fields of live ticks from
// per-symbol rolling windows. Historical sources carry precomputed averages,
// so the enricher only fills fields that are still nil and leaves ticks
// untouched until the window is warm.
type Enricher struct {
	fastPeriod int
	slowPeriod int
	fast       map[string]*RollingMA
	slow       map[string]*RollingMA
}

// NewEnricher builds an enricher with the given fast/slow periods.
func NewEnricher(fastPeriod, slowPeriod int) *Enricher {
	return &Enricher{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		fast:       make(map[string]*RollingMA),
		slow:       make(map[string]*RollingMA),
	}
}

// Apply feeds the tick into the symbol's windows and returns a copy with the
// moving-average fields set where the windows are warm.
func (e *Enricher) Apply(t Tick) Tick {
	fast := e.fast[t.Symbol]
	if fast == nil {
		fast = NewRollingMA(e.fastPeriod)
		e.fast[t.Symbol] = fast
	}
	slow := e.slow[t.Symbol]
	if slow == nil {
		slow = NewRollingMA(e.slowPeriod)
		e.slow[t.Symbol] = slow
	}
	fast.Update(t.Price)
	slow.Update(t.Price)

	if t.MA50 == nil && fast.Ready() {
		t.MA50 = Float(fast.Value())
	}
	if t.MA200 == nil && slow.Ready() {
		t.MA200 = Float(slow.Value())
	}
	return t
}
