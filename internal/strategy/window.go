package strategy

// PriceWindow is a fixed-capacity ring of recent prices used by trend-aware
// entry predicates. It holds prices from events that preceded the one
// currently being evaluated.
type PriceWindow struct {
	prices []float64
	head   int
	count  int
}

// NewPriceWindow creates a window holding up to size prices. A size of zero
// is valid and yields a window that is never full.
func NewPriceWindow(size int) *PriceWindow {
	return &PriceWindow{prices: make([]float64, size)}
}

// Push appends a price, evicting the oldest when full.
func (w *PriceWindow) Push(price float64) {
	if len(w.prices) == 0 {
		return
	}
	w.prices[w.head] = price
	w.head = (w.head + 1) % len(w.prices)
	if w.count < len(w.prices) {
		w.count++
	}
}

// Full reports whether the window has accumulated its full capacity.
func (w *PriceWindow) Full() bool {
	return len(w.prices) > 0 && w.count == len(w.prices)
}

// Len returns the number of prices currently held.
func (w *PriceWindow) Len() int { return w.count }

// Oldest returns the earliest price still in the window.
// Callers must check Full or Len first.
func (w *PriceWindow) Oldest() float64 {
	if w.count < len(w.prices) {
		return w.prices[0]
	}
	return w.prices[w.head]
}

// ChangePct returns the fractional price change from the oldest price in
// the window to current. Zero when the window is not yet full.
func (w *PriceWindow) ChangePct(current float64) float64 {
	if !w.Full() {
		return 0
	}
	oldest := w.Oldest()
	if oldest == 0 {
		return 0
	}
	return (current - oldest) / oldest
}
