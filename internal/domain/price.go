package domain

// PriceRecord is a single observed price for a symbol.
// Records are consumed in non-decreasing timestamp order per symbol.
type PriceRecord struct {
	Timestamp int64 // unix seconds
	Symbol    string
	Price     float64
}

// Kline is one OHLCV candle as returned by the acquisition service.
type Kline struct {
	Symbol    string
	Interval  string
	OpenTime  int64 // unix seconds
	CloseTime int64 // unix seconds
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// PriceRecordsFromKlines derives close-price records from OHLCV candles.
func PriceRecordsFromKlines(klines []*Kline) []*PriceRecord {
	records := make([]*PriceRecord, 0, len(klines))
	for _, k := range klines {
		records = append(records, &PriceRecord{
			Timestamp: k.CloseTime,
			Symbol:    k.Symbol,
			Price:     k.Close,
		})
	}
	return records
}
