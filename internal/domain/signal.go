package domain

// SignalKind classifies which known alert pattern a webhook payload matched.
type SignalKind string

const (
	SignalBarcode  SignalKind = "barcode"
	SignalPrism    SignalKind = "prism"
	SignalRSI      SignalKind = "rsi"
	SignalPanTerra SignalKind = "panterra"
	SignalUnknown  SignalKind = "unknown"
)

// Signal is the normalized interpretation of an inbound webhook alert.
type Signal struct {
	Kind      SignalKind `json:"kind"`
	Side      string     `json:"side"` // "buy" or "sell"
	Symbol    string     `json:"symbol"`
	Timeframe string     `json:"tf"`
	Price     string     `json:"price"`
	Low       string     `json:"low"`
	High      string     `json:"high"`
	Fire      string     `json:"fire"`
	Zone      string     `json:"zone"`
}
