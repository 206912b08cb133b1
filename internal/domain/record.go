package domain

// RawRecord is one untyped record returned by the exchange integration layer:
// a raw position row or a settlement (income) ledger entry. Field names drift
// across exchange API versions, so consumers resolve logical fields through
// ordered alias tables rather than fixed struct shapes.
type RawRecord map[string]any
