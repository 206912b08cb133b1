package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/sunho-park/poswatch/internal/domain"
)

// Exporter dumps one day's closed trades to object storage as JSONL, so the
// bounded in-memory history can be trimmed without losing the record.
type Exporter struct {
	writer  *Writer
	history domain.TradeHistory
}

// NewExporter creates an Exporter reading trades from history and writing
// through writer.
func NewExporter(writer *Writer, history domain.TradeHistory) *Exporter {
	return &Exporter{writer: writer, history: history}
}

// ExportDay uploads every trade closed on the given calendar day (YYYY-MM-DD)
// to archive/trades/<day>.jsonl. It returns the number of trades exported;
// a day with no trades uploads nothing.
func (e *Exporter) ExportDay(ctx context.Context, day string) (int, error) {
	trades, err := e.history.ListDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("s3blob: export day %s query: %w", day, err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: export day %s marshal: %w", day, err)
	}

	path := fmt.Sprintf("archive/trades/%s.jsonl", day)
	if err := e.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: export day %s upload: %w", day, err)
	}
	return len(trades), nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
