// Package export renders persisted cycle records for external tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/gridpilot/gridpilot/core/planlog"
)

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, records []planlog.Record) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCSV writes the records to w in CSV format, one row per cycle.
func WriteCSV(w io.Writer, records []planlog.Record) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "request_id", "backend", "kind", "runtime_s", "slots", "total_cost", "total_revenue", "error"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.Timestamp.Format(time.RFC3339),
			r.RequestID,
			r.Backend,
			r.Kind,
			strconv.FormatFloat(r.Runtime.Seconds(), 'f', -1, 64),
			strconv.Itoa(r.Slots),
			strconv.FormatFloat(r.TotalCost, 'f', -1, 64),
			strconv.FormatFloat(r.TotalRev, 'f', -1, 64),
			r.Error,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
