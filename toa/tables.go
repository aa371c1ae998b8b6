package toa

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Table I/O for the three schemas the solvers speak:
//
//	receivers:  label,x,y,z              one row per receiver
//	detections: id,<label-1>,...,<label-N>  one row per event, empty cell = missing
//	estimates:  id,x,y,z,error,eq        one row per estimate, event order
//
// Missing arrival times are written as empty cells (or "NaN") and read back
// as NaN — never as zero.

// LoadReceiverTable reads a receiver table from a CSV file.
func LoadReceiverTable(path string) (ReceiverArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening receiver table: %w", err)
	}
	defer f.Close()

	receivers, err := ReadReceiverTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return receivers, nil
}

// ReadReceiverTable parses a receiver table from a reader.
func ReadReceiverTable(r io.Reader) (ReceiverArray, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing receiver CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("receiver table has no data rows")
	}

	header := records[0]
	if len(header) != 4 || !strings.EqualFold(header[0], "label") ||
		!strings.EqualFold(header[1], "x") || !strings.EqualFold(header[2], "y") || !strings.EqualFold(header[3], "z") {
		return nil, fmt.Errorf("receiver table header must be label,x,y,z; got %q", strings.Join(header, ","))
	}

	receivers := make(ReceiverArray, 0, len(records)-1)
	for i, rec := range records[1:] {
		if rec[0] == "" {
			return nil, fmt.Errorf("receiver row %d: empty label", i+1)
		}
		var pos Point3
		for j, dst := range []*float64{&pos.X, &pos.Y, &pos.Z} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("receiver %q: bad %s coordinate %q", rec[0], header[j+1], rec[j+1])
			}
			*dst = v
		}
		receivers = append(receivers, Receiver{Label: strings.TrimSpace(rec[0]), Position: pos})
	}
	return receivers, nil
}

// LoadDetectionTable reads a detection table from a CSV file. The header's
// arrival-time columns must name every receiver label, in any order.
func LoadDetectionTable(path string, receivers ReceiverArray) (DetectionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening detection table: %w", err)
	}
	defer f.Close()

	table, err := ReadDetectionTable(f, receivers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ReadDetectionTable parses a detection table from a reader.
func ReadDetectionTable(r io.Reader, receivers ReceiverArray) (DetectionTable, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing detection CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("detection table has no data rows")
	}

	header := records[0]
	if len(header) < 1 || !strings.EqualFold(header[0], "id") {
		return nil, fmt.Errorf("detection table header must start with id")
	}

	// Map each arrival-time column onto its receiver index.
	columnFor := make([]int, len(receivers))
	for i := range columnFor {
		columnFor[i] = -1
	}
	for col := 1; col < len(header); col++ {
		name := strings.TrimSpace(header[col])
		found := false
		for i, rx := range receivers {
			if rx.Label == name {
				columnFor[i] = col
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("detection column %q does not match any receiver label", name)
		}
	}
	for i, col := range columnFor {
		if col == -1 {
			return nil, fmt.Errorf("detection table is missing a column for receiver %q", receivers[i].Label)
		}
	}

	table := make(DetectionTable, 0, len(records)-1)
	for rowNum, rec := range records[1:] {
		ev := DetectionEvent{ID: strings.TrimSpace(rec[0]), TOAs: make([]float64, len(receivers))}
		if ev.ID == "" {
			return nil, fmt.Errorf("detection row %d: empty id", rowNum+1)
		}
		for i, col := range columnFor {
			cell := strings.TrimSpace(rec[col])
			if cell == "" || strings.EqualFold(cell, "nan") {
				ev.TOAs[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("event %q: bad arrival time %q for receiver %q", ev.ID, cell, receivers[i].Label)
			}
			ev.TOAs[i] = v
		}
		table = append(table, ev)
	}
	return table, nil
}

// WriteEstimateTable writes estimates as CSV in the fixed output schema
// id,x,y,z,error,eq, preserving the order given.
func WriteEstimateTable(w io.Writer, estimates []Estimate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "x", "y", "z", "error", "eq"}); err != nil {
		return fmt.Errorf("writing estimate header: %w", err)
	}
	for _, e := range estimates {
		row := []string{
			e.ID,
			strconv.FormatFloat(e.X, 'g', -1, 64),
			strconv.FormatFloat(e.Y, 'g', -1, 64),
			strconv.FormatFloat(e.Z, 'g', -1, 64),
			strconv.FormatFloat(e.Error, 'g', -1, 64),
			e.Eq,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing estimate row for %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveEstimateTable writes the estimate table to a file.
func SaveEstimateTable(path string, estimates []Estimate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating estimate table: %w", err)
	}
	defer f.Close()
	if err := WriteEstimateTable(f, estimates); err != nil {
		return err
	}
	return f.Close()
}

// LoadEstimateTable reads a previously written estimate table back from a
// CSV file, for replotting without re-solving.
func LoadEstimateTable(path string) ([]Estimate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening estimate table: %w", err)
	}
	defer f.Close()

	estimates, err := ReadEstimateTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return estimates, nil
}

// ReadEstimateTable parses an estimate table from a reader.
func ReadEstimateTable(r io.Reader) ([]Estimate, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing estimate CSV: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("estimate table has no header")
	}

	header := records[0]
	want := []string{"id", "x", "y", "z", "error", "eq"}
	if len(header) != len(want) {
		return nil, fmt.Errorf("estimate table header must be %s", strings.Join(want, ","))
	}
	for i, name := range want {
		if !strings.EqualFold(strings.TrimSpace(header[i]), name) {
			return nil, fmt.Errorf("estimate table header must be %s; got %q", strings.Join(want, ","), strings.Join(header, ","))
		}
	}

	estimates := make([]Estimate, 0, len(records)-1)
	for _, rec := range records[1:] {
		e := Estimate{ID: strings.TrimSpace(rec[0]), Eq: strings.TrimSpace(rec[5])}
		if e.ID == "" {
			return nil, fmt.Errorf("estimate row %d: empty id", len(estimates)+1)
		}
		for j, dst := range []*float64{&e.X, &e.Y, &e.Z, &e.Error} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("estimate %q: bad %s value %q", e.ID, want[j+1], rec[j+1])
			}
			*dst = v
		}
		estimates = append(estimates, e)
	}
	return estimates, nil
}

// WriteDetectionTable writes a detection table as CSV, emitting empty cells
// for missing arrival times.
func WriteDetectionTable(w io.Writer, receivers ReceiverArray, table DetectionTable) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(receivers)+1)
	header = append(header, "id")
	for _, rx := range receivers {
		header = append(header, rx.Label)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing detection header: %w", err)
	}
	for _, ev := range table {
		row := make([]string, 0, len(receivers)+1)
		row = append(row, ev.ID)
		for i := range receivers {
			if !ev.HasTOA(i) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(ev.TOAs[i], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing detection row for %s: %w", ev.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
