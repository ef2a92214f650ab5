package noteclient

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rcliao/unotes/internal/httpapi"
	"github.com/rcliao/unotes/internal/model"
)

// PayloadKind tags the shape a /notes response arrived in.
type PayloadKind int

const (
	// PayloadEmpty is an empty body.
	PayloadEmpty PayloadKind = iota
	// PayloadSingle is one {"result": note} object.
	PayloadSingle
	// PayloadStream is newline-delimited {"result": note} records.
	PayloadStream
	// PayloadBatch is a {"notes": [...]} object.
	PayloadBatch
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadEmpty:
		return "empty"
	case PayloadSingle:
		return "single"
	case PayloadStream:
		return "stream"
	case PayloadBatch:
		return "batch"
	}
	return fmt.Sprintf("PayloadKind(%d)", int(k))
}

// ListPayload is the parsed list response. Notes holds the records in the
// order they arrived regardless of Kind.
type ListPayload struct {
	Kind  PayloadKind
	Notes []model.Note
}

type streamRecord struct {
	Result *wireNote    `json:"result"`
	Error  *streamError `json:"error"`
	Notes  []wireNote   `json:"notes"`
}

// streamError is the gateway's in-band error record.
type streamError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	HTTPCode int    `json:"http_code"`
}

func (e *streamError) httpError() *httpapi.HTTPError {
	code := e.HTTPCode
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return httpapi.NewHTTPError(code, e.Message)
}

// ParseList normalizes every list response shape into one ListPayload. It
// is the only place that inspects the shape.
func ParseList(body []byte) (ListPayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ListPayload{Kind: PayloadEmpty}, nil
	}

	records, err := splitRecords(body)
	if err != nil {
		return ListPayload{}, err
	}
	for _, rec := range records {
		if rec.Error != nil {
			return ListPayload{}, rec.Error.httpError()
		}
	}

	var p ListPayload
	var wires []wireNote
	switch {
	case len(records) == 1 && records[0].Result == nil:
		if records[0].Notes == nil {
			return ListPayload{}, fmt.Errorf("parse notes: object has neither result nor notes")
		}
		p.Kind = PayloadBatch
		wires = records[0].Notes
	case len(records) == 1:
		p.Kind = PayloadSingle
		wires = []wireNote{*records[0].Result}
	default:
		p.Kind = PayloadStream
		for i, rec := range records {
			if rec.Result == nil {
				return ListPayload{}, fmt.Errorf("parse notes: record %d has no result", i+1)
			}
			wires = append(wires, *rec.Result)
		}
	}

	p.Notes = make([]model.Note, 0, len(wires))
	for _, w := range wires {
		n, err := w.toModel()
		if err != nil {
			return ListPayload{}, err
		}
		p.Notes = append(p.Notes, n)
	}
	return p, nil
}

// splitRecords reads the body as one JSON document, or failing that as
// newline-delimited documents.
func splitRecords(body []byte) ([]streamRecord, error) {
	var whole streamRecord
	if err := json.Unmarshal(body, &whole); err == nil {
		return []streamRecord{whole}, nil
	}

	var records []streamRecord
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec streamRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse notes line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read notes: %w", err)
	}
	return records, nil
}
