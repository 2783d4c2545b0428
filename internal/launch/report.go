package launch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
)

var errNoResult = errors.New("no result reported")

// Report writes the single structured success message, without a
// trailing newline.
func Report(w io.Writer, r Result) error {
	if _, err := fmt.Fprintf(w, `{"pid": %d}`, r.PID); err != nil {
		return fmt.Errorf("failed to report pid %d: %w", r.PID, err)
	}
	return nil
}

// ReadResult parses the first JSON value in r as a Result.
func ReadResult(r io.Reader) (Result, error) {
	return DecodeResult(json.NewDecoder(r))
}

// DecodeResult reads the next value from dec. Anything after it is left in
// the decoder.
func DecodeResult(dec *json.Decoder) (Result, error) {
	var raw struct {
		PID *int `json:"pid"`
	}
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, errNoResult
		}
		return Result{}, fmt.Errorf("failed to deserialize result: %w", err)
	}
	if raw.PID == nil {
		return Result{}, fmt.Errorf("result has no pid")
	}
	if *raw.PID <= 0 {
		return Result{}, fmt.Errorf("invalid pid %d", *raw.PID)
	}
	return Result{PID: *raw.PID}, nil
}

var reportPattern = regexp.MustCompile(`\{"pid":\s*-?\d+\}`)

// maxReportLen bounds how much unmatched output is held back while looking
// for a report that may be split across reads.
const maxReportLen = 64

// ScanResult reads r until a report shows up. In direct mode the launched
// program shares the stream and may write first, so everything before the
// report is copied to w. The bytes read past the report are returned.
func ScanResult(r io.Reader, w io.Writer) (Result, []byte, error) {
	var pending []byte
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		pending = append(pending, buf[:n]...)

		if loc := reportPattern.FindIndex(pending); loc != nil {
			w.Write(pending[:loc[0]])
			res, perr := ReadResult(bytes.NewReader(pending[loc[0]:loc[1]]))
			return res, pending[loc[1]:], perr
		}
		if keep := len(pending) - maxReportLen; keep > 0 {
			w.Write(pending[:keep])
			pending = append([]byte(nil), pending[keep:]...)
		}

		if err != nil {
			w.Write(pending)
			if errors.Is(err, io.EOF) {
				return Result{}, nil, errNoResult
			}
			return Result{}, nil, err
		}
	}
}
