package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/angeloszaimis/heartbeat-monitor/internal/monitor"
)

const maxBodyBytes = 1 << 20

var maxTimeoutSeconds = float64(math.MaxInt64/int64(time.Second)) / 2

// decodeRegisterRequest turns a POST /monitors body into a request. A
// non-empty message means the body must be rejected with 400.
//
// Presence is checked before types: a field that is absent, null, empty,
// zero or false counts as missing.
func decodeRegisterRequest(body io.Reader) (monitor.RegisterRequest, string) {
	var req monitor.RegisterRequest

	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return req, msgWrongFormat
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, msgMissingDetails
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return req, msgWrongFormat
	}

	for _, name := range []string{"id", "timeout", "alert_email"} {
		if isFalsy(fields[name]) {
			return req, msgMissingDetails
		}
	}

	var seconds float64
	if json.Unmarshal(fields["id"], &req.ID) != nil ||
		json.Unmarshal(fields["timeout"], &seconds) != nil ||
		json.Unmarshal(fields["alert_email"], &req.AlertTarget) != nil {
		return req, msgWrongFormat
	}
	if seconds > maxTimeoutSeconds {
		return req, msgWrongFormat
	}

	req.Timeout = time.Duration(seconds * float64(time.Second))
	return req, ""
}

func isFalsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, "false", "0":
		return true
	}

	var n float64
	if json.Unmarshal(raw, &n) == nil && n == 0 {
		return true
	}
	return false
}
