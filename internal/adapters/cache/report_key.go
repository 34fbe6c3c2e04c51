package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ReportKey derives a cache key from the document version and body.
func ReportKey(version int, body []byte) string {
	d := xxhash.New()
	_, _ = d.WriteString("v" + strconv.Itoa(version) + ":")
	_, _ = d.Write(body)
	return "report:" + strconv.FormatUint(d.Sum64(), 16)
}

// reportEntry is a cached report together with a fingerprint of the body it
// was computed from, so a key collision reads as a miss.
type reportEntry struct {
	Length int             `json:"length"`
	SHA256 string          `json:"sha256"`
	Report json.RawMessage `json:"report"`
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// SealReport wraps report for storage under ReportKey(body).
func SealReport(body, report []byte) ([]byte, error) {
	b, err := json.Marshal(reportEntry{Length: len(body), SHA256: fingerprint(body), Report: report})
	if err != nil {
		return nil, fmt.Errorf("seal report: %w", err)
	}
	return b, nil
}

// OpenReport returns the report in entry when it was sealed for body.
func OpenReport(body, entry []byte) ([]byte, bool) {
	var e reportEntry
	if err := json.Unmarshal(entry, &e); err != nil {
		return nil, false
	}
	if e.Length != len(body) || e.SHA256 != fingerprint(body) || len(e.Report) == 0 {
		return nil, false
	}
	return e.Report, true
}
