package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"equal-weight-index/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(universe_size|base_level|date:ticker=close,...|...)
// with snapshots in the given order and tickers sorted; a missing close
// is written as an empty value. Returns hex-encoded hash (64 characters).
func ComputeRunID(universeSize int, baseLevel float64, snapshots []*domain.Snapshot) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s", universeSize, strconv.FormatFloat(baseLevel, 'f', -1, 64))

	for _, s := range snapshots {
		fmt.Fprintf(h, "|%s:", s.DateKey())
		for i, ticker := range s.Tickers.Sorted() {
			if i > 0 {
				h.Write([]byte{','})
			}
			h.Write([]byte(ticker))
			h.Write([]byte{'='})
			if p, ok := s.Price(ticker); ok {
				h.Write([]byte(strconv.FormatFloat(p, 'f', -1, 64)))
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
