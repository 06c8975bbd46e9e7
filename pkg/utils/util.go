package utils

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/speps/go-hashids/v2"
)

// GenUserID returns 32 lowercase hex characters.
func GenUserID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func GenReferralCode(salt string, id int64) string {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return ""
	}
	e, err := h.EncodeInt64([]int64{id})
	if err != nil {
		return ""
	}
	return e
}

// TruncatePoints drops the fractional part. NaN and negative infinity map to 0.
func TruncatePoints(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, -1) {
		return 0
	}
	if math.IsInf(v, 1) || v >= math.MaxInt64 {
		return math.MaxInt64
	}
	if v <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(v)
}
