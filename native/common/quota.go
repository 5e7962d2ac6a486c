package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the request counters accumulated by a principal inside
// the current epoch.
type QuotaNow struct {
	ReqCount uint32
	EpochID  uint64
}

// Quota defines the per-principal request limits enforced at the service
// edge. EpochSeconds sets the rollover window for the counters.
type Quota struct {
	MaxRequestsPerEpoch uint32
	EpochSeconds        uint32
}

// CheckQuota verifies whether the additional requests fit within the quota.
// The returned QuotaNow reflects the updated counters when the quota is not
// exceeded; on denial the previous counters are returned unchanged.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}

	return next, nil
}
