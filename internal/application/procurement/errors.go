package procurement

import "errors"

var (
	// ErrSyncFetchFailed indicates the ERP batch could not be fetched; the watermark was not advanced
	ErrSyncFetchFailed = errors.New("procurement: erp fetch failed")
	// ErrSyncWatermarkUnavailable indicates the last successful run could not be read
	ErrSyncWatermarkUnavailable = errors.New("procurement: sync watermark unavailable")
	// ErrSyncRunNotRecorded indicates the sync run log could not be written
	ErrSyncRunNotRecorded = errors.New("procurement: sync run not recorded")
	// ErrSyncLocked indicates another process is running a sync pass; no run was recorded
	ErrSyncLocked = errors.New("procurement: sync pass locked by another process")
	// ErrInvalidDecision indicates an unknown order decision
	ErrInvalidDecision = errors.New("procurement: invalid order decision")
	// ErrPurchasingPhoneMissing indicates decision notifications have nowhere to go
	ErrPurchasingPhoneMissing = errors.New("procurement: purchasing phone not configured")
)
