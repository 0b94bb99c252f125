package ota

import "errors"

// Sentinel errors for OTA transfers.
var (
	// ErrUploadFailed indicates the transfer could not be completed
	// (connection failure, timeout, or non-200 response).
	ErrUploadFailed = errors.New("ota: upload failed")

	// ErrRejected indicates the device received the payload but reported
	// a non-success status.
	ErrRejected = errors.New("ota: device rejected update")

	// ErrBadResponse indicates the device's response body could not be parsed.
	ErrBadResponse = errors.New("ota: malformed device response")
)
