package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Library errors
	ErrFolderNotFound  = fmt.Errorf("folder not found")
	ErrFolderExists    = fmt.Errorf("folder already exists")
	ErrMediaNotFound   = fmt.Errorf("media file not found")
	ErrTrackNotFound   = fmt.Errorf("track not found")
	ErrJobNotFound     = fmt.Errorf("processing job not found")
	ErrSettingNotFound = fmt.Errorf("setting not found")

	// Scan and processing errors
	ErrScanActive    = fmt.Errorf("a scan is already running")
	ErrAlreadyQueued = fmt.Errorf("file is already queued or processing")
	ErrToolMissing   = fmt.Errorf("external tool not found")
	ErrTimeout       = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
