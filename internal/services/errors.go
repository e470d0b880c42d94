package services

import "errors"

// Session errors
var (
	ErrNoDataset        = errors.New("no dataset loaded")
	ErrOperationRunning = errors.New("operation already running")
)
