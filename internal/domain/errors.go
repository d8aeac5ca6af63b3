package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrProjectNotFound     = errors.New("project not found")
	ErrSessionNotFound     = errors.New("extraction session not found")
	ErrJobNotFound         = errors.New("extraction job not found")
	ErrCellNotFound        = errors.New("grid cell not found")
	ErrRuleNotFound        = errors.New("extraction rule not found")
	ErrElementNotFound     = errors.New("schema element not found")
	ErrJobTerminal         = errors.New("job is in a terminal state")
	ErrJobStale            = errors.New("job was updated concurrently")
	ErrJobNotCancellable   = errors.New("job can only be cancelled while pending or running")
	ErrSessionBusy         = errors.New("session already has an active job")
	ErrSessionClosed       = errors.New("session is no longer in progress")
	ErrInvalidFieldType    = errors.New("invalid field type")
	ErrDuplicateIdentifier = errors.New("group already has an identifier column")
	ErrInvalidSchema       = errors.New("schema definition is invalid")
)
