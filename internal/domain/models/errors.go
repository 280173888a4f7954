package models

import "errors"

var (
	ErrFetchFailure       = errors.New("fetch failure")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrTrainingInProgress = errors.New("training in progress")
	ErrCloudSyncFailure   = errors.New("cloud sync failure")
	ErrConfigInvalid      = errors.New("invalid config")
	ErrModelNotFound      = errors.New("model not found")
	ErrModelInvalid       = errors.New("invalid model")
)
