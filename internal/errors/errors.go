package errors

// FetchError classifies an exhausted market data fetch. The orchestrator
// surfaces it to the scheduler as a failed run.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return "market fetch failed: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StorageError classifies an unrecoverable staging or fact store failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
