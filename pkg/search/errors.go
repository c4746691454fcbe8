package search

import "fmt"

// UnknownFolderError is returned when the folder selector is not one of the
// well known kinds.
type UnknownFolderError struct {
	Folder string
	Err    error
}

func (e *UnknownFolderError) Error() string {
	return fmt.Sprintf("unknown folder %q: %v", e.Folder, e.Err)
}

func (e *UnknownFolderError) Unwrap() error { return e.Err }

// InvalidFilterError is returned for malformed filter input. It is raised
// before the gateway is touched.
type InvalidFilterError struct {
	Err error
}

func (e *InvalidFilterError) Error() string {
	return "invalid filter: " + e.Err.Error()
}

func (e *InvalidFilterError) Unwrap() error { return e.Err }

// FolderResolutionError is returned when the folder or subfolder does not
// exist or cannot be opened.
type FolderResolutionError struct {
	Folder    string
	Subfolder string
	Err       error
}

func (e *FolderResolutionError) Error() string {
	if e.Subfolder != "" {
		return fmt.Sprintf("resolve folder %s/%s: %v", e.Folder, e.Subfolder, e.Err)
	}
	return fmt.Sprintf("resolve folder %s: %v", e.Folder, e.Err)
}

func (e *FolderResolutionError) Unwrap() error { return e.Err }

// SearchExecutionError is returned when the gateway refuses to enumerate or
// restrict the folder.
type SearchExecutionError struct {
	Op  string
	Err error
}

func (e *SearchExecutionError) Error() string {
	return fmt.Sprintf("search %s: %v", e.Op, e.Err)
}

func (e *SearchExecutionError) Unwrap() error { return e.Err }
