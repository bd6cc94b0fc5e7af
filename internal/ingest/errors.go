package ingest

import "fmt"

// ValidationError rejects a file before any parsing begins, either for an
// unsupported extension or for exceeding the size limit.
type ValidationError struct {
	FileName string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("file %q rejected: %s", e.FileName, e.Reason)
}

// MissingInnerDocumentError indicates a KMZ archive whose directory
// listing contains no .kml entry.
type MissingInnerDocumentError struct {
	Archive string
}

func (e *MissingInnerDocumentError) Error() string {
	return fmt.Sprintf("archive %q contains no .kml document", e.Archive)
}
