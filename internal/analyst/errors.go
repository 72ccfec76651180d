package analyst

import "fmt"

// InvalidCredentialError indicates the supplied API credential failed the
// provider's format check. It is raised before any network call is made.
type InvalidCredentialError struct {
	Prefix string
}

func (e *InvalidCredentialError) Error() string {
	return fmt.Sprintf("invalid or missing API key (must start with %q)", e.Prefix)
}

// NoDatasetError indicates a question was asked before any CSV was loaded.
type NoDatasetError struct{}

func (e *NoDatasetError) Error() string {
	return "no dataset loaded; upload a CSV first"
}
