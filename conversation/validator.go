package conversation

import (
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"
)

// DefaultMaxFileSize is the largest file the validator accepts.
const DefaultMaxFileSize = 10 * 1024 * 1024

const formatWarning = "file may not be a valid conversation export"

var (
	anyDatePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}|\d{4}-\d{2}-\d{2}`)
	headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s`)
)

// FileValidator gatekeeps raw conversation files before parsing.
type FileValidator struct {
	maxSize int64
}

// ValidatorOption configures a FileValidator.
type ValidatorOption func(*FileValidator)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) ValidatorOption {
	return func(v *FileValidator) {
		if n > 0 {
			v.maxSize = n
		}
	}
}

// NewFileValidator creates a FileValidator.
func NewFileValidator(opts ...ValidatorOption) *FileValidator {
	v := &FileValidator{maxSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks path and returns nil or a *ValidationError.
func (v *FileValidator) Validate(path string) error {
	_, err := v.Read(path)
	return err
}

// Read validates path and returns its content.
//
// Checks run in order and stop at the first failure:
//   - the path exists and can be stat'ed
//   - size is at most the configured maximum
//   - size is non-zero
//   - content is valid UTF-8
//   - content has a DD/MM/YYYY or YYYY-MM-DD date, or a markdown heading
func (v *FileValidator) Read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newValidationError(path, ReasonNotFound, "", nil)
		}
		return nil, newValidationError(path, ReasonInaccessible, "", err)
	}
	if !info.Mode().IsRegular() {
		return nil, newValidationError(path, ReasonInaccessible, "not a regular file", nil)
	}

	if info.Size() > v.maxSize {
		return nil, newValidationError(path, ReasonTooLarge,
			fmt.Sprintf("%d bytes, limit %d", info.Size(), v.maxSize), nil)
	}
	if info.Size() == 0 {
		return nil, newValidationError(path, ReasonEmpty, "", nil)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, newValidationError(path, ReasonInaccessible, "", err)
	}

	if !utf8.Valid(content) {
		return nil, newValidationError(path, ReasonBadEncoding, "", nil)
	}

	if !anyDatePattern.Match(content) && !headingPattern.Match(content) {
		verr := newValidationError(path, ReasonUnrecognizedFormat, "no date or heading found", nil)
		verr.Warnings = []string{formatWarning}
		return nil, verr
	}

	return content, nil
}
