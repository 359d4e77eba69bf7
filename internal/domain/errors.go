package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidOperation  = "INVALID_OPERATION"
	ErrCodeEmbeddingProvider = "EMBEDDING_PROVIDER_ERROR"
	ErrCodeGroupCreation     = "GROUP_CREATION_ERROR"
	ErrCodeDetection         = "DETECTION_ERROR"
	ErrCodePersistence       = "PERSISTENCE_ERROR"
)

// Validation errors
var (
	ErrInvalidTaskStatus    = NewDomainError(ErrCodeValidation, "invalid task status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyGroup           = NewDomainError(ErrCodeValidation, "a group needs at least one task")
	ErrInvalidSimilarity    = NewDomainError(ErrCodeValidation, "invalid similarity score")
)

// Not found errors
var (
	ErrTaskNotFound              = NewDomainError(ErrCodeNotFound, "task not found")
	ErrTaskGroupNotFound         = NewDomainError(ErrCodeNotFound, "task group not found")
	ErrDuplicateCheckJobNotFound = NewDomainError(ErrCodeNotFound, "duplicate check job not found")
)

// Already exists errors
var (
	ErrTaskAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "task already exists")
)

// Authorization errors
var (
	ErrMissingOwner = NewDomainError(ErrCodeUnauthorized, "missing owner")
)

// EmbeddingProviderError is returned when the external embedding call fails,
// times out, or returns no data.
type EmbeddingProviderError struct {
	Message string
	Err     error
}

func (e *EmbeddingProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", ErrCodeEmbeddingProvider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", ErrCodeEmbeddingProvider, e.Message)
}

func (e *EmbeddingProviderError) Unwrap() error {
	return e.Err
}

// NewEmbeddingProviderError wraps an upstream embedding failure
func NewEmbeddingProviderError(message string, err error) *EmbeddingProviderError {
	return &EmbeddingProviderError{Message: message, Err: err}
}

// GroupCreationError is returned when a group and its task references could not
// be written. No partial state remains when it is returned.
type GroupCreationError struct {
	TaskIDs []string
	Err     error
}

func (e *GroupCreationError) Error() string {
	return fmt.Sprintf("[%s] failed to create group for %d tasks: %v", ErrCodeGroupCreation, len(e.TaskIDs), e.Err)
}

func (e *GroupCreationError) Unwrap() error {
	return e.Err
}

// DetectionError is returned when duplicate detection cannot run at all,
// e.g. the new description itself could not be embedded.
type DetectionError struct {
	Err error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("[%s] duplicate detection failed: %v", ErrCodeDetection, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}
