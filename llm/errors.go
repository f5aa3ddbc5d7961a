package llm

import "fmt"

// ErrorType classifies what went wrong with a call.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeProvider
	ErrorTypeRequest
	ErrorTypeResponse
	ErrorTypeAPI
	ErrorTypeRateLimit
	ErrorTypeTimeout
	ErrorTypeCanceled
	ErrorTypeAuthentication
	ErrorTypeInvalidInput
	ErrorTypeConfiguration
)

// LLMError wraps a failure with its classification. Callers branch on
// Type rather than parsing messages.
type LLMError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func (e *LLMError) TypeName() string {
	switch e.Type {
	case ErrorTypeProvider:
		return "ProviderError"
	case ErrorTypeRequest:
		return "RequestError"
	case ErrorTypeResponse:
		return "ResponseError"
	case ErrorTypeAPI:
		return "APIError"
	case ErrorTypeRateLimit:
		return "RateLimitError"
	case ErrorTypeTimeout:
		return "TimeoutError"
	case ErrorTypeCanceled:
		return "CanceledError"
	case ErrorTypeAuthentication:
		return "AuthenticationError"
	case ErrorTypeInvalidInput:
		return "InvalidInputError"
	case ErrorTypeConfiguration:
		return "ConfigurationError"
	default:
		return "UnknownError"
	}
}
