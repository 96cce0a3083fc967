package consult

type ErrorCode string

const (
	CodeEmptyInput          ErrorCode = "EMPTY_INPUT"
	CodeDocumentReadFailure ErrorCode = "DOCUMENT_READ_FAILURE"
	CodeMissingCondition    ErrorCode = "MISSING_CONDITION"
)

// ClientError is a failure caused by the caller's input. The HTTP layer
// reports it as 400 with Detail as the message.
type ClientError struct {
	Code   ErrorCode
	Detail string
	Err    error
}

func (e *ClientError) Error() string {
	return e.Detail
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func emptyInputError() *ClientError {
	return &ClientError{Code: CodeEmptyInput, Detail: "No input message or file provided."}
}

func documentReadError(err error) *ClientError {
	return &ClientError{Code: CodeDocumentReadFailure, Detail: "Error reading document: " + err.Error(), Err: err}
}

func missingConditionError() *ClientError {
	return &ClientError{Code: CodeMissingCondition, Detail: "A diagnosed condition is required."}
}
