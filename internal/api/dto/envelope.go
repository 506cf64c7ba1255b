package dto

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
}

// Pagination describes the page returned in Data.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// ErrorBody carries the machine readable failure.
type ErrorBody struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// OK wraps data in a successful envelope.
func OK(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

// Page wraps a page of items in a successful envelope.
func Page(data any, pagination Pagination) Response {
	return Response{Success: true, Data: data, Pagination: &pagination}
}

// Failure builds the error envelope.
func Failure(code, message string, details map[string]any) Response {
	return Response{Success: false, Message: message, Error: &ErrorBody{Code: code, Details: details}}
}
