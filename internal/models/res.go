package models

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type ApiResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       interface{}       `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// ErrorResponse repeats the error text as the message so every response
// carries one.
func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Message: err,
		Error:   err,
	}
}

func ValidationErrorResponse(err string, fields map[string]string) ApiResponse {
	return ApiResponse{
		Success: false,
		Message: err,
		Error:   err,
		Errors:  fields,
	}
}

func PaginatedResponse(data interface{}, message string, page, limit, total int) ApiResponse {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return ApiResponse{
		Success: true,
		Message: message,
		Data:    data,
		Pagination: &Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}
}
