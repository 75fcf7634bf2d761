package models

import "math"

type Pagination struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

func NewPagination(page, size int, total int64) Pagination {
	totalPages := int64(0)
	if size > 0 {
		totalPages = int64(math.Ceil(float64(total) / float64(size)))
	}
	return Pagination{
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

type ApiResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Token      string      `json:"token,omitempty"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func ErrorResponse(message string) ApiResponse {
	return ApiResponse{
		Success: false,
		Message: message,
	}
}

func PaginatedResponse(data interface{}, pagination Pagination, message string) ApiResponse {
	return ApiResponse{
		Success:    true,
		Data:       data,
		Message:    message,
		Pagination: &pagination,
	}
}
