package utils

import "registration-gateway/internal/models"

func ErrorResponse(message string, details any) *models.ErrorResponse {
	return &models.ErrorResponse{
		Success: false,
		Error:   message,
		Details: details,
	}
}
