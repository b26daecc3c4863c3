package service

import (
	"fmt"

	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/types"
)

func invalidInput(field, reason string) error {
	return &types.ServiceError{
		Code:    apperrors.CodeInvalidInput,
		Message: fmt.Sprintf("%s %s", field, reason),
		Details: map[string]interface{}{"field": field},
	}
}

func notFound(code, resource, id string) error {
	return &types.ServiceError{
		Code:    code,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]interface{}{"id": id},
	}
}

func unavailable(service string) error {
	return &types.ServiceError{
		Code:    apperrors.CodeServiceUnavailable,
		Message: fmt.Sprintf("%s is not configured", service),
	}
}
