package main

import (
	apperrors "github.com/kbukum/whisperjob/errors"
)

func asAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return apperrors.InvalidInput(err.Error())
}
