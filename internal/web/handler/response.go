package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

type (
	// ErrorResponse describes one failed validation rule.
	ErrorResponse struct {
		FailedField string `json:"failedField"`
		Tag         string `json:"tag"`
		Param       string `json:"param,omitempty"`
	}

	// GlobalErrorHandlerResp is the body of every api error.
	GlobalErrorHandlerResp struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Errors  []ErrorResponse `json:"errors,omitempty"`
	}
)

// ValidationErrors flattens validator errors found in err's chain.
func ValidationErrors(err error) []ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]ErrorResponse, 0, len(verrs))

	for _, fe := range verrs {
		out = append(out, ErrorResponse{
			FailedField: fe.Namespace(),
			Tag:         fe.Tag(),
			Param:       fe.Param(),
		})
	}

	return out
}

// ErrorHandler renders errors as GlobalErrorHandlerResp.
func ErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(code).JSON(GlobalErrorHandlerResp{Success: false, Message: msg})
}
