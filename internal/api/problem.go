package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	errs "github.com/p-blackswan/safety-engine/internal/errors"
)

// ProblemDetail is an RFC 7807 error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problem is a client error returned by a handler and rendered by the error
// handler.
type problem struct {
	status int
	typ    string
	title  string
	detail string
}

func (p *problem) Error() string { return p.typ + ": " + p.detail }

func newProblem(status int, errType, title, detail string) error {
	return &problem{status: status, typ: errType, title: title, detail: detail}
}

func badRequest(errType, detail string) error {
	return newProblem(fiber.StatusBadRequest, errType, "Bad Request", detail)
}

func notFound(errType, detail string) error {
	return newProblem(fiber.StatusNotFound, errType, "Not Found", detail)
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// problemFromError maps engine errors onto problems. Anything it does not
// recognize is returned unchanged and answered as a 500.
func problemFromError(err error) error {
	switch {
	case errors.Is(err, errs.ErrUnknownModule):
		return notFound("unknown_module", err.Error())
	case errs.IsMalformed(err):
		return newProblem(fiber.StatusUnprocessableEntity, "malformed_config", "Unprocessable Entity", err.Error())
	case errors.Is(err, errs.ErrInvalidInput):
		return badRequest("invalid_input", err.Error())
	default:
		return err
	}
}

// statusOf returns the HTTP status err will be answered with.
func statusOf(err error) int {
	var p *problem
	if errors.As(err, &p) {
		return p.status
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
