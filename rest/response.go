// Package rest exposes the auth cache and the debug panel over HTTP.
package rest

import "github.com/gofiber/fiber/v2"

// ResponseData is the envelope of every JSON response. Status only sets the
// HTTP status code.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

func respond(c *fiber.Ctx, res ResponseData) error {
	if res.Status == 0 {
		res.Status = fiber.StatusOK
	}
	return c.Status(res.Status).JSON(res)
}
