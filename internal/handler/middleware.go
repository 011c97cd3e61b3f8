package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New()

func HandleBasic[R Request, Res Response](handler BasicHandler[R, Res]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req R

		if err := parseRequest(c, &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "details": err.Error()})
		}

		res, status, err := handler.Handle(c.UserContext(), &req)
		if err != nil {
			logFailure(c, status, err)
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(res)
	}
}

// logFailure keeps client mistakes out of the error log.
func logFailure(c *fiber.Ctx, status int, err error) {
	fields := []zap.Field{zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err)}
	if status >= fiber.StatusInternalServerError {
		zap.L().Error("Failed to handle request", fields...)
		return
	}
	zap.L().Debug("Request rejected", fields...)
}

func parseRequest[R any](c *fiber.Ctx, req *R) error {
	if err := c.BodyParser(req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return err
	}

	if err := c.ParamsParser(req); err != nil {
		return err
	}

	if err := c.QueryParser(req); err != nil {
		return err
	}

	if err := c.ReqHeaderParser(req); err != nil {
		return err
	}

	return nil
}

// HandleWithFiberWS upgrades the request and hands the connection to handler.
// Requests that are not websocket upgrades get 426 from the upgrader.
func HandleWithFiberWS[R Request](handler FiberWSHandler[R], config ...websocket.Config) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		var req R
		handler.HandleWS(c, context.Background(), &req)
	}, config...)
}
