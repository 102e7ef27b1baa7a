package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "email and password are required"})
	}
	user, err := s.auth.Signup(c.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	token, err := s.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"accessToken": token})
}

func (s *Server) handleVerify(c *fiber.Ctx) error {
	if c.Query("type") != "signup" {
		return s.respondError(c, zerrors.Unauthorizedf("unsupported verification type"))
	}
	if err := s.auth.VerifySignup(c.Context(), c.Query("token")); err != nil {
		return s.respondError(c, err)
	}
	if redirect := c.Query("redirectTo"); redirect != "" {
		return c.Redirect(redirect)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if err := s.auth.RecoverPassword(c.Context(), req.Email); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if err := s.auth.ResetPassword(c.Context(), req.Token, req.Password); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
