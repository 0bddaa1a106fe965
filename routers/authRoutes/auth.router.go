package authRoutes

import (
	authController "educhain/controllers/auth"
	authValidators "educhain/validators/auth"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes sets up authentication routes
func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/auth")

	authGroup.Post("/signup", authValidators.Signup(), authController.Signup)
	authGroup.Post("/login", authValidators.Login(), authController.Login)
}
