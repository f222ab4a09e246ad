// handlers/catalog_routes.go
package handlers

import (
	"tastetrail-rewards-system/middleware"
	"tastetrail-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, catalog *services.CatalogService) {
	// 🔓 Public catalog reads
	app.Get("/badges", catalog.ListBadges)
	app.Get("/trails", catalog.ListTrails)

	// 🔐 Admin CRUD — the sole writer of catalog rows
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/drops", catalog.CreateDrop)
	admin.Get("/drops", catalog.ListDrops)
	admin.Put("/drops/:id", catalog.UpdateDrop)
	admin.Patch("/drops/:id", catalog.UpdateDrop)
	admin.Delete("/drops/:id", catalog.DeleteDrop)

	admin.Post("/quests", catalog.CreateQuest)
	admin.Get("/quests", catalog.ListQuests)
	admin.Put("/quests/:id", catalog.UpdateQuest)
	admin.Patch("/quests/:id", catalog.UpdateQuest)

	admin.Post("/badges", catalog.CreateBadge)
	admin.Post("/badges/:id/icon", catalog.UploadBadgeIcon)

	admin.Post("/trails", catalog.CreateTrail)
}
