package handlers

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the order-service API on api (normally /api/v1).
// Static order paths are registered before /orders/:id.
func RegisterRoutes(api fiber.Router, carts *CartHandler, orders *OrderHandler, payments *PaymentHandler) {
	requireUser := RequireUser()

	cartRoutes := api.Group("/carts", requireUser)
	cartRoutes.Get("/", carts.GetCart)
	cartRoutes.Delete("/", carts.ClearCart)
	cartRoutes.Post("/items", carts.AddItem)
	cartRoutes.Put("/items/:product_id", carts.UpdateItem)
	cartRoutes.Delete("/items/:product_id", carts.RemoveItem)

	orderRoutes := api.Group("/orders")
	orderRoutes.Post("/", requireUser, orders.CreateOrder)
	orderRoutes.Get("/user", requireUser, orders.GetUserOrders)
	orderRoutes.Get("/user/recent", requireUser, orders.GetRecentUserOrders)
	orderRoutes.Get("/user/status", requireUser, orders.GetUserOrdersByStatus)
	orderRoutes.Get("/status/:status", orders.GetOrdersByStatus)
	orderRoutes.Get("/date-range", orders.GetOrdersByDateRange)
	orderRoutes.Get("/:id", orders.GetOrderByID)
	orderRoutes.Put("/:id/status", orders.UpdateOrderStatus)
	orderRoutes.Post("/:id/cancel", requireUser, orders.CancelOrder)

	paymentRoutes := api.Group("/payments")
	paymentRoutes.Put("/:id/status", payments.UpdatePaymentStatus)
}
