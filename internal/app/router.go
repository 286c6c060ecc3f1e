// internal/app/router.go
package app

import (
	"billhub-service/internal/domain/role"
	auditHandler "billhub-service/internal/handlers/audit"
	authHandler "billhub-service/internal/handlers/auth"
	clientHandler "billhub-service/internal/handlers/client"
	healthHandler "billhub-service/internal/handlers/health"
	invoiceHandler "billhub-service/internal/handlers/invoice"
	roleHandler "billhub-service/internal/handlers/role"
	userHandler "billhub-service/internal/handlers/user"
	"billhub-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth           *authHandler.AuthHandler
	User           *userHandler.UserHandler
	Role           *roleHandler.RoleHandler
	Client         *clientHandler.ClientHandler
	Invoice        *invoiceHandler.InvoiceHandler
	Audit          *auditHandler.AuditHandler
	Health         *healthHandler.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")
	guard := h.AuthMiddleware

	// ==================== Health ====================
	api.GET("/health", h.Health.Check)

	// ==================== Public Auth ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.Auth.Login)
	}

	// ==================== Authenticated Auth ====================
	authProtected := api.Group("/auth")
	authProtected.Use(guard.RequireAuth())
	{
		authProtected.POST("/logout", h.Auth.Logout)
		authProtected.GET("/me", h.Auth.Me)
		authProtected.PUT("/change-password", h.Auth.ChangePassword)
		authProtected.GET("/sessions", h.Auth.Sessions)
		authProtected.DELETE("/sessions/:session_id", h.Auth.RevokeSession)
	}

	// ==================== Users ====================
	users := api.Group("/users")
	users.Use(guard.RequireAuth())
	{
		users.GET("", guard.RequirePermission(role.ModuleUsers, role.ActionView), h.User.List)
		users.GET("/:id", guard.RequirePermission(role.ModuleUsers, role.ActionView), h.User.Get)
		users.POST("", guard.RequirePermission(role.ModuleUsers, role.ActionCreate), h.User.Create)
		users.PUT("/:id", guard.RequirePermission(role.ModuleUsers, role.ActionEdit), h.User.Update)
		users.PUT("/:id/deactivate", guard.RequirePermission(role.ModuleUsers, role.ActionEdit), h.User.Deactivate)
		users.DELETE("/:id", guard.RequirePermission(role.ModuleUsers, role.ActionDelete), h.User.Delete)
	}

	// ==================== Roles ====================
	roles := api.Group("/roles")
	roles.Use(guard.RequireAuth())
	{
		roles.GET("", guard.RequirePermission(role.ModuleRoles, role.ActionView), h.Role.List)
		roles.GET("/:id", guard.RequirePermission(role.ModuleRoles, role.ActionView), h.Role.Get)
		roles.POST("", guard.RequirePermission(role.ModuleRoles, role.ActionCreate), h.Role.Create)
		roles.PUT("/:id", guard.RequirePermission(role.ModuleRoles, role.ActionEdit), h.Role.Update)
		roles.DELETE("/:id", guard.RequirePermission(role.ModuleRoles, role.ActionDelete), h.Role.Delete)
	}

	// ==================== Clients ====================
	clients := api.Group("/clients")
	clients.Use(guard.RequireAuth())
	{
		clients.GET("", guard.RequirePermission(role.ModuleClients, role.ActionView), h.Client.List)
		clients.GET("/:id", guard.RequirePermission(role.ModuleClients, role.ActionView), h.Client.Get)
		clients.POST("", guard.RequirePermission(role.ModuleClients, role.ActionCreate), h.Client.Create)
		clients.PUT("/:id", guard.RequirePermission(role.ModuleClients, role.ActionEdit), h.Client.Update)
		clients.DELETE("/:id", guard.RequirePermission(role.ModuleClients, role.ActionDelete), h.Client.Delete)
	}

	// ==================== Invoices ====================
	invoices := api.Group("/invoices")
	invoices.Use(guard.RequireAuth())
	{
		invoices.GET("", guard.RequirePermission(role.ModuleInvoices, role.ActionView), h.Invoice.List)
		invoices.GET("/:id", guard.RequirePermission(role.ModuleInvoices, role.ActionView), h.Invoice.Get)
		invoices.POST("", guard.RequirePermission(role.ModuleInvoices, role.ActionCreate), h.Invoice.Create)
		invoices.PUT("/:id", guard.RequirePermission(role.ModuleInvoices, role.ActionEdit), h.Invoice.Update)
		invoices.PUT("/:id/status", guard.RequirePermission(role.ModuleInvoices, role.ActionEdit), h.Invoice.Transition)
		invoices.DELETE("/:id", guard.RequirePermission(role.ModuleInvoices, role.ActionDelete), h.Invoice.Delete)
	}

	// ==================== Audit Trail ====================
	auditLogs := api.Group("/audit")
	auditLogs.Use(guard.RequireAuth(), guard.RequireSuperAdmin())
	{
		auditLogs.GET("", h.Audit.List)
	}
}
