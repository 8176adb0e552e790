package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"

	"regportal/cmd/middleware"
	"regportal/internal/auth"
	"regportal/internal/service"
)

type Routers struct {
	Service service.Service
	Tokens  *auth.TokenManager
	// Mode is the gin mode; empty means release.
	Mode string
	// AllowOrigins get credentialed CORS. Without them any origin is
	// allowed and credentials are not.
	AllowOrigins []string
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	})
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = "release"
	}
	app := ginext.New(mode)

	app.Use(middleware.LoggingMiddleware())
	app.Use(corsMiddleware(r.AllowOrigins))

	public := app.Group("/v1")
	public.GET("/settings", r.Service.GetSettings)
	public.GET("/sectors", r.Service.GetSectors)
	public.GET("/register", r.Service.CheckMobile)
	public.POST("/register", r.Service.Register)
	public.POST("/auth/logout", r.Service.Logout)

	adminGroup := app.Group("/v1/admin")
	adminGroup.POST("/login", r.Service.AdminLogin)

	admin := adminGroup.Group("", middleware.RequireRole(r.Tokens, auth.RoleAdmin))
	admin.GET("/stats", r.Service.AdminStats)
	admin.GET("/registrations", r.Service.ListRegistrations)
	admin.DELETE("/registrations/:id", r.Service.DeleteRegistration)
	admin.POST("/admit", r.Service.Admit)

	admin.GET("/sectors", r.Service.ListSectors)
	admin.POST("/sectors", r.Service.CreateSector)
	admin.PUT("/sectors/:id", r.Service.UpdateSector)
	admin.DELETE("/sectors/:id", r.Service.DeleteSector)

	admin.GET("/units", r.Service.ListUnits)
	admin.POST("/units", r.Service.CreateUnit)
	admin.PUT("/units/:id", r.Service.UpdateUnit)
	admin.DELETE("/units/:id", r.Service.DeleteUnit)

	admin.GET("/settings", r.Service.GetAdminSettings)
	admin.PUT("/settings", r.Service.UpdateSettings)

	admin.GET("/sector-admins", r.Service.ListSectorAdmins)
	admin.POST("/sector-admins", r.Service.CreateSectorAdmin)
	admin.PUT("/sector-admins/:id", r.Service.UpdateSectorAdmin)
	admin.DELETE("/sector-admins/:id", r.Service.DeleteSectorAdmin)

	admin.POST("/exports", r.Service.RequestExport)
	admin.GET("/exports/:file", r.Service.DownloadExport)

	sectorGroup := app.Group("/v1/sector")
	sectorGroup.POST("/login", r.Service.SectorLogin)

	sector := sectorGroup.Group("", middleware.RequireRole(r.Tokens, auth.RoleSector))
	sector.GET("/stats", r.Service.SectorStats)
	sector.GET("/registrations", r.Service.SectorRegistrations)
	sector.GET("/units", r.Service.SectorUnits)
	sector.POST("/exports", r.Service.RequestExport)
	sector.GET("/exports/:file", r.Service.DownloadExport)

	return app
}
