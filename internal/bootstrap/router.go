package bootstrap

import (
	httpapi "github.com/crowdvault/escrow-backend/internal/api/http"
	"github.com/crowdvault/escrow-backend/internal/auth"
	escrowhttp "github.com/crowdvault/escrow-backend/internal/escrow/http"
	"github.com/crowdvault/escrow-backend/internal/escrow/service"
	"github.com/crowdvault/escrow-backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Escrow      *service.EscrowService
	DB          *pgxpool.Pool

	// Commands per second per caller; 0 disables the limiter.
	RateLimit float64
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware())
	api.Use(auth.WithCaller())
	if dep.RateLimit > 0 {
		api.Use(middleware.CallerRateLimit(dep.RateLimit, int(dep.RateLimit)*2))
	}

	escrowHandler := escrowhttp.NewHandler(dep.Escrow)
	escrowHandler.Register(api)

	return r
}
