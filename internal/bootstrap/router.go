package bootstrap

import (
	"firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/campushub/backend/internal/api"
	"github.com/campushub/backend/internal/cache"
	"github.com/campushub/backend/internal/mutate"
)

type RouterDeps struct {
	ServiceName  string
	Version      string
	AllowOrigins []string
	MaxUploadMB  int

	Cache    *cache.Cache
	Pipeline *mutate.Pipeline
	Auth     *auth.Client
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	if dep.MaxUploadMB > 0 {
		r.MaxMultipartMemory = int64(dep.MaxUploadMB) << 20
	}

	corsCfg := cors.DefaultConfig()
	if len(dep.AllowOrigins) == 1 && dep.AllowOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = dep.AllowOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders,
		"Authorization", "X-User-Email", "X-User-Name", "X-User-Photo")
	r.Use(cors.New(corsCfg))

	handler := api.NewHandler(dep.Cache, dep.Pipeline, dep.Auth, dep.ServiceName, dep.Version, dep.MaxUploadMB)
	handler.RegisterHealth(r)

	v1 := r.Group("/api/v1")
	v1.Use(api.WithIdentity(dep.Auth))
	handler.Register(v1)

	return r
}
