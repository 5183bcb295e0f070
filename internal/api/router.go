package api

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/in-nis/classdash/docs"
	"github.com/in-nis/classdash/internal/auth"
	"github.com/in-nis/classdash/internal/models"
)

type Deps struct {
	Auth        *auth.Service
	AuthHandler *auth.Handler
	Dashboard   Dashboard
	Classrooms  Classrooms
	DB          Pinger
	Log         *zap.Logger
}

// @title           Classdash API
// @version         1.0
// @description     Student dashboard, classroom enrollment and results export.
// @host            localhost:8000
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func SetupRouter(d Deps) *gin.Engine {
	h := &Handler{
		dashboard:  d.Dashboard,
		classrooms: d.Classrooms,
		db:         d.DB,
		log:        d.Log,
	}

	r := gin.New()
	r.Use(requestLogger(d.Log), gin.Recovery())

	// Public routes
	r.GET("/health", h.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/auth/signup", d.AuthHandler.SignUp)
	r.POST("/auth/signin", d.AuthHandler.SignIn)
	r.POST("/auth/refresh", d.AuthHandler.Refresh)
	r.GET("/auth/google/login", d.AuthHandler.GoogleLogin)
	r.GET("/auth/google/callback", d.AuthHandler.GoogleCallback)

	// Protected
	authed := r.Group("/")
	authed.Use(auth.AuthMiddleware(d.Auth))
	{
		authed.GET("/me", d.AuthHandler.Me)
		authed.POST("/auth/signout", d.AuthHandler.SignOut)
	}

	student := authed.Group("/student", auth.RequireRole(models.RoleStudent))
	{
		student.GET("/dashboard", h.GetDashboard)
		student.POST("/classrooms/join", h.JoinClassroom)
	}

	teacher := authed.Group("/teacher", auth.RequireRole(models.RoleTeacher))
	{
		teacher.GET("/classrooms", h.ListClassrooms)
		teacher.POST("/classrooms", h.CreateClassroom)
		teacher.GET("/classrooms/:id/results", h.Results)
		teacher.GET("/classrooms/:id/results.xlsx", h.ExportResults)
		teacher.POST("/classrooms/:id/students", h.AddStudent)
	}

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
