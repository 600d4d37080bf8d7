package app

import (
	"mentor_lms_backend/docs"
	"mentor_lms_backend/internal/config"
	"mentor_lms_backend/internal/middleware"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg, repos.user))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		a.registerStudentRoutes(authGroup, c)
		a.registerMentorRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
		public.GET("/certificates/verify/:number", c.certificate.VerifyCertificate)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	student := group.Group("/student")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.GET("/courses/:courseId/chapters", c.progress.GetChapterStates)
		student.POST("/chapters/:chapterId/complete", c.progress.CompleteChapter)
		student.GET("/progress", c.progress.GetAllProgress)
		student.GET("/progress/:courseId", c.progress.GetCourseProgress)

		student.POST("/courses/:courseId/certificate", c.certificate.IssueCertificate)
		student.GET("/certificates", c.certificate.ListMyCertificates)
	}
}

func (a *App) registerMentorRoutes(group *gin.RouterGroup, c *controllers) {
	mentor := group.Group("/mentor")
	mentor.Use(middleware.RoleMiddleware(model.Mentor))
	{
		mentor.POST("/courses", c.course.CreateCourse)
		mentor.GET("/courses", c.course.ListCourses)
		mentor.POST("/courses/:courseId/chapters", c.course.AddChapter)
		mentor.GET("/courses/:courseId/chapters", c.course.ListChapters)
		mentor.DELETE("/courses/:courseId/chapters/:chapterId", c.course.DeleteChapter)
		mentor.POST("/courses/:courseId/enrollments", c.course.AssignStudent)
		mentor.GET("/courses/:courseId/enrollments", c.course.ListEnrollments)

		mentor.GET("/progress", c.progress.GetMentorStudentsProgress)
	}
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	admin := group.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/users", c.user.CreateUser)
		admin.GET("/users", c.user.GetUsers)
		admin.POST("/users/:id/disable", c.user.DisableUser)
	}
}
