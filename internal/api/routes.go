package api

import "github.com/labstack/echo/v4"

// RegisterHandlers mounts the REST API on a /api/v1 group.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.GET("/workflow", s.GetWorkflow)
	g.GET("/workflow/steps/:id", s.GetStep)
	g.GET("/workflow/steps/:id/mapping", s.GetStepMapping)

	g.GET("/posts", s.ListPosts)
	g.POST("/posts", s.CreatePost)
	g.GET("/posts/:id", s.GetPost)
	g.PATCH("/posts/:id", s.UpdatePost)
	g.POST("/posts/:id/status", s.SetPostStatus)
	g.GET("/posts/:id/development", s.GetDevelopment)
	g.PATCH("/posts/:id/development", s.UpdateDevelopment)
	g.GET("/posts/:id/sections", s.ListSections)
	g.POST("/posts/:id/sections", s.CreateSection)
	g.PUT("/posts/:id/sections/order", s.ReorderSections)
	g.PATCH("/posts/:id/sections/:sectionId", s.UpdateSection)
	g.DELETE("/posts/:id/sections/:sectionId", s.DeleteSection)
	g.POST("/posts/:id/steps/run", s.RunStepByPath)
	g.POST("/posts/:id/steps/:stepId/run", s.RunStep)
	g.POST("/posts/:id/steps/:stepId/result", s.SaveStepResult)
	g.GET("/posts/:id/runs", s.ListRuns)

	g.GET("/llm/providers", s.ListProviders)
	g.POST("/llm/providers", s.CreateProvider)
	g.GET("/llm/actions", s.ListActions)
	g.POST("/llm/actions", s.CreateAction)
	g.GET("/llm/actions/:id", s.GetAction)

	g.GET("/services", s.ListServices)
}
