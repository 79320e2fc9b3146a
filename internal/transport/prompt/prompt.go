package prompt

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	domainprompt "github.com/MikeSquared-Agency/PromptForge/internal/domain/prompt"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	"github.com/MikeSquared-Agency/PromptForge/internal/transport/httperr"
)

// Register mounts the prompt registry REST endpoints on the given router group.
// [SRP] HTTP handler only — calls the registry service for all business logic.
func Register(rg *gin.RouterGroup, svc *registrysvc.Service) {
	rg.POST("/", createPrompt(svc))
	rg.GET("/", listPrompts(svc))
	rg.GET("/:slug", getPrompt(svc))
	rg.PUT("/:slug", updatePrompt(svc))
	rg.DELETE("/:slug", archivePrompt(svc))
	rg.GET("/:slug/chain", getChain(svc))
	rg.GET("/:slug/effective", getEffective(svc))
}

type createPromptReq struct {
	Slug           string            `json:"slug" binding:"required"`
	Name           string            `json:"name" binding:"required"`
	Type           string            `json:"type" binding:"required"`
	Description    string            `json:"description"`
	Tags           []string          `json:"tags"`
	Metadata       map[string]any    `json:"metadata"`
	ParentSlug     string            `json:"parent_slug"`
	InitialContent map[string]any    `json:"initial_content"`
	InitialMessage string            `json:"initial_message"`
}

func createPrompt(svc *registrysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPromptReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.Create(c.Request.Context(), registrysvc.CreateParams{
			Slug:           req.Slug,
			Name:           req.Name,
			Type:           domainprompt.Type(req.Type),
			Description:    req.Description,
			Tags:           req.Tags,
			Metadata:       req.Metadata,
			ParentSlug:     req.ParentSlug,
			InitialContent: content.Document(req.InitialContent),
			InitialMessage: req.InitialMessage,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func listPrompts(svc *registrysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := domainprompt.ListFilters{
			Type:   domainprompt.Type(c.Query("type")),
			Tag:    c.Query("tag"),
			Search: c.Query("search"),
		}
		if c.Query("archived") == "true" {
			filters.Archived = true
		}

		prompts, err := svc.List(c.Request.Context(), filters)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if prompts == nil {
			prompts = []domainprompt.Prompt{}
		}
		c.JSON(http.StatusOK, prompts)
	}
}

func getPrompt(svc *registrysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("slug"))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

type updatePromptReq struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
}

func updatePrompt(svc *registrysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updatePromptReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.Update(c.Request.Context(), c.Param("slug"), domainprompt.UpdateFields{
			Name:        req.Name,
			Description: req.Description,
			Tags:        req.Tags,
			Metadata:    req.Metadata,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func archivePrompt(svc *registrysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Archive(c.Request.Context(), c.Param("slug")); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func getChain(svc *registrysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		chain, err := svc.Chain(c.Request.Context(), c.Param("slug"))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, chain)
	}
}

// getEffective returns the prompt's content with ancestor layers applied,
// child keys winning. ?branch= selects the line, ?version= pins the child.
func getEffective(svc *registrysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		branch := c.DefaultQuery("branch", "main")

		var pinned *int
		if v := c.Query("version"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
				return
			}
			pinned = &n
		}

		doc, err := svc.EffectiveContent(c.Request.Context(), c.Param("slug"), branch, pinned)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"slug": c.Param("slug"), "branch": branch, "content": doc})
	}
}
