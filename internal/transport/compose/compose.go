package compose

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/scan"
	composersvc "github.com/MikeSquared-Agency/PromptForge/internal/service/composer"
	resolversvc "github.com/MikeSquared-Agency/PromptForge/internal/service/resolver"
	"github.com/MikeSquared-Agency/PromptForge/internal/transport/httperr"
)

// Register mounts composition, resolution, and scan endpoints.
func Register(rg *gin.RouterGroup, composer *composersvc.Service, resolver *resolversvc.Service, scanner *scan.Scanner) {
	rg.POST("/compose", composePrompt(composer))
	rg.POST("/resolve", resolvePrompt(resolver))
	rg.POST("/scan", scanContent(scanner))
}

type composeReq struct {
	Persona     string            `json:"persona" binding:"required"`
	Skills      []string          `json:"skills"`
	Constraints []string          `json:"constraints"`
	Variables   map[string]string `json:"variables"`
	Branch      string            `json:"branch"`
	Strategy    string            `json:"strategy"`
}

func composePrompt(composer *composersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req composeReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		strategy := resolversvc.Strategy(req.Strategy)
		if req.Strategy != "" && !strategy.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid strategy"})
			return
		}

		result, err := composer.Compose(c.Request.Context(), composersvc.Request{
			PersonaSlug:     req.Persona,
			SkillSlugs:      req.Skills,
			ConstraintSlugs: req.Constraints,
			Variables:       req.Variables,
			Branch:          req.Branch,
			Strategy:        strategy,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type resolveReq struct {
	Slug     string `json:"slug" binding:"required"`
	Branch   string `json:"branch"`
	Version  *int   `json:"version"`
	Strategy string `json:"strategy"`
}

func resolvePrompt(resolver *resolversvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resolveReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		strategy := resolversvc.Strategy(req.Strategy)
		if req.Strategy != "" && !strategy.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid strategy"})
			return
		}
		branch := req.Branch
		if branch == "" {
			branch = "main"
		}

		v, err := resolver.Resolve(c.Request.Context(), req.Slug, branch, req.Version, strategy)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

type scanReq struct {
	Content map[string]any `json:"content" binding:"required"`
}

// scanContent runs the injection scanner without committing anything.
func scanContent(scanner *scan.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scanReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		doc := content.Document(req.Content)
		result := scanner.Scan(doc)
		c.JSON(http.StatusOK, gin.H{
			"clean":            result.Clean,
			"findings":         result.Findings,
			"risk_level":       result.RiskLevel,
			"content_warnings": scan.ContentWarnings(doc),
		})
	}
}
