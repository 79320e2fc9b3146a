package branch

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/diff"
	domainversion "github.com/MikeSquared-Agency/PromptForge/internal/domain/version"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	vcssvc "github.com/MikeSquared-Agency/PromptForge/internal/service/vcs"
	"github.com/MikeSquared-Agency/PromptForge/internal/transport/httperr"
)

// Register mounts branch endpoints under the prompts group.
func Register(rg *gin.RouterGroup, registry *registrysvc.Service, vcs *vcssvc.Service) {
	h := &handler{registry: registry, vcs: vcs}
	rg.POST("/:slug/branches", h.create)
	rg.GET("/:slug/branches", h.list)
	rg.GET("/:slug/branches/:name", h.get)
	rg.GET("/:slug/branches/:name/diff", h.diff)
	rg.POST("/:slug/branches/:name/merge", h.merge)
	rg.POST("/:slug/branches/:name/reject", h.reject)
}

type handler struct {
	registry *registrysvc.Service
	vcs      *vcssvc.Service
}

type createReq struct {
	Name string `json:"name" binding:"required"`
	From string `json:"from"`
}

func (h *handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from := req.From
	if from == "" {
		from = domainversion.DefaultBranch
	}

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	b, err := h.vcs.CreateBranch(c.Request.Context(), p.ID, req.Name, from)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *handler) list(c *gin.Context) {
	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	branches, err := h.vcs.ListBranches(c.Request.Context(), p.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if branches == nil {
		branches = []domainversion.Branch{}
	}
	c.JSON(http.StatusOK, branches)
}

func (h *handler) get(c *gin.Context) {
	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	b, err := h.vcs.GetBranch(c.Request.Context(), p.ID, c.Param("name"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// diff compares a branch head against another branch's head (?against=,
// default main), structurally.
func (h *handler) diff(c *gin.Context) {
	against := c.DefaultQuery("against", domainversion.DefaultBranch)

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	base, err := h.vcs.Head(c.Request.Context(), p.ID, against)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	head, err := h.vcs.Head(c.Request.Context(), p.ID, c.Param("name"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"branch":  c.Param("name"),
		"against": against,
		"diff":    diff.Structural(base.Content, head.Content),
	})
}

type mergeReq struct {
	Into     string `json:"into"`
	Strategy string `json:"strategy"`
	Author   string `json:"author" binding:"required"`
}

func (h *handler) merge(c *gin.Context) {
	var req mergeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	into := req.Into
	if into == "" {
		into = domainversion.DefaultBranch
	}
	strategy := domainversion.MergeStrategy(req.Strategy)
	if req.Strategy == "" {
		strategy = domainversion.MergeTheirs
	}

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	v, err := h.vcs.MergeBranch(c.Request.Context(), p.ID, c.Param("name"), into, strategy, req.Author)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": v})
}

func (h *handler) reject(c *gin.Context) {
	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	b, err := h.vcs.RejectBranch(c.Request.Context(), p.ID, c.Param("name"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
