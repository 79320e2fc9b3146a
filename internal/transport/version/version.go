package version

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/diff"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/regression"
	domainversion "github.com/MikeSquared-Agency/PromptForge/internal/domain/version"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	vcssvc "github.com/MikeSquared-Agency/PromptForge/internal/service/vcs"
	"github.com/MikeSquared-Agency/PromptForge/internal/transport/httperr"
)

// Register mounts version history endpoints under the prompts group.
func Register(rg *gin.RouterGroup, registry *registrysvc.Service, vcs *vcssvc.Service) {
	h := &handler{registry: registry, vcs: vcs}
	rg.POST("/:slug/versions", h.commit)
	rg.PATCH("/:slug/versions", h.patch)
	rg.GET("/:slug/versions", h.history)
	rg.GET("/:slug/versions/:version", h.getVersion)
	rg.GET("/:slug/versions/:version/diff/:to", h.fieldDiff)
	rg.GET("/:slug/diff", h.structuralDiff)
	rg.POST("/:slug/versions/restore", h.restore)
	rg.POST("/:slug/versions/rollback", h.rollback)
}

type handler struct {
	registry *registrysvc.Service
	vcs      *vcssvc.Service
}

type commitReq struct {
	Content              map[string]any `json:"content" binding:"required"`
	Message              string         `json:"message"`
	Author               string         `json:"author" binding:"required"`
	Branch               string         `json:"branch"`
	AcknowledgeReduction bool           `json:"acknowledge_reduction"`
}

// commit appends a new version. The candidate is checked against the current
// head for content regressions: a blocking report rejects the commit with 409
// unless acknowledge_reduction is set, in which case the findings degrade to
// warnings on the successful response.
func (h *handler) commit(c *gin.Context) {
	var req commitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	branch := defaultBranch(req.Branch)

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	doc := content.Document(req.Content)
	report, blocked := h.guard(c, p.ID, branch, doc, req.AcknowledgeReduction)
	if blocked {
		return
	}

	v, err := h.vcs.Commit(c.Request.Context(), p.ID, doc, req.Message, req.Author, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"version": v, "regression_warnings": report.Warnings})
}

type patchReq struct {
	Patch                map[string]any `json:"patch" binding:"required"`
	Message              string         `json:"message"`
	Author               string         `json:"author" binding:"required"`
	Branch               string         `json:"branch"`
	AcknowledgeReduction bool           `json:"acknowledge_reduction"`
}

// patch deep-merges a partial document onto the current head and commits the
// result. Null values in the patch delete keys.
func (h *handler) patch(c *gin.Context) {
	var req patchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	branch := defaultBranch(req.Branch)

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	head, err := h.vcs.Head(c.Request.Context(), p.ID, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	doc := content.Merge(head.Content, content.Document(req.Patch))
	report, blocked := h.guard(c, p.ID, branch, doc, req.AcknowledgeReduction)
	if blocked {
		return
	}

	message := req.Message
	if message == "" {
		message = "Patch update"
	}
	v, err := h.vcs.Commit(c.Request.Context(), p.ID, doc, message, req.Author, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"version": v, "regression_warnings": report.Warnings})
}

// guard runs the regression check against the branch head. It writes the 409
// response and returns blocked=true when the report blocks unacknowledged.
// A branch with no versions yet has nothing to regress from.
func (h *handler) guard(c *gin.Context, promptID uuid.UUID, branch string, candidate content.Document, acknowledged bool) (regression.Report, bool) {
	head, err := h.vcs.Head(c.Request.Context(), promptID, branch)
	if err != nil {
		if errors.Is(err, domainversion.ErrNoVersions) {
			return regression.Report{}, false
		}
		httperr.Respond(c, err)
		return regression.Report{}, true
	}

	report := regression.Check(head.Content, candidate)
	if report.Block && !acknowledged {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "commit blocked: candidate looks like a content regression",
			"report": report,
		})
		return report, true
	}
	return report, false
}

func (h *handler) history(c *gin.Context) {
	branch := defaultBranch(c.Query("branch"))
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	versions, err := h.vcs.History(c.Request.Context(), p.ID, branch, limit)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if versions == nil {
		versions = []domainversion.Version{}
	}
	c.JSON(http.StatusOK, versions)
}

func (h *handler) getVersion(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}
	branch := defaultBranch(c.Query("branch"))

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	v, err := h.vcs.GetVersion(c.Request.Context(), p.ID, number, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// fieldDiff compares two versions key by key.
func (h *handler) fieldDiff(c *gin.Context) {
	from, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from version"})
		return
	}
	to, err := strconv.Atoi(c.Param("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to version"})
		return
	}
	branch := defaultBranch(c.Query("branch"))

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	a, err := h.vcs.GetVersion(c.Request.Context(), p.ID, from, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	b, err := h.vcs.GetVersion(c.Request.Context(), p.ID, to, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, diff.Fields(a.Content, b.Content, a.Number, b.Number))
}

// structuralDiff compares two versions section by section: ?from=&to=.
func (h *handler) structuralDiff(c *gin.Context) {
	from, err := strconv.Atoi(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from version"})
		return
	}
	to, err := strconv.Atoi(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to version"})
		return
	}
	branch := defaultBranch(c.Query("branch"))

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	a, err := h.vcs.GetVersion(c.Request.Context(), p.ID, from, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	b, err := h.vcs.GetVersion(c.Request.Context(), p.ID, to, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, diff.Structural(a.Content, b.Content))
}

type restoreReq struct {
	Version              int            `json:"version" binding:"required"`
	Author               string         `json:"author" binding:"required"`
	Branch               string         `json:"branch"`
	Overlay              map[string]any `json:"overlay"`
	AcknowledgeReduction bool           `json:"acknowledge_reduction"`
}

// restore commits an old version's content as the new head, optionally with
// an overlay patch merged on top. The restored document runs through the same
// regression guard as commit: restoring a thin old version over a fuller head
// requires acknowledge_reduction.
func (h *handler) restore(c *gin.Context) {
	var req restoreReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	branch := defaultBranch(req.Branch)

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	old, err := h.vcs.GetVersion(c.Request.Context(), p.ID, req.Version, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	doc := old.Content
	message := "Restore version " + strconv.Itoa(req.Version)
	if len(req.Overlay) > 0 {
		doc = content.Merge(doc, content.Document(req.Overlay))
		message += " with overlay"
	}

	report, blocked := h.guard(c, p.ID, branch, doc, req.AcknowledgeReduction)
	if blocked {
		return
	}

	v, err := h.vcs.Commit(c.Request.Context(), p.ID, doc, message, req.Author, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"version": v, "regression_warnings": report.Warnings})
}

type rollbackReq struct {
	Version int    `json:"version" binding:"required"`
	Author  string `json:"author" binding:"required"`
	Branch  string `json:"branch"`
}

func (h *handler) rollback(c *gin.Context) {
	var req rollbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	branch := defaultBranch(req.Branch)

	p, err := h.registry.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	v, err := h.vcs.Rollback(c.Request.Context(), p.ID, req.Version, req.Author, branch)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func defaultBranch(b string) string {
	if b == "" {
		return domainversion.DefaultBranch
	}
	return b
}
