package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainprompt "github.com/MikeSquared-Agency/PromptForge/internal/domain/prompt"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/scan"
	domainversion "github.com/MikeSquared-Agency/PromptForge/internal/domain/version"
)

// Respond maps a domain error onto an HTTP status and writes the JSON body.
// Handlers own request validation; everything coming back from a service goes
// through here so the taxonomy maps the same way on every route.
func Respond(c *gin.Context, err error) {
	var blocked *scan.BlockedError
	if errors.As(err, &blocked) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    blocked.Error(),
			"findings": blocked.Findings,
		})
		return
	}

	var cycle *domainprompt.CircularInheritanceError
	if errors.As(err, &cycle) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": cycle.Error(),
			"cycle": cycle.Cycle,
		})
		return
	}

	var unknownStrategy *domainversion.UnknownStrategyError
	if errors.As(err, &unknownStrategy) {
		c.JSON(http.StatusBadRequest, gin.H{"error": unknownStrategy.Error()})
		return
	}

	switch {
	case errors.Is(err, domainprompt.ErrNotFound),
		errors.Is(err, domainversion.ErrVersionNotFound),
		errors.Is(err, domainversion.ErrBranchNotFound),
		errors.Is(err, domainversion.ErrNoVersions):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainprompt.ErrDuplicateSlug),
		errors.Is(err, domainversion.ErrDuplicateBranch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
