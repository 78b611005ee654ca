package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caseflow/caseflow/pkg/apiserver/middleware"
	"github.com/caseflow/caseflow/pkg/engine"
	"github.com/caseflow/caseflow/pkg/fsm"
	"github.com/caseflow/caseflow/pkg/store"
)

const timeRFC3339Nano = time.RFC3339Nano

func actorFromContext(c *gin.Context) engine.Actor {
	return engine.Actor{
		ID:   c.GetString(middleware.ContextActorID),
		Role: fsm.Role(c.GetString(middleware.ContextActorRole)),
	}
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
// Denials are unprocessable, missing or already-resolved records are 404,
// everything else is a store failure.
func writeEngineError(c *gin.Context, err error) {
	var denied *engine.ValidationDeniedError
	switch {
	case errors.As(err, &denied):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": denied.Reason})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, engine.ErrAlreadyInitialized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func formatTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(timeRFC3339Nano)
	return &formatted
}
