package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UnscopedList serves the flat collection routes for nested resources
// (contributors, issues, comments). Without a parent context there is nothing
// to scope the list against, so the result is empty rather than an error.
func UnscopedList(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, []interface{}{})
}
