package types

import (
	"os"
	"strings"
)

const ContextUserKey = "user"
const ContextProjectKey = "project"
const ContextIssueKey = "issue"

// Contributor roles
const (
	RoleAuthor      = "AUTHOR"
	RoleContributor = "CONTRIBUTOR"
)

// Project types
const (
	ProjectBackend  = "BACKEND"
	ProjectFrontend = "FRONTEND"
	ProjectIOS      = "IOS"
	ProjectAndroid  = "ANDROID"
)

// Issue tags
const (
	TagBug     = "BUG"
	TagFeature = "FEATURE"
	TagTask    = "TASK"
)

// Issue priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Issue statuses
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusFinished   = "FINISHED"
)

func ValidProjectType(t string) bool {
	switch t {
	case ProjectBackend, ProjectFrontend, ProjectIOS, ProjectAndroid:
		return true
	}
	return false
}

func ValidRole(r string) bool {
	return r == RoleAuthor || r == RoleContributor
}

func ValidIssueTag(t string) bool {
	return t == TagBug || t == TagFeature || t == TagTask
}

func ValidIssuePriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func ValidIssueStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusFinished
}

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}
