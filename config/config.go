package config

import (
	"os"
	"path/filepath"
)

var (
	// Core configuration (environment variables)
	DistDir     string // built site to serve
	NodeEnv     string // selects the budget environment profile
	IsCI        bool   // CI-tuned flag sets and timeouts
	DebugChrome bool   // verbose browser diagnostics
	DebugAudit  bool   // verbose audit diagnostics
	DebugServer bool   // pipe server stdio instead of discarding it
)

// Derived artifact paths (relative to the working directory)
var (
	BudgetFile     string // performance-budgets.json
	ResultsFile    string // lighthouse-results.json
	BudgetReport   string // performance-budget-report.json
	PRCommentFile  string // pr-budget-comment.md
	HistoryDBFile  string // audit-history.db
	ServerListFile string // optional servers.yml override
)

func init() {
	DistDir = getEnv("AUDITGATE_DIST_DIR", "dist")
	NodeEnv = getEnv("NODE_ENV", "development")
	IsCI = isSet("CI") || isSet("GITHUB_ACTIONS")
	DebugChrome = isSet("DEBUG_CHROME")
	DebugAudit = isSet("DEBUG_AUDIT")
	DebugServer = isSet("DEBUG_SERVER")

	BudgetFile = "performance-budgets.json"
	ResultsFile = "lighthouse-results.json"
	BudgetReport = "performance-budget-report.json"
	PRCommentFile = "pr-budget-comment.md"
	HistoryDBFile = filepath.Join(".auditgate", "audit-history.db")
	ServerListFile = "servers.yml"
}

// BudgetEnvironment maps NODE_ENV (plus the CI toggle) onto a budget profile name.
func BudgetEnvironment() string {
	if IsCI {
		return "ci"
	}
	if NodeEnv == "production" {
		return "production"
	}
	return "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func isSet(key string) bool {
	v := os.Getenv(key)
	return v != "" && v != "0" && v != "false"
}
