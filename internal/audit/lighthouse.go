package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	localAuditTimeout = 60 * time.Second
	localMaxWaitMs    = 45000

	// CI containers are slow to paint; wait budgets roughly double.
	ciTimeoutFactor = 2
)

// ciSkippedAudits are flaky under CI headless rendering and carry no budget
// signal.
var ciSkippedAudits = []string{
	"screenshot-thumbnails",
	"final-screenshot",
	"full-page-screenshot",
	"uses-http2",
}

// CategoriesForType maps the CLI audit type onto Lighthouse categories. An
// empty list means the full default set.
func CategoriesForType(auditType string) ([]string, error) {
	switch auditType {
	case "performance":
		return []string{"performance"}, nil
	case "seo":
		return []string{"seo"}, nil
	case "lighthouse":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown audit type %q (want performance, seo or lighthouse)", auditType)
	}
}

// Runner invokes the external Lighthouse CLI and parses its JSON report.
type Runner struct {
	CI          bool
	Categories  []string
	ChromeFlags string
	Verbose     bool
	logger      *slog.Logger
}

func NewRunner(ci bool, categories []string, chromeFlags string, verbose bool, logger *slog.Logger) *Runner {
	return &Runner{
		CI:          ci,
		Categories:  categories,
		ChromeFlags: chromeFlags,
		Verbose:     verbose,
		logger:      logger,
	}
}

// Run executes one Lighthouse invocation against url. A report carrying a
// runtime error is returned as a result, not an error; the engine classifies
// it.
func (r *Runner) Run(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
	timeout := localAuditTimeout
	maxWait := localMaxWaitMs
	if r.CI {
		timeout *= ciTimeoutFactor
		maxWait *= ciTimeoutFactor
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outFile := filepath.Join(os.TempDir(), fmt.Sprintf("auditgate-lh-%d-%d.json", os.Getpid(), attempt))
	defer os.Remove(outFile)

	args := []string{
		"lighthouse", url,
		"--output=json",
		"--output-path=" + outFile,
		"--quiet",
		fmt.Sprintf("--max-wait-for-load=%d", maxWait),
		"--chrome-flags=" + r.ChromeFlags,
	}
	if len(r.Categories) > 0 {
		args = append(args, "--only-categories="+strings.Join(r.Categories, ","))
	}
	if r.CI {
		args = append(args, "--skip-audits="+strings.Join(ciSkippedAudits, ","))
	}

	r.logger.Debug("running lighthouse", "url", url, "attempt", attempt, "timeout", timeout)
	cmd := exec.CommandContext(ctx, "npx", args...)
	cmd.WaitDelay = 10 * time.Second
	if r.Verbose {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	}
	runErr := cmd.Run()

	// Lighthouse writes its report even for some nonzero exits (runtime
	// errors land inside the JSON), so the file takes precedence.
	res, parseErr := ParseResultFile(outFile)
	if parseErr != nil {
		if runErr != nil {
			return nil, fmt.Errorf("lighthouse failed: %w (no report written)", runErr)
		}
		return nil, parseErr
	}
	return res, nil
}
