package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	// DefaultValidateTimeout is the overall render-validation budget.
	DefaultValidateTimeout = 30 * time.Second

	// contentPollBudget bounds the content-presence polling inside that
	// budget.
	contentPollBudget = 15 * time.Second

	// settleDelay lets asynchronously loaded content land before the
	// snapshot is taken.
	settleDelay = 3 * time.Second

	minRootTextLength = 100
	minElementCount   = 20
)

// contentPresentJS is a content-presence heuristic, not a pixel-level render
// check: the app's mount node has children and meaningful text, or at least
// a navigation/section landmark exists.
const contentPresentJS = `(() => {
	const root = document.querySelector('#root') || document.querySelector('#app') || document.body;
	const hasContent = !!root && root.children.length > 0 && (root.innerText || '').length > 100;
	const hasLandmark = !!document.querySelector('nav, section');
	return hasContent || hasLandmark;
})()`

const snapshotJS = `(() => {
	const root = document.querySelector('#root') || document.querySelector('#app') || document.body;
	return {
		hasBody: !!document.body,
		rootTextLength: root ? (root.innerText || '').length : 0,
		elementCount: document.querySelectorAll('*').length,
		hasImages: document.querySelectorAll('img').length > 0,
		hasStylesheets: document.querySelectorAll('link[rel="stylesheet"], style').length > 0,
		hasNav: !!document.querySelector('nav'),
		hasSection: !!document.querySelector('section'),
		hasFooter: !!document.querySelector('footer'),
		title: document.title
	};
})()`

// Snapshot is the structured render-state capture embedded in validation
// failures so CI logs show what the page actually contained.
type Snapshot struct {
	HasBody        bool   `json:"hasBody"`
	RootTextLength int    `json:"rootTextLength"`
	ElementCount   int    `json:"elementCount"`
	HasImages      bool   `json:"hasImages"`
	HasStylesheets bool   `json:"hasStylesheets"`
	HasNav         bool   `json:"hasNav"`
	HasSection     bool   `json:"hasSection"`
	HasFooter      bool   `json:"hasFooter"`
	Title          string `json:"title"`
}

func (s Snapshot) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ValidationResult reports a successful render validation.
type ValidationResult struct {
	Success bool     `json:"success"`
	Checks  Snapshot `json:"checks"`
	Message string   `json:"message"`
}

// Validator drives a headless browser to a URL and confirms the application
// actually painted content.
type Validator struct {
	launcher *Launcher
	logger   *slog.Logger
}

func NewValidator(launcher *Launcher, logger *slog.Logger) *Validator {
	return &Validator{launcher: launcher, logger: logger}
}

// Validate loads url and polls the DOM until content is judged rendered.
// It returns an error, never a success:false result, when content fails to
// appear; the error message embeds the last snapshot.
func (v *Validator) Validate(ctx context.Context, url string, timeout time.Duration) (*ValidationResult, error) {
	if timeout <= 0 {
		timeout = DefaultValidateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browserCtx, cancelBrowser := v.launcher.Allocate(ctx)
	defer cancelBrowser()

	v.logger.Debug("navigating", "url", url)
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	pollErr := chromedp.Run(browserCtx,
		chromedp.Poll(contentPresentJS, nil, chromedp.WithPollingTimeout(contentPollBudget)),
	)
	if pollErr == nil {
		// Predicate passed; give async content a moment to land.
		if err := chromedp.Run(browserCtx, chromedp.Sleep(settleDelay)); err != nil {
			return nil, fmt.Errorf("settle wait failed: %w", err)
		}
	}

	var snap Snapshot
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(snapshotJS, &snap)); err != nil {
		return nil, fmt.Errorf("snapshot of %s failed (content poll: %v): %w", url, pollErr, err)
	}
	v.logger.Debug("render snapshot", "snapshot", snap.String())

	if err := judge(snap); err != nil {
		return nil, fmt.Errorf("content never rendered at %s: %w; last snapshot: %s", url, err, snap)
	}

	return &ValidationResult{
		Success: true,
		Checks:  snap,
		Message: fmt.Sprintf("rendered %d elements, %d chars of content", snap.ElementCount, snap.RootTextLength),
	}, nil
}

// judge applies the success criteria to a snapshot.
func judge(s Snapshot) error {
	switch {
	case !s.HasBody:
		return fmt.Errorf("document has no body")
	case s.RootTextLength <= minRootTextLength:
		return fmt.Errorf("root text is %d chars, need more than %d", s.RootTextLength, minRootTextLength)
	case s.ElementCount <= minElementCount:
		return fmt.Errorf("only %d DOM elements, need more than %d", s.ElementCount, minElementCount)
	}
	return nil
}
