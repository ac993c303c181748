package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/chromedp/chromedp"
)

// ciFlags is the CI-safe superset. Headless rendering in constrained CI
// containers frequently never paints anything unless GPU acceleration,
// sandboxing and background throttling are all switched off; every flag here
// exists to keep first contentful paint from silently failing. The fixed
// 1920x1080 viewport at scale factor 1 keeps the DOM-size heuristics in the
// render validator deterministic across environments.
var ciFlags = map[string]any{
	"no-sandbox":                  true,
	"disable-setuid-sandbox":      true,
	"disable-gpu":                 true,
	"disable-dev-shm-usage":       true,
	"disable-software-rasterizer": true,

	"disable-background-timer-throttling":                true,
	"disable-backgrounding-occluded-windows":             true,
	"disable-renderer-backgrounding":                     true,
	"disable-ipc-flooding-protection":                    true,
	"disable-features":                                   "TranslateUI,BackForwardCache",
	"disable-component-extensions-with-background-pages": true,

	"disable-extensions":       true,
	"disable-default-apps":     true,
	"disable-hang-monitor":     true,
	"no-first-run":             true,
	"no-default-browser-check": true,
	"mute-audio":               true,
	"hide-scrollbars":          true,

	"window-size":               "1920,1080",
	"force-device-scale-factor": "1",
}

// localFlags is the minimal set for interactive runs.
var localFlags = map[string]any{
	"mute-audio":                true,
	"window-size":               "1920,1080",
	"force-device-scale-factor": "1",
}

// Launcher builds headless browser contexts with the mode-appropriate flag
// set.
type Launcher struct {
	CI     bool
	logger *slog.Logger
}

func NewLauncher(ci bool, logger *slog.Logger) *Launcher {
	return &Launcher{CI: ci, logger: logger}
}

func (l *Launcher) flagSet() map[string]any {
	if l.CI {
		return ciFlags
	}
	return localFlags
}

// Allocate returns a ready-to-use browser context. The returned cancel func
// tears down the browser process.
func (l *Launcher) Allocate(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range l.flagSet() {
		opts = append(opts, chromedp.Flag(name, value))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	var ctxOpts []chromedp.ContextOption
	if l.logger != nil && l.logger.Enabled(ctx, slog.LevelDebug) {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(func(format string, args ...any) {
			l.logger.Debug(fmt.Sprintf(format, args...))
		}))
	}
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx, ctxOpts...)

	return browserCtx, func() {
		cancelCtx()
		cancelAlloc()
	}
}

// CommandLineFlags renders the active flag set as raw --flag=value strings,
// for handing to external tools that launch their own Chrome. Sorted so the
// spawned command line is stable across runs.
func (l *Launcher) CommandLineFlags() string {
	set := l.flagSet()
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	flags := make([]string, 0, len(set)+1)
	flags = append(flags, "--headless=new")
	for _, name := range names {
		switch v := set[name].(type) {
		case bool:
			if v {
				flags = append(flags, "--"+name)
			}
		default:
			flags = append(flags, fmt.Sprintf("--%s=%v", name, v))
		}
	}
	return strings.Join(flags, " ")
}
