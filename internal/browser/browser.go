// Package browser drives the LinkedIn messaging UI through Chrome DevTools
// (go-rod). It implements autopilot.Page.
package browser

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/zulandar/switchboard/internal/autopilot"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/pacing"
)

const (
	findTimeout  = 10 * time.Second
	loadTimeout  = 30 * time.Second
	probeTimeout = 2 * time.Second
)

var _ autopilot.Page = (*Browser)(nil)

// Opts configures a Browser.
type Opts struct {
	Config *config.BrowserConfig
	Pacer  *pacing.Pacer
}

// Browser holds one Chrome connection and the messaging tab.
type Browser struct {
	cfg    *config.BrowserConfig
	sel    config.Selectors
	pacer  *pacing.Pacer
	rod    *rod.Browser
	page   *rod.Page
	launch *launcher.Launcher
}

// New attaches to cfg.ControlURL, or launches a local Chrome when it is
// empty, and opens the inbox.
func New(ctx context.Context, opts Opts) (*Browser, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("browser: config is required")
	}
	b := &Browser{cfg: opts.Config, sel: opts.Config.Selectors, pacer: opts.Pacer}
	if b.pacer == nil {
		b.pacer = pacing.New()
	}

	controlURL := opts.Config.ControlURL
	if controlURL == "" {
		b.launch = launcher.New().Leakless(false).Headless(opts.Config.Headless)
		u, err := b.launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch chrome: %w", err)
		}
		controlURL = u
	}

	b.rod = rod.New().ControlURL(controlURL)
	if err := b.rod.Connect(); err != nil {
		b.cleanupLauncher()
		return nil, fmt.Errorf("browser: connect %s: %w", controlURL, err)
	}

	page, err := b.rod.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("browser: open tab: %w", err)
	}
	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		log.Printf("browser: stealth script: %v", err)
	}
	b.page = page

	if err := b.OpenInbox(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// OpenInbox navigates the tab to the messaging inbox.
func (b *Browser) OpenInbox(ctx context.Context) error {
	p := b.page.Context(ctx).Timeout(loadTimeout)
	if err := p.Navigate(b.cfg.InboxURL); err != nil {
		return fmt.Errorf("browser: open inbox: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("browser: load inbox: %w", err)
	}
	return nil
}

// Close closes the Chrome connection and any Chrome this process launched.
func (b *Browser) Close() {
	if b.rod != nil {
		if err := b.rod.Close(); err != nil {
			log.Printf("browser: close: %v", err)
		}
	}
	b.cleanupLauncher()
}

func (b *Browser) cleanupLauncher() {
	if b.launch != nil {
		b.launch.Cleanup()
		b.launch = nil
	}
}

// within returns the tab bound to ctx with a total timeout of d.
func (b *Browser) within(ctx context.Context, d time.Duration) *rod.Page {
	return b.page.Context(ctx).Timeout(d)
}

// stealthScript hides the automation flag from page scripts.
const stealthScript = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
	window.chrome = window.chrome || { runtime: {} };
}`
