// internal/browser/page.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/config"
)

// Page is one browser tab. It implements schemas.Browser.
type Page struct {
	ctx    context.Context // tab context, carries the CDP target
	cancel context.CancelFunc
	logger *zap.Logger

	locateTimeout time.Duration
	network       config.NetworkConfig
}

var _ schemas.Browser = (*Page)(nil)

// run executes actions on the tab, bounded by opCtx.
func (p *Page) run(opCtx context.Context, actions ...chromedp.Action) error {
	ctx, cancel := CombineContext(p.ctx, opCtx)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and waits for the body, then pauses for the configured
// post-load wait.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if p.network.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, p.network.NavigationTimeout)
		defer cancel()
	}

	p.logger.Info("Navigating", zap.String("url", url))
	err := p.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %s", url, p.network.NavigationTimeout)
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if p.network.PostLoadWait > 0 {
		timer := time.NewTimer(p.network.PostLoadWait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// FindElement returns the first match, polling up to the locate timeout.
func (p *Page) FindElement(ctx context.Context, loc schemas.Locator) (schemas.Element, error) {
	q, err := queryFor(loc, false)
	if err != nil {
		return nil, err
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.locateTimeout)
	defer cancel()

	var nodes []*cdp.Node
	err = p.run(lookupCtx, chromedp.Nodes(q.sel, &nodes, q.by))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if lookupCtx.Err() != nil {
			return nil, fmt.Errorf("%s after %s: %w", loc, p.locateTimeout, schemas.ErrElementNotFound)
		}
		return nil, fmt.Errorf("locating %s: %w", loc, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, schemas.ErrElementNotFound)
	}
	return &element{page: p, node: nodes[0]}, nil
}

// FindElements returns every current match without waiting.
func (p *Page) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	q, err := queryFor(loc, true)
	if err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(q.sel, &nodes, q.by, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("locating %s: %w", loc, err)
	}

	out := make([]schemas.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{page: p, node: n})
	}
	p.logger.Debug("Elements located", zap.Stringer("locator", loc), zap.Int("count", len(out)))
	return out, nil
}

// WaitVisible blocks until the first match is visible.
func (p *Page) WaitVisible(ctx context.Context, loc schemas.Locator, timeout time.Duration) error {
	q, err := queryFor(loc, false)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.run(waitCtx, chromedp.WaitVisible(q.sel, q.by)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if waitCtx.Err() != nil {
			return fmt.Errorf("%s not visible after %s: %w", loc, timeout, schemas.ErrWaitTimeout)
		}
		return fmt.Errorf("waiting for %s: %w", loc, err)
	}
	return nil
}

// PageSource returns the serialized document element.
func (p *Page) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return html, nil
}

// Close closes the tab.
func (p *Page) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}
