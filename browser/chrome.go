package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

type ChromeOptions struct {
	Headless bool
	// ExecPath overrides the Chrome binary chromedp would find on its own.
	ExecPath string
}

// Chrome drives a single tab of a locally launched Chrome through the DevTools protocol.
type Chrome struct {
	ctx    context.Context
	cancel func()
}

// NewChrome launches Chrome and opens a tab. Close must be called to shut it down.
func NewChrome(ctx context.Context, options ChromeOptions) (*Chrome, error) {
	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", options.Headless),
		chromedp.Flag("disable-gpu", options.Headless),
	)
	if options.ExecPath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(options.ExecPath))
	}
	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(ctx, allocatorOptions...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocatorCtx)
	c := &Chrome{
		ctx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAllocator()
		},
	}
	// Start the browser now, so a missing Chrome is reported here rather than on first use.
	if err := chromedp.Run(browserCtx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}
	return c, nil
}

func (c *Chrome) Close() {
	c.cancel()
}

// run executes actions in the tab, bounded by both ctx and timeout (if non-zero).
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func queryOption(loc Locator) chromedp.QueryOption {
	if loc.Strategy == XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}

func node(el Element) (*cdp.Node, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: not a chrome node: %T", ErrNoSuchElement, el)
	}
	return n, nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, 0, chromedp.Navigate(url))
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var location string
	err := c.run(ctx, 0, chromedp.Location(&location))
	return location, err
}

func (c *Chrome) WaitFor(ctx context.Context, loc Locator, timeout time.Duration) error {
	if err := c.run(ctx, timeout, chromedp.WaitReady(loc.Expr, queryOption(loc))); err != nil {
		return fmt.Errorf("waiting for %v: %w", loc, err)
	}
	return nil
}

func (c *Chrome) QueryAll(ctx context.Context, loc Locator) ([]Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, 0, chromedp.Nodes(loc.Expr, &nodes, queryOption(loc), chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("querying %v: %w", loc, err)
	}
	elements := make([]Element, len(nodes))
	for i, n := range nodes {
		elements[i] = n
	}
	return elements, nil
}

func (c *Chrome) Click(ctx context.Context, el Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return c.run(ctx, 0, chromedp.MouseClickNode(n))
}

func (c *Chrome) Type(ctx context.Context, loc Locator, text string) error {
	return c.run(ctx, 0, chromedp.SendKeys(loc.Expr, text, queryOption(loc)))
}

func (c *Chrome) Property(ctx context.Context, el Element, name string) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	var value string
	err = c.run(ctx, 0, chromedp.JavascriptAttribute([]cdp.NodeID{n.NodeID}, name, &value, chromedp.ByNodeID))
	if err != nil {
		// Properties that aren't strings fail to decode; fall back to the attribute.
		if attr, ok := n.Attribute(name); ok {
			return attr, nil
		}
		return "", fmt.Errorf("reading %q: %w", name, err)
	}
	return value, nil
}

func (c *Chrome) Text(ctx context.Context, el Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	var text string
	err = c.run(ctx, 0, chromedp.Text([]cdp.NodeID{n.NodeID}, &text, chromedp.ByNodeID))
	return text, err
}

func (c *Chrome) OuterHTML(ctx context.Context, loc Locator) (string, error) {
	var markup string
	err := c.run(ctx, 0, chromedp.OuterHTML(loc.Expr, &markup, queryOption(loc)))
	return markup, err
}

func (c *Chrome) PageSource(ctx context.Context) (string, error) {
	var markup string
	err := c.run(ctx, 0, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	return markup, err
}

func (c *Chrome) SetViewport(ctx context.Context, width, height int) error {
	return c.run(ctx, 0, chromedp.EmulateViewport(int64(width), int64(height)))
}
