// Package browsertest provides a browser.Driver over static HTML pages.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/alanbriolat/lesson-archiver/browser"
	"github.com/alanbriolat/lesson-archiver/util"
)

var (
	ErrPageNotFound = errors.New("page not found")
)

// NavigateAttr on an element makes clicking it load another page, the way a client-side router would.
const NavigateAttr = "data-navigate"

// Driver serves pages from a URL → HTML map. Clicking an <a href> or an element with a data-navigate attribute
// loads the target page; clicking anything else is recorded and does nothing.
type Driver struct {
	mu      sync.Mutex
	pages   map[string]string
	current string
	source  string
	doc     *html.Node

	Navigations []string
	Clicks      []string
	Typed       map[string]string
	Viewport    [2]int
}

var _ browser.Driver = (*Driver)(nil)

func New(pages map[string]string) *Driver {
	return &Driver{
		pages: pages,
		Typed: make(map[string]string),
	}
}

// SetPage adds or replaces a page.
func (d *Driver) SetPage(url string, source string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[url] = source
}

// Visited reports whether url has been loaded, by Navigate or by a click.
func (d *Driver) Visited(url string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.Navigations {
		if u == url {
			return true
		}
	}
	return false
}

func (d *Driver) load(url string) error {
	source, ok := d.pages[url]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPageNotFound, url)
	}
	doc, err := htmlquery.Parse(strings.NewReader(source))
	if err != nil {
		return err
	}
	d.current = url
	d.source = source
	d.doc = doc
	d.Navigations = append(d.Navigations, url)
	return nil
}

func (d *Driver) query(loc browser.Locator) ([]*html.Node, error) {
	if d.doc == nil {
		return nil, nil
	}
	switch loc.Strategy {
	case browser.XPath:
		return htmlquery.QueryAll(d.doc, loc.Expr)
	case browser.CSS:
		return goquery.NewDocumentFromNode(d.doc).Find(loc.Expr).Nodes, nil
	default:
		return nil, fmt.Errorf("unsupported locator %v", loc)
	}
}

func node(el browser.Element) (*html.Node, error) {
	n, ok := el.(*html.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %T", browser.ErrNoSuchElement, el)
	}
	return n, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(url)
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, nil
}

// WaitFor never blocks: the pages are static, so if nothing matches now nothing ever will.
func (d *Driver) WaitFor(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := d.query(loc)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("waiting for %v on %s: %w", loc, d.current, context.DeadlineExceeded)
	}
	return nil
}

func (d *Driver) QueryAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := d.query(loc)
	if err != nil {
		return nil, err
	}
	elements := make([]browser.Element, len(nodes))
	for i, n := range nodes {
		elements[i] = n
	}
	return elements, nil
}

func (d *Driver) Click(ctx context.Context, el browser.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Clicks = append(d.Clicks, strings.TrimSpace(htmlquery.InnerText(n)))
	target := htmlquery.SelectAttr(n, NavigateAttr)
	if target == "" && n.Data == "a" {
		target = htmlquery.SelectAttr(n, "href")
	}
	if target == "" {
		return nil
	}
	return d.load(util.ResolveReference(d.current, target))
}

func (d *Driver) Type(ctx context.Context, loc browser.Locator, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := d.query(loc)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %v", browser.ErrNoSuchElement, loc)
	}
	d.Typed[loc.Expr] += text
	return nil
}

func (d *Driver) Property(ctx context.Context, el browser.Element, name string) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	value := htmlquery.SelectAttr(n, name)
	switch name {
	case "href", "src":
		if value != "" {
			value = util.ResolveReference(d.current, value)
		}
	}
	return value, nil
}

func (d *Driver) Text(ctx context.Context, el browser.Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	return htmlquery.InnerText(n), nil
}

func (d *Driver) OuterHTML(ctx context.Context, loc browser.Locator) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := d.query(loc)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", fmt.Errorf("%w: %v", browser.ErrNoSuchElement, loc)
	}
	return htmlquery.OutputHTML(nodes[0], true), nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source, nil
}

func (d *Driver) SetViewport(ctx context.Context, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Viewport = [2]int{width, height}
	return nil
}
