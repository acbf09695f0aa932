// Package browser is the small slice of browser automation the crawler needs, so that crawling can be driven by a
// real Chrome instance or by static HTML in tests.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/alanbriolat/lesson-archiver/generic"
)

type Strategy int

const (
	CSS Strategy = iota
	XPath
)

func (s Strategy) String() string {
	switch s {
	case CSS:
		return "css"
	case XPath:
		return "xpath"
	default:
		return "unknown"
	}
}

// Locator selects elements on the current page.
type Locator struct {
	Strategy Strategy
	Expr     string
}

func ByCSS(expr string) Locator {
	return Locator{Strategy: CSS, Expr: expr}
}

func ByXPath(expr string) Locator {
	return Locator{Strategy: XPath, Expr: expr}
}

func (l Locator) String() string {
	return l.Strategy.String() + ":" + l.Expr
}

// Element is a handle to an element on the current page, only meaningful to the Driver that returned it.
type Element interface{}

var (
	ErrNoSuchElement = errors.New("no such element")
)

type Driver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// WaitFor blocks until at least one element matches loc, or fails with an error wrapping
	// context.DeadlineExceeded once timeout has passed.
	WaitFor(ctx context.Context, loc Locator, timeout time.Duration) error
	// QueryAll returns every element currently matching loc, without waiting.
	QueryAll(ctx context.Context, loc Locator) ([]Element, error)
	Click(ctx context.Context, el Element) error
	// Type sends text to the first element matching loc.
	Type(ctx context.Context, loc Locator, text string) error
	// Property reads a DOM property of el, so "href" and "src" come back as absolute URLs.
	Property(ctx context.Context, el Element, name string) (string, error)
	Text(ctx context.Context, el Element) (string, error)
	// OuterHTML returns the markup of the first element matching loc.
	OuterHTML(ctx context.Context, loc Locator) (string, error)
	PageSource(ctx context.Context) (string, error)
	SetViewport(ctx context.Context, width, height int) error
}

// FindOptional waits up to timeout for loc to match, and returns the first match if it does. Absence is an ordinary
// result, not an error.
func FindOptional(ctx context.Context, d Driver, loc Locator, timeout time.Duration) generic.Option[Element] {
	if err := d.WaitFor(ctx, loc, timeout); err != nil {
		return generic.None[Element]()
	}
	elements, err := d.QueryAll(ctx, loc)
	if err != nil || len(elements) == 0 {
		return generic.None[Element]()
	}
	return generic.Some(elements[0])
}

// ClickFirst clicks the first element matching loc, if there is one. It reports whether anything was clicked.
func ClickFirst(ctx context.Context, d Driver, loc Locator) (bool, error) {
	elements, err := d.QueryAll(ctx, loc)
	if err != nil {
		return false, err
	}
	if len(elements) == 0 {
		return false, nil
	}
	if err := d.Click(ctx, elements[0]); err != nil {
		return false, err
	}
	return true, nil
}

// Properties reads the same property from every element matching loc, e.g. all link targets on a page.
func Properties(ctx context.Context, d Driver, loc Locator, name string) ([]string, error) {
	elements, err := d.QueryAll(ctx, loc)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(elements))
	for _, el := range elements {
		value, err := d.Property(ctx, el, name)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}
