package util

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

// FilenameFromURL gives the last path element of a URL, ignoring any query or fragment.
func FilenameFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	filename := LastPathSegment(u.Path)
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

func FilenameFromURLString(s string) (string, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	return FilenameFromURL(parsedURL)
}

// LastPathSegment returns the final non-empty "/"-separated element of p, or "" if there is none.
func LastPathSegment(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// ResolveReference makes href absolute against base, the way a browser resolves an anchor's href property.
// Unparseable input is returned unchanged.
func ResolveReference(base string, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// AppendQuery adds a raw "key=value" hint to a URL, using "?" or "&" as appropriate.
func AppendQuery(rawURL string, hint string) string {
	if hint == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + hint
	}
	return rawURL + "?" + hint
}
