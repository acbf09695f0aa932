// Package embed scrapes the direct media URL out of a video player's embed page.
package embed

import (
	"bufio"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultDeliveryPrefix = "https://embed-ssl.wistia.com/deliveries"
	initMarker            = "W.iframeInit("
	urlKeyMarker          = `"url"`
)

// Resolver finds the first asset URL under DeliveryPrefix in the player initialisation line of an embed page, e.g.
//
//	W.iframeInit({"assets":[{"type":"original",...,"url":"https://embed-ssl.wistia.com/deliveries/84e5.bin",...
//
// The payload is not parsed as a whole. Only the single comma-separated fragment holding the URL is decoded.
type Resolver struct {
	DeliveryPrefix string
	Log            *zap.SugaredLogger
}

func NewResolver() *Resolver {
	return &Resolver{
		DeliveryPrefix: DefaultDeliveryPrefix,
		Log:            zap.S().Named("embed"),
	}
}

// Resolve returns the media URL found in source, if any.
func (r *Resolver) Resolve(source string) (string, bool) {
	line, ok := initLine(source)
	if !ok {
		return "", false
	}
	valueMarker := `"` + r.deliveryPrefix()
	for _, fragment := range strings.Split(line, ",") {
		if !strings.Contains(fragment, urlKeyMarker) || !strings.Contains(fragment, valueMarker) {
			continue
		}
		var parsed struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal([]byte("{"+fragment+"}"), &parsed); err != nil {
			r.log().Debugw("failed to decode embed fragment", "fragment", fragment, "error", err)
			return "", false
		}
		if parsed.URL == "" {
			return "", false
		}
		return parsed.URL, true
	}
	return "", false
}

func (r *Resolver) deliveryPrefix() string {
	if r.DeliveryPrefix == "" {
		return DefaultDeliveryPrefix
	}
	return r.DeliveryPrefix
}

func (r *Resolver) log() *zap.SugaredLogger {
	if r.Log == nil {
		return zap.S().Named("embed")
	}
	return r.Log
}

func initLine(source string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(source))
	// Player configuration is a single very long line.
	scanner.Buffer(make([]byte, 0, 64*1024), len(source)+1)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, initMarker) {
			return line, true
		}
	}
	return "", false
}

// ResolveVideoBinURL resolves source against the default delivery host.
func ResolveVideoBinURL(source string) (string, bool) {
	return NewResolver().Resolve(source)
}
