package embed

import (
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

const examplePrefix = "https://embed-ssl.example.com/deliveries"

func TestResolve(t *testing.T) {
	assert := assert_.New(t)
	r := &Resolver{DeliveryPrefix: examplePrefix}

	source := strings.Join([]string{
		"<html><head>",
		"<script>",
		`    W.iframeInit({"assets":[{"type":"original","slug":"original","width":1280,"url":"https://embed-ssl.example.com/deliveries/abc123.bin","created_at":1565125821},{"type":"iphone_video","url":"https://embed-ssl.example.com/deliveries/def456.bin"}]}, {});`,
		"</script>",
		"</head></html>",
	}, "\n")
	url, ok := r.Resolve(source)
	assert.True(ok)
	assert.Equal("https://embed-ssl.example.com/deliveries/abc123.bin", url)
}

func TestResolveDefaultPrefix(t *testing.T) {
	assert := assert_.New(t)

	source := `W.iframeInit({"assets":[{"type":"original","url":"https://embed-ssl.wistia.com/deliveries/84e5ef06e84364d2c044d85842a07a3f.bin","size":1}]})`
	url, ok := ResolveVideoBinURL(source)
	assert.True(ok)
	assert.Equal("https://embed-ssl.wistia.com/deliveries/84e5ef06e84364d2c044d85842a07a3f.bin", url)

	// A different host is not a match for the default resolver.
	_, ok = ResolveVideoBinURL(strings.ReplaceAll(source, "wistia.com", "example.com"))
	assert.False(ok)
}

func TestResolveNone(t *testing.T) {
	assert := assert_.New(t)
	r := &Resolver{DeliveryPrefix: examplePrefix}

	for _, source := range []string{
		"",
		"<html><body>nothing to see</body></html>",
		// marker not at the start of the line
		`var x = W.iframeInit({"url":"https://embed-ssl.example.com/deliveries/abc123.bin"})`,
		// marker but no URL under the delivery prefix
		`W.iframeInit({"assets":[{"url":"https://cdn.example.com/other/abc123.bin"}]})`,
		// marker but no "url" key
		`W.iframeInit({"assets":[{"src":"https://embed-ssl.example.com/deliveries/abc123.bin"}]})`,
	} {
		url, ok := r.Resolve(source)
		assert.False(ok, source)
		assert.Equal("", url)
	}
}

func TestResolveMalformed(t *testing.T) {
	assert := assert_.New(t)
	r := &Resolver{DeliveryPrefix: examplePrefix}

	for _, source := range []string{
		`W.iframeInit({"assets":[{"url":"https://embed-ssl.example.com/deliveries/abc123.bin}]})`,
		`W.iframeInit({"assets":[{"url":"https://embed-ssl.example.com/deliveries/abc123.bin"}]})`,
		`W.iframeInit("url":"https://embed-ssl.example.com/deliveries/abc123.bin"`,
		`W.iframeInit({"url": "https://embed-ssl.example.com/deliveries/abc123.bin" ]`,
	} {
		assert.NotPanics(func() {
			url, ok := r.Resolve(source)
			assert.False(ok, source)
			assert.Equal("", url)
		})
	}
}
