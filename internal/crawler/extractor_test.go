package crawler

import (
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/routescan/internal/model"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		base string
		want []string
	}{
		{
			name: "anchors and assets",
			body: `<html><head>
				<link rel="stylesheet" href="/css/site.css">
				<script src="/js/app.js"></script>
			</head><body>
				<a href="/about">About</a>
				<img src="images/logo.png">
				<video src="/media/intro.mp4"></video>
				<audio src="/media/theme.mp3"></audio>
				<video><source src="/media/alt.mp4"></video>
			</body></html>`,
			base: "http://example.com/index.html",
			want: []string{
				"http://example.com/css/site.css",
				"http://example.com/js/app.js",
				"http://example.com/about",
				"http://example.com/images/logo.png",
				"http://example.com/media/intro.mp4",
				"http://example.com/media/theme.mp3",
				"http://example.com/media/alt.mp4",
			},
		},
		{
			name: "relative to nested page",
			body: `<a href="next.html">next</a><a href="../up">up</a>`,
			base: "http://example.com/docs/guide/",
			want: []string{
				"http://example.com/docs/guide/next.html",
				"http://example.com/docs/up",
			},
		},
		{
			name: "base element",
			body: `<html><head><base href="http://example.com/static/"></head><body><a href="logo.png">x</a></body></html>`,
			base: "http://example.com/page",
			want: []string{"http://example.com/static/logo.png"},
		},
		{
			name: "unfetchable schemes dropped",
			body: `<a href="javascript:void(0)">a</a><a href="mailto:a@example.com">b</a><a href="tel:123">c</a><a href="">d</a><a>e</a>`,
			base: "http://example.com/",
			want: nil,
		},
		{
			name: "fragments kept",
			body: `<a href="/#section">top</a>`,
			base: "http://example.com/",
			want: []string{"http://example.com/#section"},
		},
		{
			name: "duplicates removed",
			body: `<a href="/a">1</a><a href="/a">2</a><a href="http://example.com/a">3</a>`,
			base: "http://example.com/",
			want: []string{"http://example.com/a"},
		},
		{
			name: "inline script paths",
			body: `<script>
				fetch("/api/v1/users.json");
				var logo = '/static/img/logo.svg';
				var rel = "relative/skip.js";
				var noext = "/api/items";
			</script>`,
			base: "http://example.com/app/page",
			want: []string{
				"http://example.com/api/v1/users.json",
				"http://example.com/static/img/logo.svg",
			},
		},
		{
			name: "external script text is not scanned",
			body: `<script src="/js/app.js">"/ignored/file.js"</script>`,
			base: "http://example.com/",
			want: []string{"http://example.com/js/app.js"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ExtractLinks([]byte(tt.body), tt.base, DefaultExtractors()...)
			if err != nil {
				t.Fatalf("ExtractLinks() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ExtractLinks() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractLinksInvalidBase(t *testing.T) {
	t.Parallel()

	_, err := ExtractLinks([]byte(`<a href="/x">x</a>`), "http://[::1", DefaultExtractors()...)
	var parseErr *model.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *model.ParseError, got %v", err)
	}
}

func TestExtractLinksWithoutExtractors(t *testing.T) {
	t.Parallel()

	got, err := ExtractLinks([]byte(`<a href="/x">x</a>`), "http://example.com/")
	if err != nil {
		t.Fatalf("ExtractLinks() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no links without extractors, got %v", got)
	}
}
