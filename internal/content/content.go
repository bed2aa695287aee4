// Package content renders the site's editorial pages from embedded markdown.
package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

//go:embed pages/*.md
var pagesFS embed.FS

// ErrNotFound is returned for an unknown slug.
var ErrNotFound = errors.New("page not found")

// Page is a rendered content page.
type Page struct {
	Slug        string
	Title       string
	Description string
	Order       int
	HTML        template.HTML
}

type frontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
}

// Library holds every page, rendered once at startup.
type Library struct {
	pages map[string]*Page
}

// Load renders the embedded pages.
func Load() (*Library, error) {
	return LoadFS(pagesFS, "pages")
}

// LoadFS renders every .md file in dir of fsys. The slug is the file name
// without extension.
func LoadFS(fsys fs.FS, dir string) (*Library, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading pages: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.DefinitionList, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	policy := newPagePolicy()

	lib := &Library{pages: make(map[string]*Page)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		slug := strings.TrimSuffix(e.Name(), ".md")
		page, err := render(md, policy, slug, string(raw))
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", e.Name(), err)
		}
		lib.pages[slug] = page
	}
	return lib, nil
}

func newPagePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4")
	policy.AllowElements("dl", "dt", "dd")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

func render(md goldmark.Markdown, policy *bluemonday.Policy, slug, raw string) (*Page, error) {
	fm, body := splitFrontMatter(raw)

	var front frontMatter
	if fm != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return nil, fmt.Errorf("parsing front matter: %w", err)
		}
	}
	if front.Title == "" {
		front.Title = prettifySlug(slug)
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	return &Page{
		Slug:        slug,
		Title:       front.Title,
		Description: front.Description,
		Order:       front.Order,
		// Sanitized by policy above.
		HTML: template.HTML(policy.SanitizeBytes(buf.Bytes())),
	}, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the body.
func splitFrontMatter(input string) (string, string) {
	input = strings.TrimPrefix(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	return "", input
}

func prettifySlug(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Get returns the page for slug.
func (l *Library) Get(slug string) (*Page, error) {
	p, ok := l.pages[slug]
	if !ok {
		return nil, fmt.Errorf("%s: %w", slug, ErrNotFound)
	}
	return p, nil
}

// All returns every page sorted by front matter order, then slug.
func (l *Library) All() []*Page {
	pages := make([]*Page, 0, len(l.pages))
	for _, p := range l.pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Order != pages[j].Order {
			return pages[i].Order < pages[j].Order
		}
		return pages[i].Slug < pages[j].Slug
	})
	return pages
}
