package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Loader reads pre-extracted page text from a corpus directory.
//
// Two file kinds are eligible:
//   - .txt files: page-extracted text, pages separated by form feed (\f),
//     the convention used by pdftotext and similar extractors.
//   - .md files: flattened to plain text via goldmark and treated as a
//     single page.
//
// PDF extraction itself happens upstream; the loader only consumes its
// output.
type Loader struct {
	parser goldmark.Markdown
}

// NewLoader creates a corpus loader.
func NewLoader() *Loader {
	return &Loader{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Load walks dir (non-recursive, sorted file order) and returns one Document
// per non-empty page. It fails if the directory is missing or contains no
// eligible source files.
func (l *Loader) Load(ctx context.Context, dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus directory does not exist: %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".txt", ".md":
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var docs []Document
	for _, name := range names {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus file %s: %w", name, err)
		}

		var pages []string
		if strings.EqualFold(filepath.Ext(name), ".md") {
			pages = []string{l.flattenMarkdown(raw)}
		} else {
			pages = strings.Split(string(raw), "\f")
		}

		key := SourceKey(name)
		for i, page := range pages {
			if strings.TrimSpace(page) == "" {
				continue
			}
			docs = append(docs, Document{
				Source:    name,
				SourceKey: key,
				Page:      i,
				Text:      page,
			})
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no eligible source documents in: %s", dir)
	}
	return docs, nil
}

// flattenMarkdown parses markdown and extracts its plain text content,
// keeping table rows pipe-separated so the block classifier can still
// recognize them as tabular.
func (l *Loader) flattenMarkdown(content []byte) string {
	reader := text.NewReader(content)
	doc := l.parser.Parser().Parse(reader)

	var builder strings.Builder

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		kindName := n.Kind().String()
		if strings.Contains(kindName, "TableRow") || strings.Contains(kindName, "TableHeader") {
			ensureNewline(&builder)
			builder.WriteString(tableRowText(n, content))
			builder.WriteString("\n")
			return ast.WalkSkipChildren, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.List, *ast.ListItem:
			ensureBlankLine(&builder, n)
		case *ast.Text:
			builder.Write(node.Segment.Value(content))
			if node.HardLineBreak() || node.SoftLineBreak() {
				builder.WriteString("\n")
			}
		case *ast.String:
			builder.Write(node.Value)
		case *ast.CodeBlock:
			ensureNewline(&builder)
			writeLines(&builder, node.Lines(), content)
		case *ast.FencedCodeBlock:
			ensureNewline(&builder)
			writeLines(&builder, node.Lines(), content)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(builder.String())
}

func ensureNewline(builder *strings.Builder) {
	if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n") {
		builder.WriteString("\n")
	}
}

func ensureBlankLine(builder *strings.Builder, n ast.Node) {
	if builder.Len() == 0 {
		return
	}
	// Block-level nodes get a paragraph break; list items only a newline.
	if _, ok := n.(*ast.ListItem); ok {
		ensureNewline(builder)
		return
	}
	ensureNewline(builder)
	if !strings.HasSuffix(builder.String(), "\n\n") {
		builder.WriteString("\n")
	}
}

func writeLines(builder *strings.Builder, lines *text.Segments, content []byte) {
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		builder.Write(line.Value(content))
	}
}

func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if strings.Contains(node.Kind().String(), "TableCell") {
			cells = append(cells, nodeText(node, content))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(cells, " | ")
}

func nodeText(n ast.Node, content []byte) string {
	var builder strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			builder.Write(v.Segment.Value(content))
		case *ast.String:
			builder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(builder.String())
}
