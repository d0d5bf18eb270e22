// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package render displays composed loadout instructions as styled
// terminal text. Bundle instruction markdown is written for model
// consumption, but operators read it too (loadout show), so the
// renderer reflows paragraphs to the terminal width and highlights
// code fences.
package render

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Theme is the color palette for rendered markdown.
type Theme struct {
	Text    lipgloss.Color
	Faint   lipgloss.Color
	Heading lipgloss.Color
	Border  lipgloss.Color
}

// DefaultTheme is a dark-terminal palette.
var DefaultTheme = Theme{
	Text:    lipgloss.Color("252"),
	Faint:   lipgloss.Color("243"),
	Heading: lipgloss.Color("81"),
	Border:  lipgloss.Color("240"),
}

// The goldmark parser is configured once and shared: parsing creates
// per-call state via Parse(reader), so the instance is safe to reuse.
var (
	parserInstance goldmark.Markdown
	parserOnce     sync.Once
)

func markdownParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return parserInstance
}

// Markdown renders markdown text as styled terminal output wrapped to
// width. Soft line breaks (single newlines within paragraphs) become
// spaces so hard-wrapped source reflows at any terminal width. Code
// fences, lists, blockquotes, and tables keep their structure.
func Markdown(input string, width int) string {
	if input == "" {
		return ""
	}
	source := []byte(input)
	document := markdownParser().Parser().Parse(text.NewReader(source))

	// Force ANSI256: output goes to a terminal pager or straight to a
	// TTY, and lipgloss's auto-detection would strip all color when
	// stdout is piped through less.
	styler := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.ANSI256))
	styler.SetColorProfile(termenv.ANSI256)

	r := &renderer{
		source: source,
		theme:  DefaultTheme,
		width:  width,
		styler: styler,
	}
	ast.Walk(document, r.walk)

	return strings.TrimRight(r.output.String(), "\n") + "\n"
}

// renderer walks a goldmark AST and accumulates styled terminal text.
// Inline content collects in a buffer and is word-wrapped as a unit
// when the containing block closes; block containers (blockquotes,
// list items) contribute line prefixes via a stack.
type renderer struct {
	source []byte
	theme  Theme
	width  int
	styler *lipgloss.Renderer

	output strings.Builder
	inline strings.Builder

	prefixes    []string
	prefixWidth int
	bullet      string // replaces the prefix for the next emitted line

	bold   int
	italic int
	strike int

	lists []listState

	trailingNewlines int
}

type listState struct {
	ordered bool
	counter int
	tight   bool
}

func (r *renderer) style() lipgloss.Style {
	return r.styler.NewStyle()
}

func (r *renderer) contentWidth() int {
	width := r.width - r.prefixWidth
	if width < 10 {
		width = 10
	}
	return width
}

func (r *renderer) pushPrefix(prefix string) {
	r.prefixes = append(r.prefixes, prefix)
	r.prefixWidth += len(prefix)
}

func (r *renderer) popPrefix() {
	if len(r.prefixes) == 0 {
		return
	}
	r.prefixWidth -= len(r.prefixes[len(r.prefixes)-1])
	r.prefixes = r.prefixes[:len(r.prefixes)-1]
}

func (r *renderer) linePrefix() string {
	return strings.Join(r.prefixes, "")
}

// emit appends text to the output, tracking trailing newlines so
// ensureBlankLine can separate blocks without stacking blanks.
func (r *renderer) emit(s string) {
	if s == "" {
		return
	}
	r.output.WriteString(s)
	trailing := 0
	allNewlines := true
	for index := len(s) - 1; index >= 0; index-- {
		if s[index] != '\n' {
			allNewlines = false
			break
		}
		trailing++
	}
	if allNewlines {
		r.trailingNewlines += trailing
	} else {
		r.trailingNewlines = trailing
	}
}

func (r *renderer) ensureNewline() {
	if r.trailingNewlines < 1 {
		r.emit("\n")
	}
}

func (r *renderer) ensureBlankLine() {
	for r.trailingNewlines < 2 {
		r.emit("\n")
	}
}

// prefixed prepends the line prefix to each line. The first line uses
// the pending bullet when one is set (list items).
func (r *renderer) prefixed(content string) string {
	lines := strings.Split(content, "\n")
	var result strings.Builder
	for index, line := range lines {
		if index == 0 && r.bullet != "" {
			result.WriteString(r.bullet)
			r.bullet = ""
		} else {
			result.WriteString(r.linePrefix())
		}
		result.WriteString(line)
		if index < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// flushInline word-wraps the accumulated inline content and applies
// line prefixes. Resets the inline buffer.
func (r *renderer) flushInline() string {
	content := r.inline.String()
	r.inline.Reset()
	if content == "" {
		return ""
	}
	return r.prefixed(ansi.Wrap(content, r.contentWidth(), " ,.;-"))
}

func (r *renderer) styledText(content string) string {
	style := r.style().Foreground(r.theme.Text)
	if r.bold > 0 {
		style = style.Bold(true)
	}
	if r.italic > 0 {
		style = style.Italic(true)
	}
	if r.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

// inlineContent renders a node's children into a string, saving and
// restoring the inline buffer and style counters around the walk.
func (r *renderer) inlineContent(node ast.Node) string {
	saved := r.inline.String()
	savedBold, savedItalic, savedStrike := r.bold, r.italic, r.strike

	r.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, r.walk)
	}
	result := r.inline.String()

	r.inline.Reset()
	r.inline.WriteString(saved)
	r.bold, r.italic, r.strike = savedBold, savedItalic, savedStrike
	return result
}

func (r *renderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {

	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			r.inline.Reset()
		} else if flushed := r.flushInline(); flushed != "" {
			r.emit(flushed)
			r.ensureNewline()
			if !r.inTightList() {
				r.ensureBlankLine()
			}
		}

	case ast.KindHeading:
		if entering {
			r.inline.Reset()
		} else {
			r.leaveHeading(node.(*ast.Heading))
		}

	case ast.KindFencedCodeBlock:
		if entering {
			r.renderCode(blockText(node, r.source), string(node.(*ast.FencedCodeBlock).Language(r.source)))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		if entering {
			r.renderCode(blockText(node, r.source), "")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			r.pushPrefix("│ ")
		} else {
			r.popPrefix()
			r.ensureBlankLine()
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			start := 0
			if list.IsOrdered() {
				start = list.Start
			}
			r.lists = append(r.lists, listState{ordered: list.IsOrdered(), counter: start, tight: list.IsTight})
		} else {
			if len(r.lists) > 0 {
				r.lists = r.lists[:len(r.lists)-1]
			}
			if !r.inTightList() {
				r.ensureBlankLine()
			}
		}

	case ast.KindListItem:
		if entering {
			r.enterListItem()
		} else {
			r.popPrefix()
			if r.inTightList() {
				r.ensureNewline()
			} else {
				r.ensureBlankLine()
			}
		}

	case ast.KindThematicBreak:
		if entering {
			rule := r.style().Foreground(r.theme.Border).Render(strings.Repeat("─", r.contentWidth()))
			r.ensureBlankLine()
			r.emit(r.prefixed(rule))
			r.ensureNewline()
			r.ensureBlankLine()
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			r.inline.WriteString(r.styledText(string(textNode.Segment.Value(r.source))))
			if textNode.SoftLineBreak() {
				// Soft breaks become spaces so hard-wrapped source
				// reflows at the terminal width.
				r.inline.WriteString(" ")
			}
			if textNode.HardLineBreak() {
				r.inline.WriteString("\n")
			}
		}

	case ast.KindString:
		if entering {
			r.inline.WriteString(r.styledText(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if node.(*ast.Emphasis).Level >= 2 {
			r.bold += delta
		} else {
			r.italic += delta
		}

	case extast.KindStrikethrough:
		if entering {
			r.strike++
		} else {
			r.strike--
		}

	case ast.KindCodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				switch span := child.(type) {
				case *ast.Text:
					code.Write(span.Segment.Value(r.source))
				case *ast.String:
					code.Write(span.Value)
				}
			}
			r.inline.WriteString(r.style().Foreground(r.theme.Faint).Render(code.String()))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			link := node.(*ast.Link)
			r.inline.WriteString(r.inlineContent(link))
			if url := string(link.Destination); url != "" {
				r.inline.WriteString(" " + r.style().Foreground(r.theme.Faint).Render("("+url+")"))
			}
			return ast.WalkSkipChildren, nil
		}

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(r.source))
			r.inline.WriteString(r.style().Foreground(r.theme.Faint).Render(url))
		}

	case ast.KindImage:
		if entering {
			image := node.(*ast.Image)
			faint := r.style().Foreground(r.theme.Faint)
			r.inline.WriteString(faint.Render("[" + ansi.Strip(r.inlineContent(image)) + "]"))
			if url := string(image.Destination); url != "" {
				r.inline.WriteString(" " + faint.Render("("+url+")"))
			}
			return ast.WalkSkipChildren, nil
		}

	case extast.KindTable:
		if entering {
			r.renderTable(node.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				r.inline.WriteString(r.styledText("[x] "))
			} else {
				r.inline.WriteString(r.styledText("[ ] "))
			}
		}
	}

	return ast.WalkContinue, nil
}

func (r *renderer) inTightList() bool {
	return len(r.lists) > 0 && r.lists[len(r.lists)-1].tight
}

func (r *renderer) enterListItem() {
	if len(r.lists) == 0 {
		return
	}
	top := &r.lists[len(r.lists)-1]

	bullet := "- "
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		top.counter++
	}

	// The pending bullet carries the full current prefix so it
	// replaces it entirely on the item's first line.
	r.bullet = r.linePrefix() + bullet
	r.pushPrefix(strings.Repeat(" ", len(bullet)))
}

func (r *renderer) leaveHeading(heading *ast.Heading) {
	// Strip inline styling: the heading style replaces it wholesale.
	content := ansi.Strip(r.inline.String())
	r.inline.Reset()
	if content == "" {
		return
	}

	style := r.style().Bold(true).Foreground(r.theme.Text)
	if heading.Level <= 2 {
		style = style.Foreground(r.theme.Heading)
	}

	wrapped := ansi.Wrap(style.Render(content), r.contentWidth(), " ,.;-")
	r.ensureBlankLine()
	r.emit(r.prefixed(wrapped))
	r.ensureNewline()
	r.ensureBlankLine()
}

// renderCode emits a code block, syntax-highlighted via chroma when a
// fence language is present. Highlight failures (unknown language)
// fall back to faint plain text.
func (r *renderer) renderCode(code, language string) {
	highlighted := ""
	if language != "" {
		var buffer strings.Builder
		if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err == nil {
			highlighted = buffer.String()
		}
	}
	if highlighted == "" {
		highlighted = r.style().Foreground(r.theme.Faint).Render(code)
	}

	r.ensureBlankLine()
	for _, line := range strings.Split(strings.TrimRight(highlighted, "\n"), "\n") {
		if r.bullet != "" {
			r.emit(r.bullet)
			r.bullet = ""
		} else {
			r.emit(r.linePrefix())
		}
		r.emit(line)
		r.ensureNewline()
	}
	r.ensureBlankLine()
}

func (r *renderer) renderTable(table *extast.Table) {
	var headerCells []string
	var bodyRows [][]string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.Kind() {
		case extast.KindTableHeader:
			headerCells = r.collectRow(child)
		case extast.KindTableRow:
			bodyRows = append(bodyRows, r.collectRow(child))
		}
	}

	columnCount := len(headerCells)
	if columnCount == 0 && len(bodyRows) > 0 {
		columnCount = len(bodyRows[0])
	}
	if columnCount == 0 {
		return
	}

	widths := make([]int, columnCount)
	measure := func(row []string) {
		for index, cell := range row {
			if index < columnCount && lipgloss.Width(cell) > widths[index] {
				widths[index] = lipgloss.Width(cell)
			}
		}
	}
	measure(headerCells)
	for _, row := range bodyRows {
		measure(row)
	}

	r.ensureBlankLine()
	if len(headerCells) > 0 {
		r.emit(r.prefixed(r.formatRow(headerCells, widths, r.style().Bold(true).Foreground(r.theme.Text))))
		r.ensureNewline()
		var parts []string
		for _, width := range widths {
			parts = append(parts, strings.Repeat("─", width))
		}
		r.emit(r.prefixed(r.style().Foreground(r.theme.Border).Render(strings.Join(parts, "  "))))
		r.ensureNewline()
	}
	for _, row := range bodyRows {
		r.emit(r.prefixed(r.formatRow(row, widths, r.style())))
		r.ensureNewline()
	}
	r.ensureBlankLine()
}

func (r *renderer) collectRow(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if cell.Kind() == extast.KindTableCell {
			cells = append(cells, r.inlineContent(cell))
		}
	}
	return cells
}

func (r *renderer) formatRow(cells []string, widths []int, baseStyle lipgloss.Style) string {
	var parts []string
	for index, width := range widths {
		cell := ""
		if index < len(cells) {
			cell = cells[index]
		}
		if lipgloss.Width(cell) > width {
			cell = ansi.Truncate(cell, width, "…")
		}
		if padding := width - lipgloss.Width(cell); padding > 0 {
			cell += strings.Repeat(" ", padding)
		}
		parts = append(parts, cell)
	}
	return baseStyle.Render(strings.Join(parts, "  "))
}

// blockText collects the source text of a code block's line segments.
func blockText(node ast.Node, source []byte) string {
	var code strings.Builder
	lines := node.Lines()
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		code.Write(segment.Value(source))
	}
	return code.String()
}
