// Package comicinfo rewrites the page list of a ComicInfo.xml sidecar so it
// matches the pages actually kept in an archive.
//
// The document is treated as lines, not parsed as XML: everything outside
// the <Pages> block and the <PageCount> line is copied through untouched,
// including the byte-order mark and line endings.
package comicinfo

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"cbzpress/internal/services"
)

// FileName is the sidecar's fixed name at the archive root.
const FileName = "ComicInfo.xml"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PageEntry describes one kept page.
type PageEntry struct {
	Ordinal int
	Size    int64
	Width   int
	Height  int
}

// Line renders the entry as a <Page/> element. Only ordinal 0 carries the
// FrontCover type.
func (p PageEntry) Line(indent string) string {
	line := fmt.Sprintf(`%s<Page Image="%d" ImageSize="%d" ImageWidth="%d" ImageHeight="%d"`,
		indent, p.Ordinal, p.Size, p.Width, p.Height)
	if p.Ordinal == 0 {
		line += ` Type="FrontCover"`
	}
	return line + " />"
}

// Rewrite returns a new line list in which the page block lists exactly
// pages and the page count equals len(pages). A self-closing <Pages/> is
// expanded. When no <PageCount> line exists one is inserted just above the
// page block.
func Rewrite(lines []string, pages []PageEntry) ([]string, error) {
	out := make([]string, 0, len(lines)+len(pages)+2)
	countLine := func(indent string) string {
		return fmt.Sprintf("%s<PageCount>%d</PageCount>", indent, len(pages))
	}
	appendPages := func(indent string) {
		for _, page := range pages {
			out = append(out, page.Line(indent+"  "))
		}
	}

	var (
		inBlock     bool
		done        bool
		sawCount    bool
		blockAt     = -1
		blockIndent string
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

		if inBlock {
			if trimmed == "</Pages>" {
				out = append(out, line)
				inBlock = false
				done = true
			}
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "<PageCount>") || trimmed == "<PageCount/>" || trimmed == "<PageCount />":
			out = append(out, countLine(indent))
			sawCount = true
		case done:
			out = append(out, line)
		case trimmed == "<Pages/>" || trimmed == "<Pages />":
			blockAt, blockIndent = len(out), indent
			out = append(out, indent+"<Pages>")
			appendPages(indent)
			out = append(out, indent+"</Pages>")
			done = true
		case trimmed == "<Pages>":
			blockAt, blockIndent = len(out), indent
			out = append(out, line)
			appendPages(indent)
			inBlock = true
		default:
			out = append(out, line)
		}
	}

	if inBlock {
		return nil, services.Wrap(services.ErrMetadata, "reconcile", "rewrite", "unterminated <Pages> block", nil)
	}
	if !done {
		return nil, services.Wrap(services.ErrMetadata, "reconcile", "rewrite", "no <Pages> marker", nil)
	}
	if !sawCount {
		out = slices.Insert(out, blockAt, countLine(blockIndent))
	}
	return out, nil
}

// Reconcile rewrites the sidecar at src into dst. found is false, with a nil
// error, when src does not exist.
func Reconcile(fsys afero.Fs, src, dst string, pages []PageEntry) (found bool, err error) {
	data, err := afero.ReadFile(fsys, src)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return true, services.Wrap(services.ErrMetadata, "reconcile", "read", src, err)
	}

	doc := parse(data)
	lines, err := Rewrite(doc.lines, pages)
	if err != nil {
		return true, err
	}
	doc.lines = lines
	if err := afero.WriteFile(fsys, dst, doc.bytes(), 0o644); err != nil {
		return true, services.Wrap(services.ErrMetadata, "reconcile", "write", dst, err)
	}
	return true, nil
}

// PageCount returns the value of the first <PageCount> line in data.
func PageCount(data []byte) (int, bool) {
	for _, line := range parse(data).lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "<PageCount>") {
			continue
		}
		value := strings.TrimSuffix(strings.TrimPrefix(trimmed, "<PageCount>"), "</PageCount>")
		n, err := strconv.Atoi(strings.TrimSpace(value))
		return n, err == nil
	}
	return 0, false
}

// PageLines counts the <Page .../> elements in data.
func PageLines(data []byte) int {
	count := 0
	for _, line := range parse(data).lines {
		if strings.HasPrefix(strings.TrimSpace(line), "<Page ") {
			count++
		}
	}
	return count
}

type document struct {
	bom      bool
	eol      string
	trailing bool
	lines    []string
}

func parse(data []byte) document {
	doc := document{eol: "\n"}
	if bytes.HasPrefix(data, utf8BOM) {
		doc.bom = true
		data = data[len(utf8BOM):]
	}
	text := string(data)
	if strings.Contains(text, "\r\n") {
		doc.eol = "\r\n"
	}
	if strings.HasSuffix(text, "\n") {
		doc.trailing = true
		text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
	}
	if text == "" {
		return doc
	}
	for _, line := range strings.Split(text, "\n") {
		doc.lines = append(doc.lines, strings.TrimSuffix(line, "\r"))
	}
	return doc
}

func (d document) bytes() []byte {
	var buf bytes.Buffer
	if d.bom {
		buf.Write(utf8BOM)
	}
	buf.WriteString(strings.Join(d.lines, d.eol))
	if d.trailing {
		buf.WriteString(d.eol)
	}
	return buf.Bytes()
}
