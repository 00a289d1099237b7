package summarize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	docxFont     = "Calibri"
	docxBodySize = 11
)

var (
	mdHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	mdBullet  = regexp.MustCompile(`^[-*+]\s+(.+)$`)
	mdBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// WriteDocx renders a Markdown summary into a Word document at path. Only the
// subset the summary prompt produces is understood: headings, bullets and
// bold spans. Everything else is written as plain paragraphs.
func WriteDocx(title, markdown, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new document: %w", err)
	}

	if title != "" {
		run(doc.AddParagraph(""), title, 16, true)
	}

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "---" {
			continue
		}
		if m := mdHeading.FindStringSubmatch(line); m != nil {
			run(doc.AddParagraph(""), m[2], headingSize(len(m[1])), true)
			continue
		}
		if m := mdBullet.FindStringSubmatch(line); m != nil {
			line = "• " + m[1]
		}
		inline(doc.AddParagraph(""), line)
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func headingSize(level int) uint64 {
	if level >= 4 {
		return docxBodySize + 1
	}
	return uint64(17 - level)
}

func run(p *docx.Paragraph, text string, size uint64, bold bool) {
	r := p.AddText(stripInline(text)).Font(docxFont).Size(size)
	if bold {
		r.Bold(true)
	}
}

// inline writes text with **bold** spans rendered as bold runs.
func inline(p *docx.Paragraph, text string) {
	plain := mdBold.Split(text, -1)
	bold := mdBold.FindAllStringSubmatch(text, -1)
	for i, part := range plain {
		if part != "" {
			run(p, part, docxBodySize, false)
		}
		if i < len(bold) {
			run(p, bold[i][1], docxBodySize, true)
		}
	}
}

func stripInline(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
