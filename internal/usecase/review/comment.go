package review

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dfarr/autoreviewer/internal/domain"
)

// CommentInput carries everything needed to render one review comment.
type CommentInput struct {
	Path       string
	Review     string
	Model      string
	Mode       domain.ReviewMode
	Repository string
	LinkBase   string
	Truncated  bool
	Timestamp  time.Time
}

// RenderComment formats a generated review into the comment body that is
// published to the tracker or written to the log.
func RenderComment(in CommentInput) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("### Code review: %s\n\n", fileLink(in)))
	b.WriteString(fmt.Sprintf("- Model: `%s`\n", in.Model))
	b.WriteString(fmt.Sprintf("- Mode: %s\n", modeLabel(in.Mode)))
	b.WriteString(fmt.Sprintf("- Generated: %s\n", in.Timestamp.UTC().Format(time.RFC3339)))
	if in.Truncated {
		b.WriteString("- Note: the diff was truncated before review due to its size\n")
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(in.Review))
	b.WriteString("\n\n---\n")
	b.WriteString("_This review was generated automatically. Treat the findings as suggestions; they may be incomplete or wrong._\n")

	return b.String()
}

func fileLink(in CommentInput) string {
	if in.LinkBase == "" || in.Repository == "" {
		return fmt.Sprintf("`%s`", in.Path)
	}
	url := fmt.Sprintf("%s/%s/blob/HEAD/%s",
		strings.TrimRight(in.LinkBase, "/"), in.Repository, in.Path)
	return fmt.Sprintf("[`%s`](%s)", in.Path, url)
}

func modeLabel(mode domain.ReviewMode) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(string(mode), "_", " "))
}
