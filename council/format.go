package council

import (
	"fmt"
	"strings"
)

// Render turns a Result into the user-facing markdown document.
//
// Failed runs render a fixed error block with the literal error text and no
// persona content. Successful runs render a collapsed perspectives section
// in roster order, a "k/N responded" summary, then the synthesis as the
// primary content under the lead's name.
func Render(r *Result) string {
	if r == nil {
		return ""
	}
	if !r.Succeeded {
		var b strings.Builder
		b.WriteString("## Council consultation failed\n\n")
		if r.Err != nil {
			b.WriteString(r.Err.Error())
			b.WriteString("\n\n")
		}
		b.WriteString("Please try again, or consult a single persona directly.\n")
		return b.String()
	}

	responded := 0
	for _, p := range r.Perspectives {
		if p.Succeeded {
			responded++
		}
	}

	var b strings.Builder
	b.WriteString("<details>\n")
	fmt.Fprintf(&b, "<summary>Council perspectives (%d/%d responded)</summary>\n\n", responded, len(r.Perspectives))

	for _, p := range r.Perspectives {
		glyph := "✅"
		if !p.Succeeded {
			glyph = "❌"
		}
		fmt.Fprintf(&b, "### %s %s — %s\n", glyph, p.Name, p.Role)
		if p.Focus != "" {
			fmt.Fprintf(&b, "_%s_\n", p.Focus)
		}
		b.WriteString("\n")
		b.WriteString(p.Answer)
		b.WriteString("\n\n")
	}
	b.WriteString("</details>\n\n")

	fmt.Fprintf(&b, "**Synthesis by %s:**\n\n", r.LeadName)
	b.WriteString(r.Synthesis)
	b.WriteString("\n")
	return b.String()
}
