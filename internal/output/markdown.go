package output

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// Markdown writes md, rendered through glamour when the printer is in color
// mode and as plain Markdown otherwise.
func (p *Printer) Markdown(md string) error {
	if !p.color {
		_, err := fmt.Fprint(p.w, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = fmt.Fprint(p.w, out)
	return err
}
