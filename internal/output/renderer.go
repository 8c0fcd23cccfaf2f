package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/sharetail/internal/model"
)

// Renderer writes read results to an output stream.
type Renderer interface {
	Render(res model.DeltaResult) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleTime   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true) // gray
	styleSource = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true)  // cyan
	styleLine   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
)

// TextRenderer prints new lines to the terminal, each tagged with the time it
// was read and the file it came from.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to stdout.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{w: os.Stdout}
}

func (r *TextRenderer) Render(res model.DeltaResult) error {
	ts := styleTime.Render(res.Timestamp.Format("15:04:05"))

	if !res.Success {
		_, err := fmt.Fprintf(r.w, "%s %s\n", ts, styleError.Render("error: "+res.Error))
		return err
	}

	src := styleSource.Render(res.FileName)
	for _, line := range res.NewLines {
		if _, err := fmt.Fprintf(r.w, "%s %s %s\n", ts, src, styleLine.Render(line)); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each result as a log_update event, one JSON object per
// line, in the same shape the websocket pushes.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

func (r *JSONRenderer) Render(res model.DeltaResult) error {
	return r.enc.Encode(model.NewUpdateEvent(res))
}

// New returns the renderer for format ("text" or "json") writing to w.
func New(format string, w io.Writer) (Renderer, error) {
	switch format {
	case "", "text":
		return &TextRenderer{w: w}, nil
	case "json":
		return &JSONRenderer{enc: json.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}
