// Package format renders preferences, linked accounts and callback
// inspections as terminal tables. Column widths adapt to the console.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/greg-hellings/deskshell/pkg/accounts"
)

// Pair is one key/value row.
type Pair struct {
	Key   string
	Value string
}

// ConsoleFormatter renders tables sized to the terminal.
type ConsoleFormatter struct {
	// MaxKeyColWidth constrains the first column. 0 picks a width from the
	// terminal size.
	MaxKeyColWidth int
	// MaxValueColWidth constrains the value column. 0 uses what is left.
	MaxValueColWidth int
	EnableColors     bool
	// Width overrides terminal detection when positive.
	Width int
}

// NewConsoleFormatter creates a formatter with colours enabled.
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{EnableColors: true}
}

func (f *ConsoleFormatter) newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.DrawBorder = true
	return tw
}

// RenderPairs writes a two-column table.
func (f *ConsoleFormatter) RenderPairs(keyHeader, valueHeader string, pairs []Pair, w io.Writer) error {
	tw := f.newTable(w)
	tw.AppendHeader(table.Row{keyHeader, valueHeader})
	keyWidth, valueWidth := f.pairWidths(pairs, w)
	if keyWidth > 0 {
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, WidthMax: keyWidth},
			{Number: 2, WidthMax: valueWidth},
		})
	}
	for _, p := range pairs {
		key, value := p.Key, p.Value
		if keyWidth > 0 {
			// truncate before colouring so escapes are never cut
			key, value = truncateRunes(key, keyWidth), truncateRunes(value, valueWidth)
		}
		tw.AppendRow(table.Row{key, f.valueCell(value)})
	}
	tw.Render()
	return nil
}

// RenderPreferences flattens prefs and renders one row per leaf.
func (f *ConsoleFormatter) RenderPreferences(prefs any, w io.Writer) error {
	pairs := Flatten(prefs)
	if err := f.RenderPairs("Key", "Value", pairs, w); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n  Entries: %d\n", len(pairs)); err != nil {
		return fmt.Errorf("failed writing summary line: %w", err)
	}
	return nil
}

// RenderAccounts lists linked accounts.
func (f *ConsoleFormatter) RenderAccounts(ids []accounts.Identity, w io.Writer) error {
	if len(ids) == 0 {
		if _, err := fmt.Fprintln(w, f.color("No linked accounts", text.FgHiBlack)); err != nil {
			return fmt.Errorf("failed writing empty notice: %w", err)
		}
		return nil
	}
	tw := f.newTable(w)
	tw.AppendHeader(table.Row{"Provider", "Login", "Name", "Email", "Linked"})
	for _, id := range ids {
		linked := "—"
		if !id.LinkedAt.IsZero() {
			linked = id.LinkedAt.Local().Format("2006-01-02 15:04")
		}
		tw.AppendRow(table.Row{id.Provider, id.Login, orDash(id.Name), orDash(id.Email), linked})
	}
	tw.Render()
	return nil
}

// RenderInspection renders the outcome of analysing a navigation URL.
func (f *ConsoleFormatter) RenderInspection(url string, pairs []Pair, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "URL: %s\n", url); err != nil {
		return fmt.Errorf("failed writing url line: %w", err)
	}
	return f.RenderPairs("Check", "Result", pairs, w)
}

func (f *ConsoleFormatter) valueCell(v string) string {
	switch v {
	case "yes", "true":
		return f.color(v, text.FgGreen)
	case "no", "false":
		return f.color(v, text.FgHiBlack)
	case "":
		return f.color("—", text.FgHiBlack)
	}
	if strings.HasPrefix(v, "error:") {
		return f.color(v, text.FgRed)
	}
	return v
}

// pairWidths returns 0, 0 when the output width is unknown.
func (f *ConsoleFormatter) pairWidths(pairs []Pair, w io.Writer) (int, int) {
	width := f.Width
	if width <= 0 {
		width = detectTerminalWidth(w)
	}
	if width <= 0 {
		return 0, 0
	}
	if width < 40 {
		width = 40
	}

	keyWidth := f.MaxKeyColWidth
	if keyWidth <= 0 {
		for _, p := range pairs {
			if l := utf8.RuneCountInString(p.Key); l > keyWidth {
				keyWidth = l
			}
		}
		if limit := width / 2; keyWidth > limit {
			keyWidth = limit
		}
		if keyWidth < 10 {
			keyWidth = 10
		}
	}
	valueWidth := f.MaxValueColWidth
	if valueWidth <= 0 {
		// borders and padding
		valueWidth = width - keyWidth - 7
		if valueWidth < 10 {
			valueWidth = 10
		}
	}

	return keyWidth, valueWidth
}

// Flatten turns a JSON-shaped value into sorted path/value pairs such as
// "window.size[0]" = "800". Empty containers are kept as "{}" and "[]"; a
// scalar root is reported under ".".
func Flatten(v any) []Pair {
	var out []Pair
	flatten("", v, &out)
	return out
}

func flatten(prefix string, v any, out *[]Pair) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			*out = append(*out, Pair{Key: rootKey(prefix), Value: "{}"})
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			flatten(p, t[k], out)
		}
	case []any:
		if len(t) == 0 {
			*out = append(*out, Pair{Key: rootKey(prefix), Value: "[]"})
			return
		}
		for i, e := range t {
			flatten(prefix+"["+strconv.Itoa(i)+"]", e, out)
		}
	default:
		*out = append(*out, Pair{Key: rootKey(prefix), Value: scalar(t)})
	}
}

func rootKey(p string) string {
	if p == "" {
		return "."
	}
	return p
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// detectTerminalWidth returns the width of w if it is a terminal, else -1.
func detectTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			return width
		}
	}
	return -1
}

// truncateRunes shortens s to max runes, ending with an ellipsis.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count >= max-1 {
			break
		}
		b.WriteRune(r)
		count++
	}
	b.WriteRune('…')
	return b.String()
}

func (f *ConsoleFormatter) color(s string, c text.Color) string {
	if !f.EnableColors {
		return s
	}
	return text.Colors{c}.Sprint(s)
}
