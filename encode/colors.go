package encode

import (
	"io"
	"os"

	"github.com/signadot/rbel/config"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type ColorAttr int

const (
	NameColor ColorAttr = iota
	KindColor
	ValueColor
	BinaryColor
	NoteColor
	ShadeColor
	SepColor
	InsertColor
	DeleteColor
)

type Colors struct {
	Default func(string) string
	Map     map[ColorAttr]func(string) string
}

// NewColors returns the default palette.  Colors produced by the palette are
// emitted whether or not the process writes to a terminal; use ColorsFor to
// decide.
func NewColors() *Colors {
	colors := &Colors{
		Default: colorDefault,
		Map:     map[ColorAttr]func(string) string{},
	}
	set := func(a ColorAttr, c *color.Color) {
		c.EnableColor()
		colors.Map[a] = func(s string) string { return c.Sprint(s) }
	}
	set(NameColor, color.RGB(128, 168, 196))
	set(KindColor, color.RGB(74, 92, 138))
	set(ValueColor, color.RGB(8, 196, 16))
	set(BinaryColor, color.RGB(168, 0, 196))
	set(NoteColor, color.New(color.FgBlue))
	set(ShadeColor, color.RGB(198, 198, 46))
	set(SepColor, color.RGB(96, 96, 96))
	set(InsertColor, color.New(color.FgGreen))
	set(DeleteColor, color.New(color.FgRed))
	return colors
}

func colorDefault(v string) string { return v }

func (c *Colors) Color(a ColorAttr, s string) string {
	return c.Get(a)(s)
}

func (c *Colors) Get(a ColorAttr) func(string) string {
	if c == nil {
		return colorDefault
	}
	f := c.Map[a]
	if f == nil {
		return c.Default
	}
	return f
}

// ColorsFor returns the palette to use when writing to w, or nil for plain
// output.  In auto mode colors are used only when w is a terminal.
func ColorsFor(w io.Writer, mode config.ColorMode) *Colors {
	switch mode {
	case config.ColorsAlways:
		return NewColors()
	case config.ColorsNever:
		return nil
	}
	f, ok := w.(*os.File)
	if !ok {
		return nil
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return NewColors()
	}
	return nil
}
