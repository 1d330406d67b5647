package chart

import "strings"

// Color is a named slot of the stream palette.
type Color string

const (
	Sky     Color = "SKY"
	Purple  Color = "PURPLE"
	Red     Color = "RED"
	Green   Color = "GREEN"
	Orange  Color = "ORANGE"
	Yellow  Color = "YELLOW"
	Default Color = "DEFAULT"
)

// palette is the assignment order for streams without an explicit colour.
var palette = [...]Color{Sky, Purple, Red, Green, Orange, Yellow}

var cssClasses = map[Color]string{
	Sky:     "bg-sky-500",
	Purple:  "bg-purple-500",
	Red:     "bg-red-500",
	Green:   "bg-green-500",
	Orange:  "bg-orange-500",
	Yellow:  "bg-yellow-500",
	Default: "bg-gray-500",
}

// Palette returns the ordered assignment palette.
func Palette() []Color {
	return palette[:]
}

// ColorFor returns the palette slot for the stream at ordinal.
func ColorFor(ordinal int) Color {
	n := len(palette)
	return palette[((ordinal%n)+n)%n]
}

// ParseColor accepts a colour name in any case. The empty string parses to
// the empty Color, meaning "assign from the palette".
func ParseColor(s string) (Color, bool) {
	c := Color(strings.ToUpper(strings.TrimSpace(s)))
	if c == "" {
		return "", true
	}
	_, ok := cssClasses[c]
	return c, ok
}

// CSSClass returns the presentation class for c, falling back to DEFAULT.
func (c Color) CSSClass() string {
	if cls, ok := cssClasses[c]; ok {
		return cls
	}
	return cssClasses[Default]
}
