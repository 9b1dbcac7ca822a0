// Package emit renders resolved variable sets into the file formats that
// downstream consumers load.
//
// Every emitter is a pure function of its input: emitting the same set twice
// produces byte-identical output, so regenerating a file is always safe.
package emit

import (
	"strings"

	"themeplane/vars"
)

// Func renders a variable set into one consumer's file format.
type Func func(set *vars.Set) []byte

const (
	statusBarHeader     = "// Autogenerated by themeplane. Do not edit; changes are overwritten on the next apply.\n"
	windowManagerHeader = "# Autogenerated by themeplane. Do not edit; changes are overwritten on the next apply.\n"
)

// StatusBar renders `$name: value;` lines, a stylesheet fragment that the
// status bar's SCSS entry point can @use.
func StatusBar(set *vars.Set) []byte {
	var b strings.Builder
	b.WriteString(statusBarHeader)
	set.Each(func(name, value string) {
		b.WriteString("$")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString(";\n")
	})
	return []byte(b.String())
}

// WindowManager renders `$name = value` lines for a Hyprland style config
// fragment.
func WindowManager(set *vars.Set) []byte {
	var b strings.Builder
	b.WriteString(windowManagerHeader)
	set.Each(func(name, value string) {
		b.WriteString("$")
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(value)
		b.WriteString("\n")
	})
	return []byte(b.String())
}
