package emit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themeplane/vars"
)

func scenarioSet() *vars.Set {
	s := vars.NewSet()
	s.Set("borderColor", "A")
	s.Set("foregroundColor", "C")
	return s
}

func TestStatusBarRendersColonSyntax(t *testing.T) {
	out := string(StatusBar(scenarioSet()))

	assert.Contains(t, out, "$foregroundColor: C;\n")
	assert.Contains(t, out, "$borderColor: A;\n")
}

func TestWindowManagerRendersEqualsSyntax(t *testing.T) {
	out := string(WindowManager(scenarioSet()))

	assert.Contains(t, out, "$foregroundColor = C\n")
	assert.NotContains(t, out, ";")
}

func TestEmittersAreIdempotent(t *testing.T) {
	set := vars.NewSet()
	set.Set("bg", "rgba(31, 31, 40, 0.9)")
	set.Set("accent", "#7e9cd8")
	set.Set("gap", "4px")

	emitters := map[string]Func{
		"status-bar":     StatusBar,
		"window-manager": WindowManager,
		"template":       Template("background __bg__\nforeground __accent__\n"),
	}

	for name, fn := range emitters {
		t.Run(name, func(t *testing.T) {
			first := fn(set)
			second := fn(set)
			assert.True(t, bytes.Equal(first, second))
		})
	}
}

func TestValuesArePassedThroughVerbatim(t *testing.T) {
	set := vars.NewSet()
	set.Set("shadow", "rgba(0,0,0,0.5)")

	assert.Contains(t, string(StatusBar(set)), "$shadow: rgba(0,0,0,0.5);")
	assert.Contains(t, string(WindowManager(set)), "$shadow = rgba(0,0,0,0.5)")
}

func TestEmittedFilesRoundTrip(t *testing.T) {
	set := vars.NewSet()
	set.Set("bg", "rgba(31, 31, 40, 0.9)")
	set.Set("accent", "#7e9cd8")
	set.Set("font", "\"JetBrains Mono\", monospace")

	tests := []struct {
		name   string
		emit   Func
		syntax vars.Syntax
	}{
		{name: "status-bar", emit: StatusBar, syntax: vars.SyntaxSCSS},
		{name: "window-manager", emit: WindowManager, syntax: vars.SyntaxHypr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := vars.Decode(bytes.NewReader(tt.emit(set)), tt.syntax)
			require.NoError(t, err)
			assert.Equal(t, set.Map(), decoded.Map())
			assert.Equal(t, set.Names(), decoded.Names())
		})
	}
}

func TestEmptySetProducesHeaderOnly(t *testing.T) {
	assert.Equal(t, statusBarHeader, string(StatusBar(vars.NewSet())))
	assert.Equal(t, windowManagerHeader, string(WindowManager(nil)))
}

func TestTemplateConvertsColors(t *testing.T) {
	set := vars.NewSet()
	set.Set("fg", "rgba(220, 215, 186, 0.8)")
	set.Set("bg", "#1F1F28")
	set.Set("cursor", "rgba(7e9cd8ff)")
	set.Set("font", "JetBrains Mono")

	tmpl := "foreground __fg__\nbackground __bg__\ncursor __cursor__\nfont_family __font__\nurl_color __missing__\n"
	out := string(Template(tmpl)(set))

	assert.Contains(t, out, "foreground #dcd7ba\n")
	assert.Contains(t, out, "background #1f1f28\n")
	assert.Contains(t, out, "cursor #7e9cd8\n")
	assert.Contains(t, out, "font_family JetBrains Mono\n")
	assert.Contains(t, out, "url_color __missing__\n")
}

func TestColorHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "rgb(255, 0, 0)", want: "#ff0000"},
		{in: "rgba(0,128,255,1)", want: "#0080ff"},
		{in: "#abc", want: "#aabbcc"},
		{in: "#11223344", want: "#112233"},
		{in: "rgb(ff8800)", want: "#ff8800"},
		{in: "rgba(300, 0, 0, 1)", want: "rgba(300, 0, 0, 1)"},
		{in: "hsl(0, 100%, 50%)", want: "hsl(0, 100%, 50%)"},
		{in: "4px", want: "4px"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorHex(tt.in))
		})
	}
}
