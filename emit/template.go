package emit

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"themeplane/vars"
)

var placeholderRe = regexp.MustCompile(`__([A-Za-z][A-Za-z0-9_-]*?)__`)

// Template returns an emitter that fills `__name__` placeholders in tmpl.
// Color values are written as #rrggbb, since terminal configs such as kitty
// do not understand rgba(); other values are substituted verbatim and
// placeholders without a matching variable are left untouched.
func Template(tmpl string) Func {
	return func(set *vars.Set) []byte {
		body := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
			value, ok := set.Get(m[2 : len(m)-2])
			if !ok {
				return m
			}
			return ColorHex(value)
		})
		return []byte(windowManagerHeader + body)
	}
}

// ColorHex converts a CSS or Hyprland color literal to #rrggbb, dropping
// alpha. Values that are not colors are returned unchanged.
func ColorHex(value string) string {
	c, ok := parseColor(value)
	if !ok {
		return value
	}
	return c.Hex()
}

func parseColor(value string) (colorful.Color, bool) {
	v := strings.ToLower(strings.TrimSpace(value))

	if strings.HasPrefix(v, "#") {
		if len(v) == 9 {
			v = v[:7]
		}
		c, err := colorful.Hex(v)
		return c, err == nil
	}

	fn, args, ok := strings.Cut(v, "(")
	if !ok || !strings.HasSuffix(args, ")") {
		return colorful.Color{}, false
	}
	fn = strings.TrimSpace(fn)
	if fn != "rgb" && fn != "rgba" {
		return colorful.Color{}, false
	}

	parts := strings.Split(strings.TrimSuffix(args, ")"), ",")
	if len(parts) == 1 {
		// Hyprland form: rgba(rrggbbaa) / rgb(rrggbb).
		hex := strings.TrimSpace(parts[0])
		if len(hex) == 8 {
			hex = hex[:6]
		}
		if len(hex) != 6 {
			return colorful.Color{}, false
		}
		c, err := colorful.Hex("#" + hex)
		return c, err == nil
	}
	if len(parts) < 3 {
		return colorful.Color{}, false
	}

	var channels [3]float64
	for i := range channels {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || f < 0 || f > 255 {
			return colorful.Color{}, false
		}
		channels[i] = f / 255
	}
	return colorful.Color{R: channels[0], G: channels[1], B: channels[2]}, true
}
