package core

import "strings"

// Icon is one of the supported field icons. Unknown names decode to IconUnknown.
type Icon string

const (
	IconHome          Icon = "Home"
	IconCar           Icon = "Car"
	IconSmile         Icon = "Smile"
	IconShield        Icon = "Shield"
	IconDollarSign    Icon = "DollarSign"
	IconZap           Icon = "Zap"
	IconShoppingBag   Icon = "ShoppingBag"
	IconCoffee        Icon = "Coffee"
	IconPlane         Icon = "Plane"
	IconBriefcase     Icon = "Briefcase"
	IconGraduationCap Icon = "GraduationCap"
	IconHeart         Icon = "Heart"
	IconMusic         Icon = "Music"
	IconSmartphone    Icon = "Smartphone"
	IconWifi          Icon = "Wifi"
	IconDroplet       Icon = "Droplet"
	IconFlame         Icon = "Flame"
	IconTrendingUp    Icon = "TrendingUp"
	IconTarget        Icon = "Target"

	IconUnknown Icon = "HelpCircle"
)

var icons = []Icon{
	IconHome, IconCar, IconSmile, IconShield, IconDollarSign, IconZap,
	IconShoppingBag, IconCoffee, IconPlane, IconBriefcase, IconGraduationCap,
	IconHeart, IconMusic, IconSmartphone, IconWifi, IconDroplet, IconFlame,
	IconTrendingUp, IconTarget,
}

// Icons lists the supported icons in display order.
func Icons() []Icon {
	return append([]Icon(nil), icons...)
}

// ParseIcon maps a name to its icon, or IconUnknown.
func ParseIcon(name string) Icon {
	for _, i := range icons {
		if string(i) == name {
			return i
		}
	}
	return IconUnknown
}

func (i Icon) IsValid() bool {
	return ParseIcon(string(i)) != IconUnknown
}

func (i *Icon) UnmarshalText(b []byte) error {
	*i = ParseIcon(string(b))
	return nil
}

// Color is one of the supported field colors. Unknown names decode to ColorUnknown.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorPink   Color = "pink"
	ColorIndigo Color = "indigo"
	ColorTeal   Color = "teal"
	ColorOrange Color = "orange"
	ColorGray   Color = "gray"

	ColorUnknown Color = "unknown"
)

// FallbackHex is used for charts when a color has no known value.
const FallbackHex = "#8884d8"

var colorHex = map[Color]string{
	ColorBlue:   "#3b82f6",
	ColorPurple: "#a855f7",
	ColorGreen:  "#22c55e",
	ColorRed:    "#ef4444",
	ColorYellow: "#eab308",
	ColorPink:   "#ec4899",
	ColorIndigo: "#6366f1",
	ColorTeal:   "#14b8a6",
	ColorOrange: "#f97316",
	ColorGray:   "#6b7280",
}

var colors = []Color{
	ColorBlue, ColorPurple, ColorGreen, ColorRed, ColorYellow,
	ColorPink, ColorIndigo, ColorTeal, ColorOrange, ColorGray,
}

// Colors lists the supported colors in display order.
func Colors() []Color {
	return append([]Color(nil), colors...)
}

// ParseColor maps a name (case-insensitive) to its color, or ColorUnknown.
func ParseColor(name string) Color {
	c := Color(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := colorHex[c]; ok {
		return c
	}
	return ColorUnknown
}

func (c Color) IsValid() bool {
	_, ok := colorHex[c]
	return ok
}

// Hex returns the chart color for c.
func (c Color) Hex() string {
	if h, ok := colorHex[c]; ok {
		return h
	}
	return FallbackHex
}

func (c *Color) UnmarshalText(b []byte) error {
	*c = ParseColor(string(b))
	return nil
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the opposite theme. Anything that is not dark becomes dark.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark
}

func (t FieldType) IsValid() bool {
	return t == FieldStandard || t == FieldSavings
}
