package color

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// ANSI colour indices understood by termenv profiles
const (
	Red     = "1"
	Green   = "2"
	Yellow  = "3"
	Blue    = "4"
	Magenta = "5"
	Cyan    = "6"
	White   = "7"
	Gray    = "8"

	BrightRed     = "9"
	BrightGreen   = "10"
	BrightYellow  = "11"
	BrightBlue    = "12"
	BrightMagenta = "13"
	BrightCyan    = "14"
	BrightWhite   = "15"
)

// profile honours NO_COLOR / CLICOLOR_FORCE and the terminal capabilities
var profile = termenv.EnvColorProfile()

// EnableColor forces colour output on or off
func EnableColor(enable bool) {
	if !enable {
		profile = termenv.Ascii
		return
	}
	if profile == termenv.Ascii {
		profile = termenv.ANSI
	}
}

func IsColorEnabled() bool {
	return profile != termenv.Ascii
}

// Profile returns the active colour profile
func Profile() termenv.Profile {
	return profile
}

func Colorize(color, text string) string {
	return profile.String(text).Foreground(profile.Color(color)).String()
}

func RedText(text string) string {
	return Colorize(Red, text)
}

func BrightRedText(text string) string {
	return Colorize(BrightRed, text)
}

func GreenText(text string) string {
	return Colorize(Green, text)
}

func YellowText(text string) string {
	return Colorize(Yellow, text)
}

func BlueText(text string) string {
	return Colorize(Blue, text)
}

func CyanText(text string) string {
	return Colorize(Cyan, text)
}

func GrayText(text string) string {
	return Colorize(Gray, text)
}

func BoldText(text string) string {
	return profile.String(text).Bold().String()
}

func Error(message string) string {
	return BrightRedText("Error: ") + message
}

func Warning(message string) string {
	return YellowText("Warning: ") + message
}

func Highlight(text, highlight string) string {
	if !IsColorEnabled() {
		return text
	}
	return strings.ReplaceAll(text, highlight, YellowText(highlight))
}

func Position(line, col int) string {
	return CyanText(fmt.Sprintf("%d:%d", line, col))
}

func ErrorWithPosition(line, col int, message, context string) string {
	if !IsColorEnabled() {
		return fmt.Sprintf("Error at %d:%d: %s\n%s", line, col, message, context)
	}

	return fmt.Sprintf("%s at %s: %s\n%s",
		BrightRedText(BoldText("Error")),
		Position(line, col),
		message,
		GrayText(context))
}
