package view

import (
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var funcs = template.FuncMap{
	"silver": FormatSilver,
	"inc":    func(i int) int { return i + 1 },
}

// FormatSilver formats an amount with two decimals and digit grouping.
func FormatSilver(v float64) string {
	return printer.Sprintf("%.2f", v)
}
