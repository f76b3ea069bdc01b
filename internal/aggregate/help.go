package aggregate

import (
	"fmt"

	"a11y-checker/internal/models"
)

// helpURL points at runner-specific documentation for the issue code.
func helpURL(code string, cfg models.AnalyzerConfig) string {
	switch cfg.Runner {
	case "axe":
		return fmt.Sprintf("https://dequeuniversity.com/rules/axe/4.8/%s", code)
	case "htmlcs":
		return fmt.Sprintf("https://squizlabs.github.io/HTML_CodeSniffer/Standards/%s.html#%s", cfg.Standard, code)
	}
	return "https://www.w3.org/WAI/WCAG21/quickref/"
}

// Fix suggestions for the most common rule codes.
var suggestionTable = map[string][]string{
	"color-contrast": {
		"Increase the contrast ratio to at least 4.5:1 for normal text",
		"Use a darker text color or lighter background color",
		"Consider using WCAG contrast checker tools",
	},
	"label": {
		"Add a visible label element",
		"Use aria-label or aria-labelledby attributes",
		"Ensure the label is associated with the form control",
	},
	"image-alt": {
		"Add alt attribute to img elements",
		"Use empty alt=\"\" for decorative images",
		"Provide descriptive alt text for informative images",
	},
	"link-name": {
		"Add descriptive text content to links",
		"Use aria-label for icon-only links",
		"Ensure link purpose is clear from context",
	},
	"button-name": {
		"Add text content to button elements",
		"Use aria-label for icon-only buttons",
		"Ensure button purpose is clear",
	},
}

var fallbackSuggestions = []string{
	"Review the WCAG guidelines for this issue",
	"Test with screen readers",
	"Consider user testing with people with disabilities",
}

func suggestionsFor(code string) []string {
	if s, ok := suggestionTable[code]; ok {
		return append([]string(nil), s...)
	}
	return append([]string(nil), fallbackSuggestions...)
}
