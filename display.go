package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"imgsx/engines"
)

const maxCaptionWords = 48

type SearchOptions struct {
	SearchEngines   []string
	PriorityEngines []string
	SauceNaoKey     string
	JSON            bool
	UpdateConfig    bool
	History         int
	ClearHistory    bool
}

func printResults(w io.Writer, ref string, outcomes []engines.Outcome, expand bool, noColor bool) {
	if noColor {
		color.NoColor = true
	}

	bold := color.New(color.FgWhite, color.Bold)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Image: %s\n\n", bold.Sprint(ref))

	for i, o := range outcomes {
		r := o.Result
		header := color.New(o.Color, color.Bold)

		marker := ""
		if o.Priority {
			marker = " " + yellow.Sprint("*")
		}
		status := ""
		if o.Failed() {
			status = " " + dim.Sprint("(fallback)")
		}
		fmt.Fprintf(w, " %s %s%s%s\n", cyan.Sprintf("%2d.", i+1), header.Sprint(o.Name), marker, status)

		if r.HasURL() {
			fmt.Fprintf(w, "     %s\n", r.URL)
		}
		if line := formatDetails(r.Best()); line != "" {
			fmt.Fprintf(w, "     %s\n", line)
		}
		if r.Caption != "" {
			for _, line := range wrapText(formatCaption(r.Caption), getTerminalWidth()-5) {
				fmt.Fprintf(w, "     %s\n", line)
			}
		}

		if expand && len(r.Extended) > 0 {
			for _, item := range r.Extended {
				printItem(w, item, dim)
			}
		}

		for _, d := range r.Diagnostics {
			fmt.Fprintf(w, "     %s\n", dim.Sprintf("[%s]", d))
		}

		fmt.Fprintln(w)
	}
}

func printItem(w io.Writer, item engines.ResultItem, dim *color.Color) {
	fmt.Fprintf(w, "       - %s\n", item.URL)
	var parts []string
	if details := formatDetails(item); details != "" {
		parts = append(parts, details)
	}
	if item.Source != "" {
		parts = append(parts, item.Source)
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "         %s\n", dim.Sprint(strings.Join(parts, " | ")))
	}
	if item.Caption != "" {
		fmt.Fprintf(w, "         %s\n", dim.Sprint(formatCaption(item.Caption)))
	}
}

// formatDetails renders similarity and resolution, skipping whatever is
// unknown.
func formatDetails(item engines.ResultItem) string {
	var parts []string
	if item.Similarity != nil {
		parts = append(parts, fmt.Sprintf("%.2f%%", *item.Similarity))
	}
	if res, ok := item.FullResolution(); ok {
		parts = append(parts, fmt.Sprintf("%dx%d (%d px)", *item.Width, *item.Height, res))
	}
	return strings.Join(parts, "  ")
}

func formatCaption(caption string) string {
	words := strings.Fields(caption)
	if len(words) > maxCaptionWords {
		return strings.Join(words[:maxCaptionWords], " ") + " ..."
	}
	return strings.Join(words, " ")
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" " + word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return lines
}

func getTerminalWidth() int {
	return 80
}

type jsonOutput struct {
	Image   string            `json:"image"`
	Results []engines.Outcome `json:"results"`
}

func printJSONResults(w io.Writer, ref string, outcomes []engines.Outcome) error {
	if outcomes == nil {
		outcomes = []engines.Outcome{}
	}
	jsonData, err := json.MarshalIndent(jsonOutput{Image: ref, Results: outcomes}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(jsonData))
	return nil
}
