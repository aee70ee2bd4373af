package ui

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dimiro1/banner"
)

const bannerTemplate = `{{ .Title "AGENT" "" 0 }}
{{ .AnsiColor.BrightBlack }}model: %s{{ .AnsiColor.Default }}
`

// PrintBanner renders the startup banner with the active model.
func PrintBanner(w io.Writer, model string, colored bool) {
	banner.Init(w, true, colored, bytes.NewBufferString(fmt.Sprintf(bannerTemplate, model)))
}
