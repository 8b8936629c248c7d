// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fnndsc/justci/internal/issue"

	"github.com/charmbracelet/fang"
)

// newErrorHandler returns the fang error handler. Failures already surfaced as
// annotations print no error line; actionable errors print their suggestions.
// In verbose mode both are followed by the matching help page, rendered with
// the given glamour style.
func newErrorHandler(verbose func() bool, style string) fang.ErrorHandler {
	return func(w io.Writer, styles fang.Styles, err error) {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Reported {
			if verbose() {
				printIssue(w, err, style)
			}
			return
		}

		var ae *issue.ActionableError
		if errors.As(err, &ae) {
			fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+ae.Format(verbose()))
			if verbose() {
				printIssue(w, err, style)
			}
			return
		}

		if exitErr != nil {
			fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+err.Error())
			return
		}

		fang.DefaultErrorHandler(w, styles, err)
	}
}

// printIssue writes the help page attached to err, if any.
func printIssue(w io.Writer, err error, style string) {
	help := issue.IssueOf(err)
	if help == nil {
		return
	}
	if rendered, renderErr := help.Render(style); renderErr == nil {
		fmt.Fprint(w, rendered)
	}
}
