// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	RunnerNotFoundId Id = iota + 1
	ConfigLoadFailedId
	MissingInputId
	PreferenceFailedId
	AncillaryExhaustedId
	TaskFailedId
	InterruptedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink  // documentation for the failing piece
		extLinks []HttpLink  // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render formats the issue for a terminal with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	runnerNotFoundIssue = &Issue{
		id: RunnerNotFoundId,
		mdMsg: `
# Task runner not found!

justci drives every step through the ` + "`just`" + ` command runner, and it is not on your PATH.

## Things you can try:
- Install just in the workflow before running justci:
~~~yaml
- uses: extractions/setup-just@v2
~~~

- Point justci at an explicit binary:
~~~
$ justci run --just /usr/local/bin/just test
~~~`,
		docLinks: []HttpLink{"https://just.systems/man/en/"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The justci.cue file could not be read or does not match the schema.

## Things you can try:
- Print a valid configuration with the current values:
~~~
$ justci config dump > justci.cue
~~~

- Check for unknown keys; the schema is closed
- Durations are strings in Go syntax, e.g. ` + "`backoff: \"2s\"`",
	}

	missingInputIssue = &Issue{
		id: MissingInputId,
		mdMsg: `
# Missing engine or command!

justci needs a container engine and a task name.

## Things you can try:
- In a GitHub Action, set the ` + "`engine`" + ` and ` + "`command`" + ` inputs
- Locally, pass them as flags:
~~~
$ justci run --engine docker test
~~~

- Or set ` + "`JUSTCI_ENGINE`" + ` and ` + "`JUSTCI_COMMAND`",
	}

	preferenceFailedIssue = &Issue{
		id: PreferenceFailedId,
		mdMsg: `
# Container engine preference failed!

The ` + "`prefer`" + ` recipe rejected the requested engine.

## Things you can try:
- Check that the engine is installed on the runner (` + "`docker`" + `, ` + "`podman`" + `)
- Run the recipe by hand to see its output:
~~~
$ just prefer docker
~~~`,
	}

	ancillaryExhaustedIssue = &Issue{
		id: AncillaryExhaustedId,
		mdMsg: `
# Ancillary services failed to start!

Every ` + "`start-ancillary`" + ` attempt exited with a non-zero status.

## Things you can try:
- Look at the output of the last attempt above
- Give slow services more time between attempts:
~~~
$ justci run --attempts 8 --backoff 2s test
~~~

- Check for port conflicts with services already running on the host`,
	}

	taskFailedIssue = &Issue{
		id: TaskFailedId,
		mdMsg: `
# Task failed!

The requested recipe exited with a non-zero status; justci exits with the same code.
Service logs were dumped after the failure unless disabled with ` + "`--no-logs`" + `.

## Things you can try:
- Reproduce locally with the same engine:
~~~
$ justci run --engine docker --annotations plain test
~~~`,
	}

	interruptedIssue = &Issue{
		id: InterruptedId,
		mdMsg: `
# Interrupted!

justci received a signal and stopped without running further steps.`,
	}

	issues = map[Id]*Issue{
		runnerNotFoundIssue.Id():     runnerNotFoundIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		missingInputIssue.Id():       missingInputIssue,
		preferenceFailedIssue.Id():   preferenceFailedIssue,
		ancillaryExhaustedIssue.Id(): ancillaryExhaustedIssue,
		taskFailedIssue.Id():         taskFailedIssue,
		interruptedIssue.Id():        interruptedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
