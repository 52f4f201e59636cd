package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli"

	"github.com/locate918/roadmap/plan"
	"github.com/locate918/roadmap/sources"
)

var ShowScopesCmd = cli.Command{
	Name:               "scopes",
	Usage:              "Lists valid plan scopes and source kinds, use --help to see a human readable list",
	Action:             showScopes,
	CustomHelpTemplate: showHelp(),
}

func writeHelpLabels(w io.StringWriter, labels map[string]string, keys ...string) error {
	for _, lbl := range keys {
		w.WriteString("\t\t")
		w.WriteString(lbl)
		w.WriteString(": ")
		w.WriteString(labels[lbl])
		w.WriteString("\n")
	}
	return nil
}

func showHelp() string {
	h := strings.Builder{}
	h.WriteString("Valid plan scopes:\n")
	writeHelpLabels(&h, plan.Labels, plan.ValidScopes...)
	h.WriteString("\n")
	h.WriteString("Workstreams:\n")
	writeHelpLabels(&h, plan.Labels, plan.ValidWorkstreams...)
	h.WriteString("\n")
	h.WriteString("Source kinds:\n")
	writeHelpLabels(&h, sources.Labels, sources.ValidKinds...)
	return h.String()
}

func showScopes(c *cli.Context) error {
	fmt.Printf("%s\n", strings.Join(plan.GetScopes(nil), ", "))
	fmt.Printf("%s\n", strings.Join(sources.GetKinds(nil), ", "))
	return nil
}
