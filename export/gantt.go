package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/locate918/roadmap/plan"
)

// mermaid bar tags per status; todo bars carry no tag
var statusTags = map[string]string{
	plan.StatusDone:   "done",
	plan.StatusDoing:  "active",
	plan.StatusAtRisk: "crit",
}

// Gantt renders the plan as a mermaid gantt chart: one Milestones section
// followed by one section per workstream, dropped entries left out. The
// output is the fence body only, without the code fence markers.
func Gantt(title string, entries plan.Entries) string {
	b := strings.Builder{}
	b.WriteString("gantt\n")
	fmt.Fprintf(&b, "    title %s\n", title)
	b.WriteString("    dateFormat YYYY-MM-DD\n")
	b.WriteString("    axisFormat %d %b\n")

	milestones := entries.Scoped(plan.ScopeMilestone)
	milestones.Sort()
	writeSection(&b, plan.Labels[plan.ScopeMilestone], milestones)

	tasks := entries.Scoped(plan.ScopeTask)
	for _, stream := range plan.ValidWorkstreams {
		streamed := make(plan.Entries, 0)
		for _, e := range tasks {
			if e.Workstream == stream {
				streamed = append(streamed, e)
			}
		}
		streamed.Sort()
		writeSection(&b, plan.Labels[stream], streamed)
	}
	return b.String()
}

func writeSection(b *strings.Builder, label string, entries plan.Entries) {
	open := false
	for _, e := range entries {
		if e.Status == plan.StatusDropped {
			continue
		}
		if !open {
			fmt.Fprintf(b, "    section %s\n", label)
			open = true
		}
		fmt.Fprintf(b, "        %s\n", bar(e))
	}
}

func bar(e plan.Entry) string {
	pieces := make([]string, 0, 4)
	if e.Scope == plan.ScopeMilestone {
		pieces = append(pieces, "milestone")
	} else if tag := statusTags[e.Status]; tag != "" {
		pieces = append(pieces, tag)
	}
	pieces = append(pieces, strings.ToLower(e.ID))
	pieces = append(pieces, e.StartTime.Format("2006-01-02"))
	pieces = append(pieces, fmt.Sprintf("%dd", int(e.Duration.Hours())/24))
	return fmt.Sprintf("%s :%s", e.Name, strings.Join(pieces, ", "))
}

var (
	fenceOpen  = []byte("```mermaid\n")
	fenceClose = []byte("```")
)

// SpliceGantt replaces the body of the first mermaid fence in doc with
// gantt, leaving everything around the fence untouched.
func SpliceGantt(doc []byte, gantt string) ([]byte, error) {
	start := bytes.Index(doc, fenceOpen)
	if start < 0 {
		return nil, fmt.Errorf("no mermaid fence in document")
	}
	bodyStart := start + len(fenceOpen)
	rest := doc[bodyStart:]
	end := bytes.Index(rest, fenceClose)
	if end < 0 {
		return nil, fmt.Errorf("unterminated mermaid fence in document")
	}

	out := make([]byte, 0, len(doc)+len(gantt))
	out = append(out, doc[:bodyStart]...)
	out = append(out, gantt...)
	out = append(out, rest[end:]...)
	return out, nil
}
