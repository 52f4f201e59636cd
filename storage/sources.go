package storage

import (
	"github.com/locate918/roadmap/sources"
)

type SourceSaver interface {
	SaveSources(sources.Catalog) error
}

type SourceLoader interface {
	LoadSources(kinds ...string) (sources.Catalog, error)
}

type ProbeSaver interface {
	SaveProbes(...sources.Probe) error
}

type ProbeLoader interface {
	LoadProbes(host string, cursor DateCursor) ([]sources.Probe, error)
}
