// Package export queries CMS list endpoints and turns the records into a
// downloadable workbook.
package export

import (
	"strings"

	"cmskit/internal/errors"
)

// Source names a CMS list endpoint
type Source string

const (
	InjectCover  Source = "inject_cover"
	InjectVideo  Source = "inject_video"
	ProjectCover Source = "project_cover"
	ProjectVideo Source = "project_video"
	TotalCover   Source = "total_cover"
)

// SourceSpec describes one list endpoint
type SourceSpec struct {
	Source Source
	Path   string
	Prefix string // file name prefix
}

var sourceSpecs = []SourceSpec{
	{Source: InjectCover, Path: "/zinject/inject/cover/list", Prefix: "注入库剧头数据"},
	{Source: InjectVideo, Path: "/zinject/inject/video/list", Prefix: "注入库子集数据"},
	{Source: ProjectCover, Path: "/query/project/cover/list", Prefix: "项目库专辑数据"},
	{Source: ProjectVideo, Path: "/query/project/video/list", Prefix: "项目库子集数据"},
	{Source: TotalCover, Path: "/query/cover/list", Prefix: "总库专辑数据"},
}

// Sources lists every export source
func Sources() []SourceSpec {
	out := make([]SourceSpec, len(sourceSpecs))
	copy(out, sourceSpecs)
	return out
}

// LookupSource finds the spec for a source name
func LookupSource(name Source) (SourceSpec, error) {
	key := Source(strings.TrimSpace(string(name)))
	for _, spec := range sourceSpecs {
		if spec.Source == key {
			return spec, nil
		}
	}
	if key == "" {
		return SourceSpec{}, errors.InvalidInput("export source is required")
	}
	return SourceSpec{}, errors.InvalidInputf("unknown export source %q", key)
}

// Inject reports whether the source is one of the injection queues
func (s Source) Inject() bool {
	return strings.HasPrefix(string(s), "inject_")
}

// Partnered reports whether queries are scoped by partner code
func (s Source) Partnered() bool {
	return s != TotalCover
}
