// Package batch replays spreadsheet rows against the CMS edit endpoints, one
// update call per row.
package batch

import (
	"strings"

	"cmskit/domain/cms"
	"cmskit/internal/errors"
)

// Mode names one kind of bulk edit
type Mode string

const (
	MasterAlbum    Mode = "master_album"
	MasterEpisode  Mode = "master_episode"
	MasterMedia    Mode = "master_media"
	ProjectAlbum   Mode = "project_album"
	ProjectEpisode Mode = "project_episode"
	InjectHeader   Mode = "inject_header"
	InjectSubset   Mode = "inject_subset"
)

// PartnerParam carries the project code on partner-scoped calls
const PartnerParam = "partner_code"

// ModeSpec describes how rows of one mode become CMS calls
type ModeSpec struct {
	Mode     Mode
	Label    string
	Path     string
	Encoding cms.Encoding
	// Required columns must exist in the header row
	Required []string
	// Identity columns must hold a value on every row and lead the params
	Identity []string
	// Partner modes add partner_code after the identity params
	Partner bool
	// Fixed params follow the partner code on every call
	Fixed cms.Params
	// AlwaysSend calls the CMS even when a row has no update fields
	AlwaysSend bool
	// FirstColumnKey lets a first column spelled like the key stand in for it
	FirstColumnKey bool
}

var modeSpecs = []ModeSpec{
	{
		Mode:           MasterAlbum,
		Label:          "总库专辑修改",
		Path:           "/api/cover/master_edit",
		Encoding:       cms.EncodingRawQuery,
		Required:       []string{"cid"},
		Identity:       []string{"cid"},
		FirstColumnKey: true,
	},
	{
		Mode:     MasterEpisode,
		Label:    "总库剧集修改",
		Path:     "/api/video/edit",
		Encoding: cms.EncodingJSON,
		Required: []string{"cid", "vid"},
		Identity: []string{"vid"},
	},
	{
		Mode:     MasterMedia,
		Label:    "总库介质修改",
		Path:     "/api/media/edit",
		Encoding: cms.EncodingQuery,
		Required: []string{"cid", "vid", "rate"},
		Identity: []string{"cid", "vid", "rate"},
	},
	{
		Mode:     ProjectAlbum,
		Label:    "项目库专辑修改",
		Path:     "/api/project/cover/edit",
		Encoding: cms.EncodingJSON,
		Required: []string{"cid"},
		Identity: []string{"cid"},
		Partner:  true,
	},
	{
		Mode:     ProjectEpisode,
		Label:    "项目库剧集修改",
		Path:     "/api/project/video/edit",
		Encoding: cms.EncodingJSON,
		Required: []string{"cid", "vid"},
		Identity: []string{"cid", "vid"},
		Partner:  true,
	},
	{
		Mode:       InjectHeader,
		Label:      "注入库剧头",
		Path:       "/api/inject/inject_cover",
		Encoding:   cms.EncodingQuery,
		Required:   []string{"cid"},
		Identity:   []string{"cid"},
		Partner:    true,
		Fixed:      cms.Params{{Key: "task_status", Value: 1}},
		AlwaysSend: true,
	},
	{
		Mode:       InjectSubset,
		Label:      "注入库子集",
		Path:       "/api/inject/inject_video",
		Encoding:   cms.EncodingQuery,
		Required:   []string{"cid", "vid"},
		Identity:   []string{"cid", "vid"},
		Partner:    true,
		Fixed:      cms.Params{{Key: "task_status", Value: 1}},
		AlwaysSend: true,
	},
}

// Modes lists every mode in menu order
func Modes() []ModeSpec {
	out := make([]ModeSpec, len(modeSpecs))
	copy(out, modeSpecs)
	return out
}

// LookupMode finds the spec for a mode name
func LookupMode(name string) (ModeSpec, error) {
	name = strings.TrimSpace(name)
	for _, spec := range modeSpecs {
		if string(spec.Mode) == name {
			return spec, nil
		}
	}
	return ModeSpec{}, errors.InvalidInputf("unknown import mode %q", name)
}

// skipSet returns the lower-cased column names that never become update fields
func (s ModeSpec) skipSet() map[string]bool {
	skip := make(map[string]bool, len(s.Identity)+len(s.Fixed)+1)
	for _, col := range s.Identity {
		skip[strings.ToLower(col)] = true
	}
	if s.Partner {
		skip[PartnerParam] = true
	}
	for _, p := range s.Fixed {
		skip[strings.ToLower(p.Key)] = true
	}
	return skip
}
