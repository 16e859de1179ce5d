package batch

import (
	"strings"

	"cmskit/internal/errors"
)

// Project is a partner scope in the CMS
type Project struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

var projects = []Project{
	{Name: "极智", Code: "jz"},
	{Name: "金胡桃", Code: "kn"},
	{Name: "测试", Code: "abc"},
	{Name: "宁夏", Code: "nx"},
	{Name: "福建", Code: "fj"},
	{Name: "江西", Code: "jx"},
	{Name: "陕西 线上", Code: "sn"},
	{Name: "甘肃OTT", Code: "gs_ott"},
	{Name: "甘肃OIPTV", Code: "gs_iptv"},
	{Name: "河南", Code: "ha"},
	{Name: "北京", Code: "bj"},
	{Name: "陕西_银河少儿", Code: "sn_ch"},
}

// Projects lists the known partner projects
func Projects() []Project {
	out := make([]Project, len(projects))
	copy(out, projects)
	return out
}

// ResolveProject accepts a display name or a partner code
func ResolveProject(nameOrCode string) (Project, error) {
	key := strings.TrimSpace(nameOrCode)
	if key == "" {
		return Project{}, errors.InvalidInput("project is required")
	}
	for _, p := range projects {
		if p.Name == key || strings.EqualFold(p.Code, key) {
			return p, nil
		}
	}
	return Project{}, errors.InvalidInputf("unknown project %q", key)
}
