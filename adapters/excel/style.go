package excel

import (
	"encoding/json"
	"fmt"

	"github.com/tiendc/go-deepcopy"
	"github.com/xuri/excelize/v2"

	"cmskit/domain/sheet"
)

// xlsxStyle wraps a resolved excelize style so it can travel with a cell
// between workbooks. key identifies the source style; copies share it so a
// writer registers each distinct style once.
type xlsxStyle struct {
	style *excelize.Style
	key   string
}

func sourceStyleKey(id int) string {
	return fmt.Sprintf("src:%d", id)
}

// cacheKey returns the source key, or a content key for styles built in code
func (s *xlsxStyle) cacheKey() (string, error) {
	if s.key != "" {
		return s.key, nil
	}
	b, err := json.Marshal(s.style)
	if err != nil {
		return "", err
	}
	return "content:" + string(b), nil
}

func (s *xlsxStyle) Clone() (sheet.Style, error) {
	if s.style == nil {
		return nil, fmt.Errorf("style is unresolved")
	}
	var dst excelize.Style
	if err := deepcopy.Copy(&dst, *s.style); err != nil {
		return nil, fmt.Errorf("failed to copy style: %w", err)
	}
	return &xlsxStyle{style: &dst, key: s.key}, nil
}

// docProps carries workbook-level properties (creator, timestamps)
type docProps struct {
	props excelize.DocProperties
}

func (d *docProps) Clone() (sheet.Opaque, error) {
	var dst excelize.DocProperties
	if err := deepcopy.Copy(&dst, d.props); err != nil {
		return nil, fmt.Errorf("failed to copy document properties: %w", err)
	}
	return &docProps{props: dst}, nil
}

// sheetSettings carries sheet properties, the first view and page setup
type sheetSettings struct {
	Props     excelize.SheetPropsOptions
	View      excelize.ViewOptions
	Layout    excelize.PageLayoutOptions
	HasProps  bool
	HasView   bool
	HasLayout bool
}

func (s *sheetSettings) Clone() (sheet.Opaque, error) {
	var dst sheetSettings
	if err := deepcopy.Copy(&dst, *s); err != nil {
		return nil, fmt.Errorf("failed to copy sheet settings: %w", err)
	}
	return &dst, nil
}
