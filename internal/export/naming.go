package export

import (
	"strconv"
	"strings"
	"time"
)

var taskStatusLabels = map[string]string{
	"1":     "待注入",
	"4":     "注入中",
	"5":     "注入成功",
	"other": "其它状态",
}

var finishedLabels = map[string]string{
	"0": "无",
	"1": "一般",
	"2": "完整",
}

var batchLabels = map[string]string{
	"240626": "批次1",
	"240725": "批次2",
	"240816": "批次3",
	"240905": "批次4",
	"241015": "批次5",
	"241122": "批次6",
	"241212": "批次7",
	"240101": "新片",
}

// BatchLabel names a batch code, falling back to the code itself
func BatchLabel(code string) string {
	if label, ok := batchLabels[code]; ok {
		return label
	}
	return code
}

func validity(v string) string {
	if v == "1" {
		return "有效"
	}
	return "无效"
}

// FileName describes the query in the download name, for example
// 注入库剧头数据_bj_少儿_待注入_上线_创建2024-01-01至2024-01-31_2024-02-01.xlsx
func FileName(src SourceSpec, f Filters, today time.Time) string {
	parts := []string{src.Prefix}
	if f.Source.Partnered() && f.Partner != "" {
		parts = append(parts, f.Partner)
	}
	if f.Channel != "" {
		parts = append(parts, f.Channel)
	}
	if len(f.CIDs) > 0 {
		parts = append(parts, strconv.Itoa(len(f.CIDs))+"个CID")
	}

	if f.Source.Inject() {
		if f.TaskStatus != "" {
			parts = append(parts, taskStatusLabels[f.TaskStatus])
		}
		if f.IsOnline != "" {
			if f.IsOnline == "1" {
				parts = append(parts, "上线")
			} else {
				parts = append(parts, "下线")
			}
		}
	}

	if f.Source == TotalCover {
		if f.IsEffective != "" {
			parts = append(parts, validity(f.IsEffective))
		}
		if f.M4Status != "" {
			parts = append(parts, "4M"+validity(f.M4Status))
		}
		if f.M8Status != "" {
			parts = append(parts, "8M"+validity(f.M8Status))
		}
		if f.IsFinished != "" {
			parts = append(parts, "完整性"+finishedLabels[f.IsFinished])
		}
		if f.Batch != "" {
			parts = append(parts, BatchLabel(f.Batch))
		}
	}

	if r := dateRange(f.CreatedFrom, f.CreatedTo); r != "" {
		parts = append(parts, "创建"+r)
	}
	if r := dateRange(f.ModifiedFrom, f.ModifiedTo); r != "" {
		parts = append(parts, "修改"+r)
	}
	parts = append(parts, today.UTC().Format(dateLayout))

	return strings.Join(parts, "_") + ".xlsx"
}

func dateRange(from, to string) string {
	if from == "" && to == "" {
		return ""
	}
	if to == "" {
		return from
	}
	return from + "至" + to
}
