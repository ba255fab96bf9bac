package utils

import (
	"strings"
	"unicode"
)

// columnAliases maps spreadsheet headers (Chinese and common English
// variants) to internal field names.
var columnAliases = map[string]string{
	"城市":           "city",
	"区":            "district",
	"行政区":          "district",
	"城区":           "district",
	"区域":           "district",
	"小区":           "community",
	"小区名称":         "community",
	"地址":           "address",
	"总价":           "total_price",
	"总价(万)":        "total_price",
	"price":        "total_price",
	"单价":           "unit_price",
	"单价(元/平)":      "unit_price",
	"卧室":           "bedrooms",
	"厅":            "livingrooms",
	"客厅":           "livingrooms",
	"living_rooms": "livingrooms",
	"卫生间":          "bathrooms",
	"面积":           "area",
	"建筑面积":         "area",
	"套内面积":         "usable_area",
	"户型":           "layout",
	"楼层":           "floor",
	"总楼层":          "total_floors",
	"朝向":           "orientation",
	"建筑类型":         "building_type",
	"建成年份":         "year_built",
	"电梯":           "elevator",
	"停车":           "parking",
	"车位":           "parking",
	"距地铁":          "distance_to_subway",
	"最近地铁":         "nearest_subway",
	"距学校":          "distance_to_school",
	"距公园":          "distance_to_park",
	"标签":           "tags",
	"装修":           "renovation",
	"学区":           "school_district",
	"描述":           "description",
	"小区介绍":         "community_intro",
	"周边":           "surrounding",
	"推广权重":         "promotion_weight",
	"质量分":          "quality_score",
	"编号":           "id",
	"房源编号":         "id",
}

// CanonicalColumn maps a column header to its internal field name.
// Unknown headers are returned lowercased and trimmed.
func CanonicalColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	h = strings.NewReplacer("（", "(", "）", ")").Replace(h)
	if field, ok := columnAliases[h]; ok {
		return field
	}
	return h
}

// keywordAliases lists the soft keyword vocabulary in match order, with the
// English phrases that also select each keyword.
var keywordAliases = []struct {
	Keyword string
	Aliases []string
}{
	{"地铁", []string{"subway", "metro", "mrt"}},
	{"学校", []string{"school", "schools"}},
	{"公园", []string{"park", "parks"}},
	{"安静", []string{"quiet"}},
	{"景观", []string{"view", "views"}},
	{"学区", []string{"school district", "school-district"}},
}

// MatchKeywords returns the vocabulary keywords present in text, in
// vocabulary order. Chinese keywords match as substrings; English aliases
// match as whole words so "parking" does not select 公园.
func MatchKeywords(text string) []string {
	lower := strings.ToLower(text)
	words := " " + strings.Join(strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}), " ") + " "

	keywords := []string{}
	for _, entry := range keywordAliases {
		if strings.Contains(lower, entry.Keyword) {
			keywords = append(keywords, entry.Keyword)
			continue
		}
		for _, alias := range entry.Aliases {
			if strings.Contains(words, " "+alias+" ") {
				keywords = append(keywords, entry.Keyword)
				break
			}
		}
	}
	return keywords
}
