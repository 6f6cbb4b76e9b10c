package category

import (
	"cmp"
	"slices"
)

// channelOrder ranks well-known channels inside their category.
var channelOrder = map[string][]string{
	CCTV: {
		"CCTV-1 综合", "CCTV-2 财经", "CCTV-3 综艺", "CCTV-4 中文国际",
		"CCTV-5 体育", "CCTV-5+ 体育赛事", "CCTV-6 电影", "CCTV-7 国防军事",
		"CCTV-8 电视剧", "CCTV-9 纪录", "CCTV-10 科教", "CCTV-11 戏曲",
		"CCTV-12 社会与法", "CCTV-13 新闻", "CCTV-14 少儿", "CCTV-15 音乐",
		"CCTV-16 奥林匹克", "CCTV-17 农业农村", "CCTV-4K 超高清",
	},
	Satellite: {
		"北京卫视", "上海东方卫视", "天津卫视", "重庆卫视", "河北卫视",
		"山西卫视", "辽宁卫视", "吉林卫视", "黑龙江卫视", "江苏卫视",
		"浙江卫视", "安徽卫视", "福建卫视", "江西卫视", "山东卫视",
		"河南卫视", "湖北卫视", "湖南卫视", "广东卫视", "广西卫视",
		"海南卫视", "四川卫视", "贵州卫视", "云南卫视", "陕西卫视",
		"甘肃卫视", "青海卫视", "宁夏卫视", "新疆卫视", "内蒙古卫视",
		"西藏卫视",
	},
}

// SortKey is the in-category ordering of a channel: exact table hits first by
// rank, then names containing a table entry by that entry's rank, then the
// rest alphabetically.
type SortKey struct {
	Tier int
	Rank int
	Name string
}

// Compare orders keys tier, rank, then name.
func (k SortKey) Compare(o SortKey) int {
	if c := cmp.Compare(k.Tier, o.Tier); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Rank, o.Rank); c != 0 {
		return c
	}
	return cmp.Compare(k.Name, o.Name)
}

// Key computes the sort key of name within label.
func Key(label, name string) SortKey {
	table := channelOrder[label]
	for i, n := range table {
		if n == name {
			return SortKey{Tier: 0, Rank: i + 1}
		}
	}
	for i, n := range table {
		if containsFold(name, n) {
			return SortKey{Tier: 1, Rank: i + 1, Name: name}
		}
	}
	return SortKey{Tier: 2, Name: name}
}

// SortNames orders names in place for display under label.
func SortNames(label string, names []string) {
	slices.SortStableFunc(names, func(a, b string) int {
		return Key(label, a).Compare(Key(label, b))
	})
}

// Order arranges category labels for output: the fixed built-in sequence,
// then province labels, then everything else, the last two alphabetically.
func Order(labels []string) []string {
	present := make(map[string]bool, len(labels))
	for _, l := range labels {
		present[l] = true
	}
	out := make([]string, 0, len(present))
	fixed := make(map[string]bool, len(FixedOrder))
	for _, l := range FixedOrder {
		fixed[l] = true
		if present[l] {
			out = append(out, l)
		}
	}
	var provinces, rest []string
	for l := range present {
		switch {
		case fixed[l]:
		case IsProvince(l):
			provinces = append(provinces, l)
		default:
			rest = append(rest, l)
		}
	}
	slices.Sort(provinces)
	slices.Sort(rest)
	out = append(out, provinces...)
	return append(out, rest...)
}
