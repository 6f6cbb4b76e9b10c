package category

// Category labels produced by the built-in table.
const (
	CCTV      = "央视"
	Satellite = "卫视"
	Scenic    = "景区频道"
	Kids      = "少儿台"
	Variety   = "综艺台"
	Overseas  = "港澳台"
	Sports    = "体育台"
	Movies    = "影视台"
	Radio     = "调频广播"
	MusicMV   = "歌曲MV"
	Other     = "其他台"
)

// Rule is one category with its patterns, tried in order. Patterns are
// case-insensitive regular expressions searched anywhere in the name.
type Rule struct {
	Label    string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	// Before places a user rule ahead of the built-in table instead of after it.
	Before bool `yaml:"before,omitempty"`
}

// BuiltinRules is ordered most-specific first: broadcaster before satellite before themes.
var BuiltinRules = []Rule{
	{Label: CCTV, Patterns: []string{
		`^CCTV[-\s]?[\d一二三四五六七八九十]+`,
		`^央视[一二三四五六七八九十]+`,
		`^中央电视台`,
		`^CCTV[-\s]?4K`, `^CCTV[-\s]?8K`, `^CCTV[-\s]?5\+`,
		`^CCTV[-\s]?综合$`, `^CCTV[-\s]?财经$`, `^CCTV[-\s]?综艺$`,
		`^CCTV[-\s]?体育$`, `^CCTV[-\s]?电影$`, `^CCTV[-\s]?电视剧$`,
	}},
	{Label: Satellite, Patterns: []string{
		`卫视$`,
		`^北京卫视$`, `^湖南卫视$`, `^浙江卫视$`, `^江苏卫视$`,
		`^东方卫视$`, `^天津卫视$`, `^安徽卫视$`, `^山东卫视$`,
		`^广东卫视$`, `^深圳卫视$`, `^黑龙江卫视$`, `^辽宁卫视$`,
		`^湖北卫视$`, `^河南卫视$`, `^四川卫视$`, `^重庆卫视$`,
		`^江西卫视$`, `^广西卫视$`, `^东南卫视$`, `^贵州卫视$`,
		`^云南卫视$`, `^陕西卫视$`, `^山西卫视$`, `^河北卫视$`,
		`^海南卫视$`, `^宁夏卫视$`, `^新疆卫视$`, `^内蒙古卫视$`,
	}},
	{Label: Scenic, Patterns: []string{
		`景区$`, `直播中国$`, `旅游$`, `风光$`, `景点$`, `导视$`,
		`^峨眉山`, `^九寨沟`, `^黄山`, `^泰山`, `^华山`,
		`^张家界`, `^西湖`, `^漓江`, `^鼓浪屿`, `^故宫`,
		`^长城`, `^兵马俑`, `^布达拉宫`, `^天安门`, `^外滩`,
		`^维多利亚港`, `^澳门塔`, `^日月潭`, `^阿里山`, `^黟县`,
		`^云台山`, `^雁荡山`,
	}},
	{Label: Kids, Patterns: []string{
		`少儿$`, `卡通$`, `动漫$`, `动画$`, `金鹰卡通`,
		`卡酷少儿`, `哈哈炫动`, `优漫卡通`, `嘉佳卡通`,
		`炫动卡通`, `宝贝`,
	}},
	{Label: Variety, Patterns: []string{
		`综艺$`, `文艺$`, `娱乐$`, `音乐$`, `戏曲$`,
		`相声$`, `小品$`, `文化$`, `艺术$`,
	}},
	{Label: Overseas, Patterns: []string{
		`凤凰`, `翡翠`, `明珠`, `TVB`, `ATV`, `澳视`,
		`澳门`, `香港`, `台湾`, `中天`, `东森`, `华视`,
		`民视`, `三立`, `无线`,
	}},
	{Label: Sports, Patterns: []string{
		`体育$`, `足球$`, `篮球$`, `NBA`, `CBA`, `英超`,
		`欧冠$`, `高尔夫$`, `网球$`, `乒羽$`, `搏击$`,
		`赛车$`, `F1$`, `奥运$`, `赛事$`,
	}},
	{Label: Movies, Patterns: []string{
		`电影$`, `影院$`, `影视频道$`, `好莱坞$`, `CHC`,
		`家庭影院$`, `动作电影$`, `喜剧电影$`,
	}},
	{Label: Radio, Patterns: []string{
		`FM[_\-\s]?\d+`,
		`广播$`, `电台$`, `频率$`,
		`^中央人民广播电台`, `^中国之声`, `^经济之声`,
		`^音乐之声`, `^文艺之声`, `^交通广播`,
		`^都市广播`, `^新闻广播`, `^体育广播`,
		`^农村广播`, `^老年广播`, `^少儿广播`,
		`^教育广播`, `^故事广播`, `^戏曲广播`,
		`^经典音乐广播`, `^流行音乐广播`, `^欧美音乐广播`,
		`^华语音乐广播`, `^粤语广播`, `^方言广播`,
		`^国际广播`, `^外语广播`, `^英语广播`,
		`^日语广播`, `^韩语广播`, `^法语广播`,
		`^德语广播`, `^俄语广播`, `^西语广播`,
		`^阿拉伯语广播`, `^葡萄牙语广播`, `^意大利语广播`,
	}},
	{Label: MusicMV, Patterns: []string{
		`MV$`, `音乐电视$`, `MTV$`, `歌曲$`,
		`^流行音乐$`, `^摇滚音乐$`, `^古典音乐$`,
		`^民族音乐$`, `^轻音乐$`, `^纯音乐$`,
		`^背景音乐$`, `^钢琴曲$`, `^小提琴$`,
		`^吉他$`, `^萨克斯$`, `^爵士乐$`,
		`^蓝调$`, `^乡村音乐$`, `^电子音乐$`,
		`^舞曲$`, `^DJ$`, `^混音$`,
		`^原声$`, `^OST$`, `^演唱会$`,
		`^音乐会$`, `^音乐节$`, `^KTV$`,
		`^卡拉OK$`, `^伴奏$`, `^铃声$`,
		`^彩铃$`, `^手机铃声$`, `^来电铃声$`,
		`周深$`, `飞轮海$`, `精选$`, `音乐$`, `合集$`, `静心系列$`,
	}},
}

// FixedOrder is the output order of the built-in labels.
var FixedOrder = []string{CCTV, Satellite, Scenic, Kids, Variety, Overseas, Sports, Movies, Radio, MusicMV, Other}
