package parser

// Locale selects the label language of parsed summaries.
type Locale string

const (
	English Locale = "en"
	Korean  Locale = "ko"
)

type labels struct {
	noInfo      string
	versionName string
	versionCode string
	battery     string
	charging    string
	usb         string
	pkg         string
	activity    string
	yes, no     string
}

func (l labels) yesNo(b bool) string {
	if b {
		return l.yes
	}
	return l.no
}

var localized = map[Locale]labels{
	English: {
		noInfo:      "No information",
		versionName: "Version name",
		versionCode: "Version code",
		battery:     "Battery level",
		charging:    "Charging",
		usb:         "USB connected",
		pkg:         "Package",
		activity:    "Activity",
		yes:         "yes",
		no:          "no",
	},
	Korean: {
		noInfo:      "정보 없음",
		versionName: "버전 이름",
		versionCode: "버전 코드",
		battery:     "배터리 잔량",
		charging:    "충전 중",
		usb:         "USB 연결됨",
		pkg:         "패키지",
		activity:    "액티비티",
		yes:         "예",
		no:          "아니오",
	},
}

func labelsFor(loc Locale) labels {
	if l, ok := localized[loc]; ok {
		return l
	}
	return localized[English]
}
