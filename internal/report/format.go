package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dailypush/internal/provider"
	"dailypush/internal/provider/qweather"
)

var weekdayNames = [7]string{"一", "二", "三", "四", "五", "六", "日"}

var weekdayBlurbs = [7]string{
	"新的一周开始啦",
	"今天是努力工作的一天",
	"周中是否会因为工作而产生一些小情绪呢",
	"再坚持一下就到周末啦",
	"明天就是周末啦",
	"今天是周末，不用上班",
	"今天可以继续休息",
}

// mondayIndex maps time.Weekday (Sunday=0) to a Monday-first index.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func weekdayName(now time.Time, offset int) string {
	return weekdayNames[(mondayIndex(now.Weekday())+offset)%7]
}

// wetText marks rain or snow as "有雨"/"有雪" style phrasing.
func wetText(s string) string {
	if strings.Contains(s, "雨") || strings.Contains(s, "雪") {
		return s + "有"
	}
	return s
}

var reHour = regexp.MustCompile(`T(\d{2})`)

// rainOutlook scans today's remaining hours (up to the first 00:00 slot) for
// precipitation probability above 50%. It returns the latest such hour and
// the highest probability seen among them.
func rainOutlook(hourly []qweather.Hourly) (hour, maxPop int, ok bool, err error) {
	for i, h := range hourly {
		m := reHour.FindStringSubmatch(h.FxTime)
		if m == nil {
			return 0, 0, false, provider.MissingField(fmt.Sprintf("hourly[%d].fxTime hour", i))
		}
		hh, _ := strconv.Atoi(m[1])
		if hh == 0 {
			break
		}
		pop, perr := strconv.Atoi(strings.TrimSpace(h.Pop))
		if perr != nil {
			return 0, 0, false, fmt.Errorf("hourly[%d].pop: %w", i, perr)
		}
		if pop > 50 {
			hour, ok = hh, true
			maxPop = max(maxPop, pop)
		}
	}
	return hour, maxPop, ok, nil
}

// monthDay turns "2026-10-18" into "10-18".
func monthDay(fxDate string) string {
	if len(fxDate) > 5 {
		return fxDate[5:]
	}
	return fxDate
}
