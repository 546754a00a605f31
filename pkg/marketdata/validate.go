package marketdata

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var bareCodePattern = regexp.MustCompile(`\b(\d{6})(\.(SH|SZ|sh|sz))?\b`)

// NormalizeStockCode upper-cases a Tushare stock code and appends the
// exchange suffix when missing: 60/68/90 prefixes trade in Shanghai,
// 00/30/20 in Shenzhen.
func NormalizeStockCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("stock code is empty")
	}
	if strings.Contains(code, ".") {
		return code, nil
	}

	switch {
	case strings.HasPrefix(code, "60"), strings.HasPrefix(code, "68"), strings.HasPrefix(code, "90"):
		return code + ".SH", nil
	case strings.HasPrefix(code, "00"), strings.HasPrefix(code, "30"), strings.HasPrefix(code, "20"):
		return code + ".SZ", nil
	default:
		return "", fmt.Errorf("unrecognized stock code: %s", code)
	}
}

// ExtractStockCode scans free text for the first 6-digit stock code and
// normalizes it. Returns false when the text mentions no code.
func ExtractStockCode(text string) (string, bool) {
	match := bareCodePattern.FindString(text)
	if match == "" {
		return "", false
	}
	code, err := NormalizeStockCode(match)
	if err != nil {
		return "", false
	}
	return code, true
}

// ValidateDate strips common separators and checks for a real YYYYMMDD date.
// An empty input stays empty; date parameters are optional upstream.
func ValidateDate(date string) (string, error) {
	if date == "" {
		return "", nil
	}

	replacer := strings.NewReplacer("-", "", "/", "", ".", "")
	date = replacer.Replace(strings.TrimSpace(date))
	if len(date) != 8 {
		return "", fmt.Errorf("date must be YYYYMMDD: %s", date)
	}
	if _, err := time.Parse("20060102", date); err != nil {
		return "", fmt.Errorf("invalid date: %s", date)
	}
	return date, nil
}
