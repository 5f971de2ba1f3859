package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field extractors for the 38.co.kr crawl. Each one is a pure function:
// text in, typed-or-nil out. Unparsable input yields nil (or ""), never an
// error; a single malformed cell must not abort its row.

const placeholderDash = "-"

// rangeSeparator splits subscription windows and price bands ("2023.12.19~12.20").
const rangeSeparator = "~"

var (
	fullDateRegex      = regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`)
	leadingNumberRegex = regexp.MustCompile(`\d+(?:,\d{3})*(?:\.\d+)?`)
	digitsOnlyRegex    = regexp.MustCompile(`^[\d,.]+$`)
)

// IsPlaceholder reports whether the cell text carries no data. The source
// site renders unknown values as a bare dash.
func IsPlaceholder(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == "" || trimmed == placeholderDash
}

// CleanCompanyName strips corporate-suffix noise from a scraped name so it
// can serve as the upsert key across crawl runs.
func CleanCompanyName(name string) string {
	cleaned := strings.ReplaceAll(name, "(유)", "")
	cleaned = strings.ReplaceAll(cleaned, "(주)", "")
	return strings.TrimSpace(cleaned)
}

// ParsePrice converts a formatted KRW amount ("2,500") to an integer.
// Placeholder dashes and empty cells yield nil.
func ParsePrice(text string) *int64 {
	if IsPlaceholder(text) {
		return nil
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	parsed, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// ParseBandPrice splits a proposed price band ("2,000~2,500") into its low
// and high bounds. Without the separator both sides are nil.
func ParseBandPrice(text string) (*int64, *int64) {
	if !strings.Contains(text, rangeSeparator) {
		return nil, nil
	}
	parts := strings.SplitN(text, rangeSeparator, 2)
	return ParsePrice(parts[0]), ParsePrice(parts[1])
}

// partialDate holds a dot-delimited date that may lack its year. The year
// is zero for two-component forms like "12.20" and must be resolved by the
// caller from surrounding context.
type partialDate struct {
	year  int
	month int
	day   int
}

func parsePartialDate(text string) (partialDate, bool) {
	parts := strings.Split(strings.TrimSpace(text), ".")

	var date partialDate
	switch len(parts) {
	case 3:
		year, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return partialDate{}, false
		}
		date.year = year
		parts = parts[1:]
	case 2:
	default:
		return partialDate{}, false
	}

	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return partialDate{}, false
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return partialDate{}, false
	}

	date.month = month
	date.day = day
	if !date.valid() {
		return partialDate{}, false
	}
	return date, true
}

// valid rejects out-of-range components. Month 13 or day 32 must yield an
// absent date, not a normalized-forward one.
func (d partialDate) valid() bool {
	if d.month < 1 || d.month > 12 || d.day < 1 || d.day > 31 {
		return false
	}
	if d.year == 0 {
		return true
	}
	return d.resolve(d.year) != nil
}

// resolve materializes the date in the given year, or nil when the
// combination does not exist on the calendar (e.g. 2023.2.30).
func (d partialDate) resolve(year int) *time.Time {
	candidate := time.Date(year, time.Month(d.month), d.day, 0, 0, 0, 0, time.UTC)
	if candidate.Year() != year || candidate.Month() != time.Month(d.month) || candidate.Day() != d.day {
		return nil
	}
	return &candidate
}

// ParseDateString parses a full three-component date string "YYYY.M.D".
// Two-component forms are ambiguous without context and yield nil here;
// ParseDateRange resolves them against the range's start date.
func ParseDateString(text string) *time.Time {
	date, ok := parsePartialDate(text)
	if !ok || date.year == 0 {
		return nil
	}
	return date.resolve(date.year)
}

// ParseDateRange splits a subscription window like "2023.12.19~12.20" into
// start and end dates. The left side must be a full date. A short right
// side (≤5 rendered characters, no year of its own) inherits the start's
// year; if the naive same-year end then precedes the start the end year is
// bumped by one. The rollover handles year-end subscription windows that
// span January 1st while the site still prints "12.30~01.02".
func ParseDateRange(text string) (*time.Time, *time.Time) {
	if !strings.Contains(text, rangeSeparator) {
		return nil, nil
	}
	parts := strings.SplitN(text, rangeSeparator, 2)

	start := ParseDateString(parts[0])
	if start == nil {
		return nil, nil
	}

	endText := strings.TrimSpace(parts[1])
	startYear := strconv.Itoa(start.Year())

	if len(endText) <= 5 && !strings.Contains(endText, startYear) {
		endDate, ok := parsePartialDate(endText)
		if !ok {
			return start, nil
		}
		end := endDate.resolve(start.Year())
		if end == nil {
			return start, nil
		}
		if end.Before(*start) {
			end = endDate.resolve(start.Year() + 1)
		}
		return start, end
	}

	return start, ParseDateString(endText)
}

// ParseSingleDate extracts the first "YYYY.M.D"-shaped substring found
// anywhere in the text. Labels and prefixes around the date are tolerated.
func ParseSingleDate(text string) *time.Time {
	match := fullDateRegex.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	year, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	day, _ := strconv.Atoi(match[3])

	date := partialDate{year: year, month: month, day: day}
	if !date.valid() {
		return nil
	}
	return date.resolve(year)
}

// ParseLeadingNumber extracts the first numeric token from a string,
// tolerating thousands separators and a decimal point ("1,234.5주 (12.3%)").
func ParseLeadingNumber(text string) *float64 {
	match := leadingNumberRegex.FindString(text)
	if match == "" {
		return nil
	}
	cleaned := strings.ReplaceAll(match, ",", "")
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// isNumericCell reports whether the cell text is composed strictly of
// digits and separators, the shape of an OTC price quote.
func isNumericCell(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && digitsOnlyRegex.MatchString(trimmed)
}

// DeriveCirculatingSupply renders the tradable-at-listing supply from the
// shareholder table's total row. Three tiers, matching what the source site
// actually publishes per IPO:
//
//  1. share count and confirmed offer price known: value in 억 (hundred
//     million KRW) annotated with the percentage,
//  2. share count only: count in 만주 (ten-thousand shares),
//  3. neither usable: the raw percentage text.
func DeriveCirculatingSupply(shareCountText, percentText string, offerPrice *int64) string {
	percent := strings.TrimSpace(percentText)
	shareCount := ParseLeadingNumber(shareCountText)
	if shareCount == nil {
		return percent
	}

	if offerPrice != nil {
		amount := *shareCount * float64(*offerPrice) / 100_000_000
		return fmt.Sprintf("%.0f억 (%s)", amount, percent)
	}
	return fmt.Sprintf("%.0f만주 (%s)", *shareCount/10_000, percent)
}
