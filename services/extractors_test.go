package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *int64
	}{
		{"placeholder dash", "-", nil},
		{"empty string", "", nil},
		{"whitespace only", "   ", nil},
		{"thousands separator", "2,500", int64Ptr(2500)},
		{"plain integer", "18000", int64Ptr(18000)},
		{"large amount", "1,250,000", int64Ptr(1250000)},
		{"not a number", "미정", nil},
		{"mixed garbage", "2,500원", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePrice(tt.input))
		})
	}
}

func TestParseBandPrice(t *testing.T) {
	t.Run("valid band", func(t *testing.T) {
		low, high := ParseBandPrice("2,000~2,500")
		require.NotNil(t, low)
		require.NotNil(t, high)
		assert.Equal(t, int64(2000), *low)
		assert.Equal(t, int64(2500), *high)
	})

	t.Run("placeholder dash yields both absent", func(t *testing.T) {
		low, high := ParseBandPrice("-")
		assert.Nil(t, low)
		assert.Nil(t, high)
	})

	t.Run("no separator yields both absent", func(t *testing.T) {
		low, high := ParseBandPrice("2500")
		assert.Nil(t, low)
		assert.Nil(t, high)
	})

	t.Run("one unparsable side stays absent", func(t *testing.T) {
		low, high := ParseBandPrice("2,000~미정")
		require.NotNil(t, low)
		assert.Equal(t, int64(2000), *low)
		assert.Nil(t, high)
	})
}

func TestParseDateString(t *testing.T) {
	t.Run("full date", func(t *testing.T) {
		date := ParseDateString("2023.12.19")
		require.NotNil(t, date)
		assert.Equal(t, 2023, date.Year())
		assert.Equal(t, time.December, date.Month())
		assert.Equal(t, 19, date.Day())
	})

	t.Run("single-digit components", func(t *testing.T) {
		date := ParseDateString("2024.1.2")
		require.NotNil(t, date)
		assert.Equal(t, 2024, date.Year())
		assert.Equal(t, time.January, date.Month())
		assert.Equal(t, 2, date.Day())
	})

	t.Run("month out of range yields absent", func(t *testing.T) {
		assert.Nil(t, ParseDateString("2023.13.01"))
	})

	t.Run("day that does not exist yields absent", func(t *testing.T) {
		assert.Nil(t, ParseDateString("2023.2.30"))
	})

	t.Run("two-component form is ambiguous alone", func(t *testing.T) {
		assert.Nil(t, ParseDateString("12.20"))
	})

	t.Run("garbage yields absent", func(t *testing.T) {
		assert.Nil(t, ParseDateString("공모철회"))
	})
}

func TestParseDateStringRoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any valid Y.M.D string parses back to its components", prop.ForAll(
		func(year, month, day int) bool {
			rendered := fmt.Sprintf("%d.%d.%d", year, month, day)
			date := ParseDateString(rendered)
			if date == nil {
				return false
			}
			return date.Year() == year && int(date.Month()) == month && date.Day() == day
		},
		gen.IntRange(2000, 2099),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
	))

	properties.Property("out-of-range months never parse", prop.ForAll(
		func(year, month, day int) bool {
			return ParseDateString(fmt.Sprintf("%d.%d.%d", year, month, day)) == nil
		},
		gen.IntRange(2000, 2099),
		gen.IntRange(13, 99),
		gen.IntRange(1, 28),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestParseDateRange(t *testing.T) {
	t.Run("short end inherits start year", func(t *testing.T) {
		start, end := ParseDateRange("2023.12.19~12.20")
		require.NotNil(t, start)
		require.NotNil(t, end)
		assert.Equal(t, time.Date(2023, 12, 19, 0, 0, 0, 0, time.UTC), *start)
		assert.Equal(t, time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC), *end)
	})

	t.Run("year rollover when naive end precedes start", func(t *testing.T) {
		start, end := ParseDateRange("2023.12.30~01.02")
		require.NotNil(t, start)
		require.NotNil(t, end)
		assert.Equal(t, time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC), *start)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *end)
	})

	t.Run("full date on both sides", func(t *testing.T) {
		start, end := ParseDateRange("2023.12.19~2023.12.20")
		require.NotNil(t, start)
		require.NotNil(t, end)
		assert.Equal(t, time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC), *end)
	})

	t.Run("no separator yields both absent", func(t *testing.T) {
		start, end := ParseDateRange("2023.12.19")
		assert.Nil(t, start)
		assert.Nil(t, end)
	})

	t.Run("invalid left side yields both absent", func(t *testing.T) {
		start, end := ParseDateRange("미정~12.20")
		assert.Nil(t, start)
		assert.Nil(t, end)
	})

	t.Run("unparsable end keeps start", func(t *testing.T) {
		start, end := ParseDateRange("2023.12.19~미정")
		require.NotNil(t, start)
		assert.Nil(t, end)
	})
}

func TestParseDateRangeOrderingProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a parsed range never ends before it starts", prop.ForAll(
		func(year, startMonth, startDay, endMonth, endDay int) bool {
			rendered := fmt.Sprintf("%d.%d.%d~%d.%d", year, startMonth, startDay, endMonth, endDay)
			start, end := ParseDateRange(rendered)
			if start == nil || end == nil {
				return true // absent is acceptable, inversion is not
			}
			return !end.Before(*start)
		},
		gen.IntRange(2000, 2099),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestParseSingleDate(t *testing.T) {
	t.Run("label prefix tolerated", func(t *testing.T) {
		date := ParseSingleDate("환불일 : 2024.3.15")
		require.NotNil(t, date)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *date)
	})

	t.Run("first match wins", func(t *testing.T) {
		date := ParseSingleDate("2024.3.15 (변경전 2024.3.10)")
		require.NotNil(t, date)
		assert.Equal(t, 15, date.Day())
	})

	t.Run("no date yields absent", func(t *testing.T) {
		assert.Nil(t, ParseSingleDate("미정"))
	})

	t.Run("invalid month yields absent", func(t *testing.T) {
		assert.Nil(t, ParseSingleDate("상장일 2024.13.01"))
	})
}

func TestParseLeadingNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"ratio text", "512.3:1", float64Ptr(512.3)},
		{"thousands separator", "1,234,567주", float64Ptr(1234567)},
		{"percentage", "23.5%", float64Ptr(23.5)},
		{"no number", "미확정", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLeadingNumber(tt.input)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.InDelta(t, *tt.expected, *result, 0.0001)
		})
	}
}

func TestCleanCompanyName(t *testing.T) {
	assert.Equal(t, "삼성전자", CleanCompanyName("삼성전자(주)"))
	assert.Equal(t, "테스트기업", CleanCompanyName("(유)테스트기업 "))
	assert.Equal(t, "그대로", CleanCompanyName("그대로"))
	assert.Equal(t, "", CleanCompanyName("  "))
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder("-"))
	assert.True(t, IsPlaceholder(""))
	assert.True(t, IsPlaceholder("  - "))
	assert.False(t, IsPlaceholder("512:1"))
}

func TestDeriveCirculatingSupply(t *testing.T) {
	t.Run("share count and offer price render in hundred-million units", func(t *testing.T) {
		// 1,000,000 shares at 20,000 KRW = 200억
		result := DeriveCirculatingSupply("1,000,000주", "25.3%", int64Ptr(20000))
		assert.Equal(t, "200억 (25.3%)", result)
	})

	t.Run("share count without offer price renders in ten-thousand-share units", func(t *testing.T) {
		result := DeriveCirculatingSupply("1,000,000주", "25.3%", nil)
		assert.Equal(t, "100만주 (25.3%)", result)
	})

	t.Run("no usable count falls back to raw percentage", func(t *testing.T) {
		result := DeriveCirculatingSupply("미정", " 25.3% ", int64Ptr(20000))
		assert.Equal(t, "25.3%", result)
	})
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
