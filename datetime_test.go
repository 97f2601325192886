package wgdb

import "testing"

func TestDateYMDRoundTrip(t *testing.T) {
	days := DateFromYMD(2024, 3, 15)
	y, m, d := DateToYMD(days)
	if y != 2024 || m != 3 || d != 15 {
		t.Fatalf("DateToYMD(%d) = %d-%d-%d, want 2024-3-15", days, y, m, d)
	}
}

func TestTimeHMSRoundTrip(t *testing.T) {
	ms := TimeFromHMS(13, 45, 30, 250)
	h, mi, se, mil := TimeToHMS(ms)
	if h != 13 || mi != 45 || se != 30 || mil != 250 {
		t.Fatalf("TimeToHMS(%d) = %02d:%02d:%02d.%03d, want 13:45:30.250", ms, h, mi, se, mil)
	}
}

func TestFormatAndParseDate(t *testing.T) {
	days := DateFromYMD(2000, 1, 1)
	s := FormatDate(days)
	if s != "2000-01-01" {
		t.Fatalf("FormatDate = %q, want 2000-01-01", s)
	}
	parsed, err := ParseDate(s)
	if err != nil || parsed != days {
		t.Fatalf("ParseDate(%q) = %d, %v, want %d, nil", s, parsed, err, days)
	}
}

func TestFormatAndParseTime(t *testing.T) {
	ms := TimeFromHMS(8, 5, 9, 10)
	s := FormatTime(ms)
	if s != "08:05:09.010" {
		t.Fatalf("FormatTime = %q, want 08:05:09.010", s)
	}
	parsed, err := ParseTime(s)
	if err != nil || parsed != ms {
		t.Fatalf("ParseTime(%q) = %d, %v, want %d, nil", s, parsed, err, ms)
	}
}

func TestParseDateInvalid(t *testing.T) {
	if _, err := ParseDate("not-a-date"); err == nil {
		t.Fatalf("expected error parsing invalid date")
	}
}

func TestDateBeforeEpoch(t *testing.T) {
	days := DateFromYMD(1960, 1, 1)
	if days >= 0 {
		t.Fatalf("DateFromYMD before epoch = %d, want negative", days)
	}
	y, m, d := DateToYMD(days)
	if y != 1960 || m != 1 || d != 1 {
		t.Fatalf("DateToYMD(%d) = %d-%d-%d, want 1960-1-1", days, y, m, d)
	}
}
