package transcribe

import "testing"

func TestFormatSRT(t *testing.T) {
	segments := []Segment{
		{Start: 0.0, End: 1.234, Text: " Hello there. "},
		{Start: 61.0, End: 62.5, Text: "Second line"},
	}

	tests := []struct {
		name   string
		simple bool
		want   string
	}{
		{
			name: "milliseconds",
			want: "1\n00:00:00,000 --> 00:00:01,234\nHello there.\n\n" +
				"2\n00:01:01,000 --> 00:01:02,500\nSecond line\n",
		},
		{
			name:   "simple",
			simple: true,
			want: "1\n00:00:00 --> 00:00:01\nHello there.\n\n" +
				"2\n00:01:01 --> 00:01:02\nSecond line\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSRT(segments, tt.simple); got != tt.want {
				t.Errorf("FormatSRT() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.234, "00:00:01,234"},
		{3599.9996, "01:00:00,000"},
		{3723.045, "01:02:03,045"},
		{-2, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.in, false); got != tt.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSRTKeepsOrder(t *testing.T) {
	got := FormatSRT([]Segment{{Start: 5, End: 6, Text: "b"}, {Start: 1, End: 2, Text: "a"}}, true)
	want := "1\n00:00:05 --> 00:00:06\nb\n\n2\n00:00:01 --> 00:00:02\na\n"
	if got != want {
		t.Fatalf("FormatSRT() = %q, want %q", got, want)
	}
}
