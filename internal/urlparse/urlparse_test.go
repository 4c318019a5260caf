package urlparse

import "testing"

func TestExtractID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?t=30", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			got, err := ExtractID(tc.url)
			if err != nil {
				t.Fatalf("ExtractID(%q) error = %v", tc.url, err)
			}
			if got != tc.want {
				t.Errorf("ExtractID(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestExtractID_NoMatch(t *testing.T) {
	for _, url := range []string{
		"https://vimeo.com/12345",
		"not a url at all",
		"",
	} {
		if _, err := ExtractID(url); err != ErrNoMatch {
			t.Errorf("ExtractID(%q) error = %v, want ErrNoMatch", url, err)
		}
	}
}
