package utils

import "testing"

func TestSafeCallbackPath(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain path", "/dashboard", "/dashboard"},
		{"nested path", "/admin/users", "/admin/users"},
		{"path with query", "/presets?category=free", "/presets?category=free"},
		{"root is dropped", "/", ""},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"absolute url", "https://evil.example/phish", ""},
		{"scheme relative", "//evil.example", ""},
		{"backslash variant", "/\\evil.example", ""},
		{"relative path", "dashboard", ""},
		{"header injection", "/dash\r\nSet-Cookie: x=1", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SafeCallbackPath(tc.in); got != tc.want {
				t.Errorf("SafeCallbackPath(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
