package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizerText(t *testing.T) {
	s := NewSanitizer()
	cases := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"  padded  ", "padded"},
		{"<b>bold</b> move", "bold move"},
		{`<script>alert("x")</script>hi`, "hi"},
		{`<img src=x onerror=alert(1)>pic`, "pic"},
		{"1 < 2 & 3 > 2", "1 < 2 & 3 > 2"},
		{"Tom & Jerry's \"show\"", "Tom & Jerry's \"show\""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.Text(tc.in), tc.in)
	}
}
