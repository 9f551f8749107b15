package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses spaces", "a    b  c", "a b c"},
		{"space before punctuation", "Hello , world ! ok ?", "Hello, world! ok?"},
		{"curly quote padding then dropped", "he said “ hi ” there", "he said hi there"},
		{"newlines become spaces", "line one\nline two\r\nthree", "line one line two three"},
		{"curly apostrophe to ascii", "it’s here", "it's here"},
		{"non-breaking space", "a\u00a0b", "a b"},
		{"contraction fragment", "I don' t know, we' re late", "I don't know, we're late"},
		{"possessive left alone", "the students' books", "the students' books"},
		{"strips urls", "see https://example.com/x?y=1 and www.foo.org now", "see  and  now"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_Deterministic(t *testing.T) {
	in := "A  “quoted” text ,\nwith   http://x.y links’ and don' t"
	assert.Equal(t, Text(in), Text(in))
}

func TestText_InvalidUTF8PassesThrough(t *testing.T) {
	in := "ok \xff\xfe bytes"
	assert.Equal(t, in, Text(in))
}

func TestPages(t *testing.T) {
	got := Pages([]string{"a  b", "c\nd"})
	assert.Equal(t, []string{"a b", "c d"}, got)
}
