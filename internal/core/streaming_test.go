package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMSkippingReader(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8ValidatingReader(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    string
		wantErr bool
	}{
		{name: "ascii", input: []byte("a,b\n1,2\n"), want: "a,b\n1,2\n"},
		{name: "multi-byte", input: []byte("nombre\nJosé Müller\n"), want: "nombre\nJosé Müller\n"},
		{name: "invalid byte", input: []byte{'a', ',', 0xFF, 'b'}, want: "a,", wantErr: true},
		{name: "truncated sequence at end", input: []byte{'a', 0xC3}, want: "a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewUTF8ValidatingReader(bytes.NewReader(tt.input)))
			if tt.wantErr {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("expected *ParseError, got %v", err)
				}
				if !strings.Contains(pe.Message, "encoding error") {
					t.Errorf("message = %q, want encoding error", pe.Message)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// oneByteReader forces multi-byte runes to be split across reads.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestUTF8ValidatingReader_SplitRunes(t *testing.T) {
	input := "ñandú,€,😀\n"
	got, err := io.ReadAll(NewUTF8ValidatingReader(oneByteReader{strings.NewReader(input)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestWrapForParsing(t *testing.T) {
	t.Run("strips BOM", func(t *testing.T) {
		r, err := WrapForParsing(bytes.NewReader(append([]byte{0xEF, 0xBB, 0xBF}, "name\n"...)), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := io.ReadAll(r)
		if string(got) != "name\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("decodes latin1", func(t *testing.T) {
		// "José" in ISO-8859-1
		r, err := WrapForParsing(bytes.NewReader([]byte{'J', 'o', 's', 0xE9}), "ISO-8859-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != "José" {
			t.Errorf("got %q, want %q", got, "José")
		}
	})

	t.Run("utf-8 label passes through", func(t *testing.T) {
		r, err := WrapForParsing(strings.NewReader("ok"), "UTF-8")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := io.ReadAll(r)
		if string(got) != "ok" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("unknown charset", func(t *testing.T) {
		_, err := WrapForParsing(strings.NewReader("x"), "klingon-8")
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected *ParseError, got %v", err)
		}
	})
}
