package ndjson

import (
	"errors"
	"io"
	"strings"
	"testing"
)

type item struct {
	doc    string
	badRow int
}

func collect(t *testing.T, body string) []item {
	t.Helper()
	r := NewReader(io.NopCloser(strings.NewReader(body)))
	defer r.Close()

	var out []item
	for {
		doc, err := r.Next()
		if err == io.EOF {
			return out
		}
		var syn *SyntaxError
		if errors.As(err, &syn) {
			out = append(out, item{badRow: syn.Line})
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, item{doc: string(doc)})
	}
}

func TestReader_Lines(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []item
	}{
		{"two lines", "{\"a\":1}\n{\"b\":2}\n", []item{{doc: `{"a":1}`}, {doc: `{"b":2}`}}},
		{"malformed line continues", "{\"a\":1}\nnot-json\n{\"b\":2}\n", []item{{doc: `{"a":1}`}, {badRow: 2}, {doc: `{"b":2}`}}},
		{"crlf", "{\"a\":1}\r\n{\"b\":2}\r\n", []item{{doc: `{"a":1}`}, {doc: `{"b":2}`}}},
		{"trailing partial line", "{\"a\":1}\n{\"b\":2}", []item{{doc: `{"a":1}`}, {doc: `{"b":2}`}}},
		{"trailing partial malformed", "{\"a\":1}\n{\"b\":", []item{{doc: `{"a":1}`}, {badRow: 2}}},
		{"blank and padded lines", "\n  {\"a\":1}  \n\t\n", []item{{doc: `{"a":1}`}}},
		{"scalars", "1\n\"x\"\nnull\n", []item{{doc: "1"}, {doc: `"x"`}, {doc: "null"}}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, tt.body)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("item %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReader_DocumentsAreNotAliased(t *testing.T) {
	r := NewReader(io.NopCloser(strings.NewReader("{\"a\":1}\n{\"b\":2}\n")))
	first, _ := r.Next()
	second, _ := r.Next()
	if string(first) != `{"a":1}` || string(second) != `{"b":2}` {
		t.Errorf("documents overwritten: %s %s", first, second)
	}
}

func TestReader_LineTooLongIsSkipped(t *testing.T) {
	body := "{\"a\":1}\n" + strings.Repeat("x", 100) + "\n{\"b\":2}\n"
	r := NewReaderSize(io.NopCloser(strings.NewReader(body)), 16)

	if doc, err := r.Next(); err != nil || string(doc) != `{"a":1}` {
		t.Fatalf("first = %s, %v", doc, err)
	}
	_, err := r.Next()
	var syn *SyntaxError
	if !errors.As(err, &syn) || !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected oversize SyntaxError, got %v", err)
	}
	if syn.Line != 2 || syn.Text != "" {
		t.Errorf("unexpected error %+v", syn)
	}
	if doc, err := r.Next(); err != nil || string(doc) != `{"b":2}` {
		t.Fatalf("after oversize = %s, %v", doc, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReader_LimitCountsContentOnly(t *testing.T) {
	r := NewReaderSize(io.NopCloser(strings.NewReader("\"abcd\"\r\n")), 6)
	if doc, err := r.Next(); err != nil || string(doc) != `"abcd"` {
		t.Errorf("got %s, %v", doc, err)
	}
}

func TestReader_UnlimitedByDefault(t *testing.T) {
	big := strings.Repeat("x", 2<<20)
	body := "{\"s\":\"" + big + "\"}\n{\"b\":2}\n"
	got := collect(t, body)
	if len(got) != 2 || len(got[0].doc) != len(big)+8 || got[1].doc != `{"b":2}` {
		t.Fatalf("unexpected documents: %d", len(got))
	}
}

func TestSyntaxError_Message(t *testing.T) {
	r := NewReader(io.NopCloser(strings.NewReader("oops\n")))
	_, err := r.Next()
	var syn *SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
	if syn.Text != "oops" || !strings.Contains(syn.Error(), "line 1") {
		t.Errorf("unexpected error %+v", syn)
	}
	if syn.Unwrap() == nil {
		t.Error("expected decoder cause")
	}
}
