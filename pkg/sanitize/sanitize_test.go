package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := map[string]string{
		"  Jane  ":                        "Jane",
		"<b>Bold</b> move":                "Bold move",
		"Tom & Jerry":                     "Tom & Jerry",
		"line\none\t two":                 "line one two",
		"<script>alert('x')</script>Safe": "Safe",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Errorf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextarea(t *testing.T) {
	got := Textarea("first <i>line</i>\r\nsecond  \n")
	if got != "first line\nsecond" {
		t.Fatalf("Textarea = %q", got)
	}
}

func TestEmail(t *testing.T) {
	if got := Email(" Jane.Doe@Example.com\n"); got != "Jane.Doe@Example.com" {
		t.Fatalf("Email = %q", got)
	}
	if got := Email("ja ne(at)example.com"); got != "janeatexample.com" {
		t.Fatalf("Email = %q", got)
	}
}

func TestHTML(t *testing.T) {
	got := HTML(`<p class="intro">Hello <a href="https://example.com" onclick="x()">there</a></p><script>x()</script>`)
	want := `<p class="intro">Hello <a href="https://example.com" rel="nofollow">there</a></p>`
	if got != want {
		t.Fatalf("HTML = %q, want %q", got, want)
	}
}
