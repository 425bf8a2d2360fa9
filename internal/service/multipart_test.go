package service

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
)

// buildForm returns a multipart body with one file part and one field part,
// plus its content-type.
func buildForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("%PDF-1.4 fake content")); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("mode", "tables"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func boundaryOf(t *testing.T, contentType string) string {
	t.Helper()
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("parse content-type %q: %v", contentType, err)
	}
	return params["boundary"]
}

func TestRestreamMultipart_FreshBoundary(t *testing.T) {
	buf, inboundCT := buildForm(t)
	inboundBoundary := boundaryOf(t, inboundCT)

	src := multipart.NewReader(buf, inboundBoundary)
	body, outCT := RestreamMultipart(src)
	defer func() { _ = body.Close() }()

	outBoundary := boundaryOf(t, outCT)
	if outBoundary == "" {
		t.Fatal("re-framed content-type carries no boundary")
	}
	if outBoundary == inboundBoundary {
		t.Error("re-framed boundary equals inbound boundary; a fresh one must be generated")
	}

	// The re-framed stream must parse under the new boundary with all parts intact.
	out := multipart.NewReader(body, outBoundary)

	part1, err := out.NextPart()
	if err != nil {
		t.Fatalf("NextPart(1): %v", err)
	}
	if part1.FormName() != "file" || part1.FileName() != "doc.pdf" {
		t.Errorf("part 1 = (%q, %q), want (file, doc.pdf)", part1.FormName(), part1.FileName())
	}
	content, err := io.ReadAll(part1)
	if err != nil {
		t.Fatalf("read part 1: %v", err)
	}
	if string(content) != "%PDF-1.4 fake content" {
		t.Errorf("part 1 content = %q, want original bytes", string(content))
	}

	part2, err := out.NextPart()
	if err != nil {
		t.Fatalf("NextPart(2): %v", err)
	}
	if part2.FormName() != "mode" {
		t.Errorf("part 2 form name = %q, want %q", part2.FormName(), "mode")
	}
	value, err := io.ReadAll(part2)
	if err != nil {
		t.Fatalf("read part 2: %v", err)
	}
	if string(value) != "tables" {
		t.Errorf("part 2 value = %q, want %q", string(value), "tables")
	}

	if _, err := out.NextPart(); err != io.EOF {
		t.Errorf("NextPart(3) = %v, want io.EOF", err)
	}
}

func TestRestreamMultipart_MalformedSource(t *testing.T) {
	src := multipart.NewReader(strings.NewReader("not a multipart body"), "nope")
	body, _ := RestreamMultipart(src)
	defer func() { _ = body.Close() }()

	if _, err := io.ReadAll(body); err == nil {
		t.Error("expected read error for malformed multipart source, got nil")
	}
}

func TestRestreamMultipart_EarlyClose(t *testing.T) {
	buf, inboundCT := buildForm(t)
	src := multipart.NewReader(buf, boundaryOf(t, inboundCT))

	body, _ := RestreamMultipart(src)
	// Closing the consumer side must unblock the copier goroutine.
	if err := body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
