package main

import (
	"compress/bzip2"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Page is a single dump page with its markup intact.
type Page struct {
	Title string
	Text  string
}

// dumpPage is the per-page decode target. Field tags carry no namespace
// so elements match on local name regardless of any prefix in the dump.
type dumpPage struct {
	Title    string `xml:"title"`
	Revision struct {
		Text string `xml:"text"`
	} `xml:"revision"`
}

// errStopStream signals an early, non-error end of a page stream.
var errStopStream = errors.New("stop stream")

// StreamPages reads a MediaWiki XML dump, transparently decompressing
// .bz2 files, and calls fn once per page that has a non-empty title and
// text. The dump is decoded one page at a time so memory stays flat for
// multi-gigabyte inputs. fn may return errStopStream to end the stream
// early; any other error aborts it. Malformed XML is fatal.
func StreamPages(path string, fn func(Page) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".bz2") {
		r = bzip2.NewReader(f)
	}

	return streamPages(r, fn)
}

func streamPages(r io.Reader, fn func(Page) error) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse dump: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "page" {
			continue
		}

		var p dumpPage
		if err := dec.DecodeElement(&p, &start); err != nil {
			return fmt.Errorf("parse page: %w", err)
		}

		title := strings.TrimSpace(p.Title)
		text := strings.TrimSpace(p.Revision.Text)
		if title == "" || text == "" {
			continue
		}

		if err := fn(Page{Title: title, Text: text}); err != nil {
			if errors.Is(err, errStopStream) {
				return nil
			}
			return err
		}
	}
}
